// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package handshake

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/qcryptocore/qc-server/internal/keyschedule"
	"github.com/qcryptocore/qc-server/internal/recordcodec"
)

func newRandom32() ([32]byte, error) {
	var r [32]byte
	if _, err := rand.Read(r[:]); err != nil {
		return r, fmt.Errorf("handshake: random: %w", err)
	}
	return r, nil
}

func encodeRecord(stream *recordcodec.Stream, typ recordcodec.RecordType, body []byte) ([]byte, error) {
	rec := recordcodec.Record{Type: typ, Body: body}
	encoded, err := rec.Encode()
	if err != nil {
		return nil, err
	}
	return stream.EncodeSend(encoded)
}

// EmitClientHello is spec.md §6's encode_crypto_record specialized to
// ClientHello: the client's only Initial-level outbound record.
func (c *Connection) EmitClientHello(quicVersion uint32, params recordcodec.TransportParameters) ([]byte, error) {
	if c.Role != RoleClient {
		return nil, fmt.Errorf("handshake: only a client emits ClientHello")
	}
	random, err := newRandom32()
	if err != nil {
		return nil, err
	}
	c.QUICVersion = quicVersion
	c.Params = params

	ch := recordcodec.ClientHello{
		Random:              random,
		CipherSuites:        []uint16{recordcodec.CipherAES128GCMSHA256},
		SupportedVersions:   []uint16{recordcodec.TLSVersion13},
		SignatureAlgorithms: []uint16{recordcodec.SignatureECDSASecp256r1SHA256},
		SupportedGroups:     []uint16{recordcodec.GroupSecp256r1},
		KeyShares:           []recordcodec.KeyShareEntry{{Group: recordcodec.GroupSecp256r1, Data: c.PrivKey.PublicKey().Bytes()}},
		QUICInitialVersion:  quicVersion,
		QUICParams:          params,
	}
	body, err := ch.Encode()
	if err != nil {
		return nil, err
	}
	return encodeRecord(&c.initial, recordcodec.ClientHello, body)
}

// EmitServerHello is the server's only Initial-level outbound record.
func (c *Connection) EmitServerHello() ([]byte, error) {
	if c.Role != RoleServer {
		return nil, fmt.Errorf("handshake: only a server emits ServerHello")
	}
	random, err := newRandom32()
	if err != nil {
		return nil, err
	}
	c.TLSVersion = recordcodec.TLSVersion13
	c.Cipher = recordcodec.CipherAES128GCMSHA256

	sh := recordcodec.ServerHello{
		Random:           random,
		CipherSuite:      recordcodec.CipherAES128GCMSHA256,
		SupportedVersion: recordcodec.TLSVersion13,
		KeyShare:         recordcodec.KeyShareEntry{Group: recordcodec.GroupSecp256r1, Data: c.PrivKey.PublicKey().Bytes()},
	}
	body, err := sh.Encode()
	if err != nil {
		return nil, err
	}
	frame, err := encodeRecord(&c.initial, recordcodec.ServerHello, body)
	if err != nil {
		return nil, err
	}
	// Mirrors validateServerHello's transition on the client side: both
	// ends move to Handshake at the moment ServerHello is settled, the
	// server by sending it rather than receiving it.
	c.Level = keyschedule.Handshake
	return frame, nil
}

// EmitEncryptedExtensions is the server's first Handshake-level record.
func (c *Connection) EmitEncryptedExtensions() ([]byte, error) {
	if c.Role != RoleServer {
		return nil, fmt.Errorf("handshake: only a server emits EncryptedExtensions")
	}
	ee := recordcodec.EncryptedExtensions{
		SignatureAlgorithm:    recordcodec.SignatureECDSASecp256r1SHA256,
		Group:                 recordcodec.GroupSecp256r1,
		QUICNegotiatedVersion: c.QUICVersion,
		QUICParams:            c.Params,
	}
	body, err := ee.Encode()
	if err != nil {
		return nil, err
	}
	return encodeRecord(&c.hs, recordcodec.EncryptedExtensions, body)
}

// EmitCertificate serializes the server's own certificate chain (spec.md
// §3's cert_chain, leaf first).
func (c *Connection) EmitCertificate() ([]byte, error) {
	if c.Role != RoleServer {
		return nil, fmt.Errorf("handshake: only a server emits Certificate")
	}
	if len(c.CertChain) == 0 {
		return nil, fmt.Errorf("handshake: no certificate chain configured")
	}
	msg := recordcodec.CertificateMessage{}
	for _, cert := range c.CertChain {
		msg.Chain = append(msg.Chain, cert.Raw)
	}
	body, err := msg.Encode()
	if err != nil {
		return nil, err
	}
	return encodeRecord(&c.hs, recordcodec.Certificate, body)
}

// EmitCertificateVerify signs the transcript hash so far with the server's
// certificate private key.
func (c *Connection) EmitCertificateVerify() ([]byte, error) {
	if c.Role != RoleServer {
		return nil, fmt.Errorf("handshake: only a server emits CertificateVerify")
	}
	if c.CertPrivKey == nil {
		return nil, fmt.Errorf("handshake: no certificate private key configured")
	}
	digest := c.transcriptHash()
	sig, err := c.CertPrivKey.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("handshake: sign CertificateVerify: %w", err)
	}
	if _, ok := c.CertPrivKey.Public().(*ecdsa.PublicKey); !ok {
		return nil, fmt.Errorf("handshake: certificate private key is not ECDSA")
	}

	msg := recordcodec.CertificateVerifyMessage{Algorithm: recordcodec.SignatureECDSASecp256r1SHA256, Signature: sig}
	return encodeRecord(&c.hs, recordcodec.CertificateVerify, msg.Encode())
}

// EmitFinished computes this side's Finished verify_data over its own
// handshake traffic secret (spec.md §4.5) and encodes it. On the server
// side this is the record whose transmission freezes the
// handshake->protected transcript boundary (spec.md §4.3); on the client
// side it follows the server's Finished being validated.
func (c *Connection) EmitFinished() ([]byte, error) {
	if !c.Schedule.Handshake.Installed() {
		return nil, fmt.Errorf("handshake: handshake keys not installed")
	}
	var secret []byte
	if c.Role == RoleServer {
		secret = c.Schedule.Handshake.Server.Secret
	} else {
		secret = c.Schedule.Handshake.Client.Secret
	}
	finKey := keyschedule.FinishedKey(secret)
	digest := c.transcriptHash()
	mac := hmac.New(sha256.New, finKey)
	mac.Write(digest[:])

	frame, err := encodeRecord(&c.hs, recordcodec.Finished, mac.Sum(nil))
	if err != nil {
		return nil, err
	}
	if c.Role == RoleServer {
		c.handshakeFinishedSent = true
	}
	return frame, nil
}
