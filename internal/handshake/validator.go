// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package handshake

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/qcryptocore/qc-server/internal/keyschedule"
	"github.com/qcryptocore/qc-server/internal/recordcodec"
)

// Result classifies the outcome of ValidateRecord, matching the
// valid/incomplete/out_of_order/invalid sum spec.md §6 assigns to
// validate_record.
type Result int

const (
	ResultValid Result = iota
	ResultIncomplete
	ResultOutOfOrder
	ResultInvalid
)

func (r Result) String() string {
	switch r {
	case ResultValid:
		return "valid"
	case ResultIncomplete:
		return "incomplete"
	case ResultOutOfOrder:
		return "out_of_order"
	case ResultInvalid:
		return "invalid"
	default:
		return "result(?)"
	}
}

// ValidateRecord is spec.md §6's validate_record, specialized so the caller
// supplies the level the frame arrived at (the packet layer already knows
// this, since each level has its own packet-number space and keys). The
// validator's own dispatch table is keyed on (Role, c.Level, record.Type)
// exactly as spec.md §4.5 lists it: on the server side, a client Finished
// always arrives carried at the Handshake level even though c.Level has
// already advanced to Protected by the time it is processed, because the
// server installs protected keys as soon as it sends its own Finished
// (spec.md §4.3), independent of when the peer's Finished shows up.
func (c *Connection) ValidateRecord(arrivalLevel keyschedule.Level, frame recordcodec.CryptoFrame) (Result, error) {
	stream := c.streamFor(arrivalLevel)
	if stream == nil {
		return invalid(KindProtocolViolation, fmt.Sprintf("no CRYPTO stream at level %s", arrivalLevel))
	}

	check, err := stream.Check(frame)
	if err != nil {
		return invalid(KindProtocolViolation, err.Error())
	}
	switch check {
	case recordcodec.Repeat:
		return ResultIncomplete, nil
	case recordcodec.OutOfOrder:
		return ResultOutOfOrder, nil
	}

	rec, rest, err := recordcodec.ParseRecord(frame.Data)
	if err != nil || len(rest) != 0 {
		return invalid(KindProtocolViolation, "malformed handshake record")
	}

	switch {
	case c.Role == RoleServer && c.Level == keyschedule.Initial && rec.Type == recordcodec.ClientHello:
		return c.validateClientHello(stream, frame, rec)
	case c.Role == RoleClient && c.Level == keyschedule.Initial && rec.Type == recordcodec.ServerHello:
		return c.validateServerHello(stream, frame, rec)
	case c.Role == RoleClient && c.Level == keyschedule.Handshake && rec.Type == recordcodec.EncryptedExtensions:
		return c.validateEncryptedExtensions(stream, frame, rec)
	case c.Role == RoleClient && c.Level == keyschedule.Handshake && rec.Type == recordcodec.Certificate:
		return c.validateCertificate(stream, frame, rec)
	case c.Role == RoleClient && c.Level == keyschedule.Handshake && rec.Type == recordcodec.CertificateVerify:
		return c.validateCertificateVerify(stream, frame, rec)
	case c.Role == RoleClient && c.Level == keyschedule.Handshake && rec.Type == recordcodec.Finished:
		return c.validateServerFinishedOnClient(stream, frame, rec)
	case c.Role == RoleServer && c.Level == keyschedule.Protected && rec.Type == recordcodec.Finished:
		return c.validateClientFinishedOnServer(stream, frame, rec)
	default:
		return invalid(KindProtocolViolation, fmt.Sprintf("(%s, %s, %s) has no legal transition", c.Role, c.Level, rec.Type))
	}
}

func contains(list []uint16, want uint16) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func (c *Connection) validateClientHello(stream *recordcodec.Stream, frame recordcodec.CryptoFrame, rec recordcodec.Record) (Result, error) {
	ch, err := recordcodec.DecodeClientHello(rec.Body)
	if err != nil {
		return invalid(KindProtocolViolation, err.Error())
	}
	if !contains(ch.SupportedVersions, recordcodec.TLSVersion13) {
		return invalid(KindTLSVersion, "ClientHello missing TLS 1.3 in supported_versions")
	}
	if !contains(ch.CipherSuites, recordcodec.CipherAES128GCMSHA256) {
		return invalid(KindNoCipher, "ClientHello does not offer AES-128-GCM-SHA256")
	}
	if !contains(ch.SignatureAlgorithms, recordcodec.SignatureECDSASecp256r1SHA256) {
		return invalid(KindNoSignatureAlg, "ClientHello does not offer ecdsa_secp256r1_sha256")
	}
	var keyShare *recordcodec.KeyShareEntry
	for i := range ch.KeyShares {
		if ch.KeyShares[i].Group == recordcodec.GroupSecp256r1 {
			keyShare = &ch.KeyShares[i]
			break
		}
	}
	if keyShare == nil {
		return invalid(KindKeyShare, "ClientHello has no secp256r1 key_share entry")
	}

	peerPub, err := ecdh.P256().NewPublicKey(keyShare.Data)
	if err != nil {
		return invalid(KindKeyShare, "malformed key_share point: "+err.Error())
	}

	c.TLSVersion = recordcodec.TLSVersion13
	c.Cipher = recordcodec.CipherAES128GCMSHA256
	c.SignatureAlg = recordcodec.SignatureECDSASecp256r1SHA256
	c.Group = recordcodec.GroupSecp256r1
	c.PeerPubKey = peerPub
	c.QUICVersion = ch.QUICInitialVersion
	c.Params = ch.QUICParams

	stream.Commit(frame)
	return ResultValid, nil
}

func (c *Connection) validateServerHello(stream *recordcodec.Stream, frame recordcodec.CryptoFrame, rec recordcodec.Record) (Result, error) {
	sh, err := recordcodec.DecodeServerHello(rec.Body)
	if err != nil {
		return invalid(KindProtocolViolation, err.Error())
	}
	if sh.SupportedVersion != recordcodec.TLSVersion13 {
		return invalid(KindTLSVersion, "ServerHello did not select TLS 1.3")
	}
	if sh.CipherSuite != recordcodec.CipherAES128GCMSHA256 {
		return invalid(KindNoCipher, "ServerHello did not select AES-128-GCM-SHA256")
	}
	if sh.KeyShare.Group != recordcodec.GroupSecp256r1 {
		return invalid(KindKeyShare, "ServerHello key_share is not secp256r1")
	}
	peerPub, err := ecdh.P256().NewPublicKey(sh.KeyShare.Data)
	if err != nil {
		return invalid(KindKeyShare, "malformed key_share point: "+err.Error())
	}

	c.TLSVersion = recordcodec.TLSVersion13
	c.Cipher = recordcodec.CipherAES128GCMSHA256
	c.PeerPubKey = peerPub

	stream.Commit(frame)
	c.Level = keyschedule.Handshake
	return ResultValid, nil
}

func (c *Connection) validateEncryptedExtensions(stream *recordcodec.Stream, frame recordcodec.CryptoFrame, rec recordcodec.Record) (Result, error) {
	ee, err := recordcodec.DecodeEncryptedExtensions(rec.Body)
	if err != nil {
		return invalid(KindProtocolViolation, err.Error())
	}
	if ee.SignatureAlgorithm != recordcodec.SignatureECDSASecp256r1SHA256 {
		return invalid(KindNoSignatureAlg, "EncryptedExtensions negotiated an unsupported signature algorithm")
	}
	if ee.Group != recordcodec.GroupSecp256r1 {
		return invalid(KindNoGroup, "EncryptedExtensions negotiated an unsupported group")
	}
	if ee.QUICNegotiatedVersion != c.QUICVersion {
		return invalid(KindInvalidParams, "EncryptedExtensions quic_version does not match what the client offered")
	}

	c.SignatureAlg = ee.SignatureAlgorithm
	c.Group = ee.Group
	c.Params = ee.QUICParams

	stream.Commit(frame)
	return ResultIncomplete, nil
}

func (c *Connection) validateCertificate(stream *recordcodec.Stream, frame recordcodec.CryptoFrame, rec recordcodec.Record) (Result, error) {
	cm, err := recordcodec.DecodeCertificateMessage(rec.Body)
	if err != nil {
		return invalid(KindProtocolViolation, err.Error())
	}
	if len(cm.Chain) == 0 {
		return invalid(KindCert, "Certificate message carries an empty chain")
	}

	certs := make([]*x509.Certificate, 0, len(cm.Chain))
	for _, der := range cm.Chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return invalid(KindCert, "malformed certificate: "+err.Error())
		}
		certs = append(certs, cert)
	}

	if len(certs) == 1 {
		if err := certs[0].CheckSignatureFrom(certs[0]); err != nil {
			return invalid(KindCert, "single-certificate chain is not self-signed: "+err.Error())
		}
	} else {
		for i := 0; i < len(certs)-1; i++ {
			if err := certs[i].CheckSignatureFrom(certs[i+1]); err != nil {
				return invalid(KindCert, fmt.Sprintf("certificate %d not signed by certificate %d: %v", i, i+1, err))
			}
		}
	}

	c.CertChain = certs
	c.LeafCert = certs[0]

	stream.Commit(frame)
	return ResultIncomplete, nil
}

func (c *Connection) validateCertificateVerify(stream *recordcodec.Stream, frame recordcodec.CryptoFrame, rec recordcodec.Record) (Result, error) {
	cv, err := recordcodec.DecodeCertificateVerifyMessage(rec.Body)
	if err != nil {
		return invalid(KindProtocolViolation, err.Error())
	}
	if cv.Algorithm != recordcodec.SignatureECDSASecp256r1SHA256 {
		return invalid(KindCertVerify, "CertificateVerify used an unsupported algorithm")
	}
	if c.LeafCert == nil {
		return invalid(KindCertVerify, "CertificateVerify arrived before Certificate")
	}
	pub, ok := c.LeafCert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return invalid(KindCertVerify, "leaf certificate does not carry an ECDSA public key")
	}

	digest := c.transcriptHash()
	if !ecdsa.VerifyASN1(pub, digest[:], cv.Signature) {
		return invalid(KindCertVerify, "signature does not verify under the leaf certificate's public key")
	}

	stream.Commit(frame)
	return ResultValid, nil
}

func (c *Connection) validateServerFinishedOnClient(stream *recordcodec.Stream, frame recordcodec.CryptoFrame, rec recordcodec.Record) (Result, error) {
	f := recordcodec.DecodeFinishedMessage(rec.Body)
	if !c.Schedule.Handshake.Installed() {
		return invalid(KindFinished, "handshake keys not installed")
	}

	finKey := keyschedule.FinishedKey(c.Schedule.Handshake.Server.Secret)
	digest := c.transcriptHash()
	expected := hmac.New(sha256.New, finKey)
	expected.Write(digest[:])
	if !hmac.Equal(expected.Sum(nil), f.VerifyData) {
		return invalid(KindFinished, "server Finished MAC does not verify")
	}

	stream.Commit(frame)
	c.handshakeFinishedRecvd = true
	return ResultValid, nil
}

func (c *Connection) validateClientFinishedOnServer(stream *recordcodec.Stream, frame recordcodec.CryptoFrame, rec recordcodec.Record) (Result, error) {
	f := recordcodec.DecodeFinishedMessage(rec.Body)
	if !c.Schedule.Handshake.Installed() {
		return invalid(KindFinished, "handshake keys not installed")
	}

	finKey := keyschedule.FinishedKey(c.Schedule.Handshake.Client.Secret)
	digest := c.transcriptHash()
	expected := hmac.New(sha256.New, finKey)
	expected.Write(digest[:])
	if !hmac.Equal(expected.Sum(nil), f.VerifyData) {
		return invalid(KindFinished, "client Finished MAC does not verify")
	}

	stream.Commit(frame)
	stream.ClearTranscript()
	// The server has now sent and verified both sides' Finished; the
	// handshake secrets have no further use (spec.md §3's lifecycle clause).
	c.Schedule.ZeroRetired(keyschedule.Handshake)
	return ResultValid, nil
}
