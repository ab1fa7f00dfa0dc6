// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package handshake implements the role-aware TLS 1.3 state machine that
// drives a QUIC connection's crypto state: the external operations from
// spec.md §6 (init, encode_crypto_record, validate_record, advance_keys) are
// methods on Connection, built on top of internal/keyschedule for key
// derivation and internal/recordcodec for wire encoding.
//
// Grounded on the session-object pattern in
// kgiusti-go-fdo-server/internal/fdo-server's per-device session state, and
// on the role-dispatch tables in other_examples' QUIC-TLS crypto_setup
// files: a single struct owns every level's material and exposes a small
// set of methods the connection layer calls in sequence.
package handshake

import (
	"crypto"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/qcryptocore/qc-server/internal/keyschedule"
	"github.com/qcryptocore/qc-server/internal/recordcodec"
)

// Role distinguishes a QUIC client from a QUIC server; the validator's
// dispatch table (spec.md §4.5) is keyed partly on this value.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Connection is one QUIC connection's crypto state (spec.md §3). Zero value
// is not usable; construct with New.
type Connection struct {
	Role        Role
	Level       keyschedule.Level
	CIDInitial  []byte
	QUICVersion uint32

	Schedule keyschedule.Schedule
	initial  recordcodec.Stream
	hs       recordcodec.Stream

	TLSVersion   uint16
	Cipher       uint16
	SignatureAlg uint16
	Group        uint16

	PrivKey    *ecdh.PrivateKey
	PeerPubKey *ecdh.PublicKey

	CertChain   []*x509.Certificate
	LeafCert    *x509.Certificate
	CertPrivKey crypto.Signer

	Params recordcodec.TransportParameters

	handshakeFinishedSent  bool // server: it has emitted its own Finished
	handshakeFinishedRecvd bool // client: it has validated the server's Finished
}

// New initializes cid_initial and installs the Initial level (spec.md §6's
// init operation). The caller supplies an ECDHE keypair when it already has
// one (e.g. a resumed identity); passing a nil priv generates one on
// secp256r1.
func New(role Role, cidInitial []byte, priv *ecdh.PrivateKey) (*Connection, error) {
	if len(cidInitial) == 0 {
		return nil, fmt.Errorf("handshake: cid_initial must be non-empty")
	}
	if priv == nil {
		var err error
		priv, err = ecdh.P256().GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("handshake: generate ECDHE key: %w", err)
		}
	}
	c := &Connection{
		Role:       role,
		Level:      keyschedule.Initial,
		CIDInitial: append([]byte(nil), cidInitial...),
		PrivKey:    priv,
	}
	c.Schedule.DeriveInitial(c.CIDInitial)
	return c, nil
}

// streamFor returns the CRYPTO stream that carries records at level l. Only
// Initial and Handshake carry TLS handshake records in this profile; 0-RTT
// and Protected carry application data, which is out of this core's scope
// (spec.md §1's "Deliberately out of scope" list).
func (c *Connection) streamFor(l keyschedule.Level) *recordcodec.Stream {
	switch l {
	case keyschedule.Initial:
		return &c.initial
	case keyschedule.Handshake:
		return &c.hs
	default:
		return nil
	}
}

// InitialStream exposes the Initial-level CRYPTO stream for callers that
// need its send offset or transcript directly (e.g. the packet layer
// choosing an AAD, or tests asserting against S1/S2 vectors).
func (c *Connection) InitialStream() *recordcodec.Stream { return &c.initial }

// HandshakeStream exposes the Handshake-level CRYPTO stream.
func (c *Connection) HandshakeStream() *recordcodec.Stream { return &c.hs }

// transcriptHash returns SHA-256 of the full handshake transcript so far:
// the Initial-level stream (ClientHello, ServerHello) concatenated with the
// Handshake-level stream (EncryptedExtensions through Finished), in TLS
// canonical order. spec.md §3 defines transcript as this single cumulative
// buffer; CertificateVerify, both sides' Finished, and the application
// traffic secrets all hash over it so that they bind the negotiated key
// shares and cipher choice carried in ClientHello/ServerHello, not just the
// Handshake-level records that follow them.
func (c *Connection) transcriptHash() [sha256.Size]byte {
	full := append(append([]byte(nil), c.initial.Transcript()...), c.hs.Transcript()...)
	return sha256.Sum256(full)
}
