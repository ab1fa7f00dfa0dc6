// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package keyschedule

import (
	"crypto/sha256"

	"github.com/qcryptocore/qc-server/internal/kdf"
)

// InitialSaltV1 is the RFC 9001 §5.2 QUIC v1 initial salt, confirmed
// against other_examples/55945b2f_ooni-netem__quiccrypto.go.go's
// computeSecrets. spec.md §9(c) flags the reference source's salt as a
// non-standard placeholder; this repository uses the RFC value exclusively.
var InitialSaltV1 = []byte{
	0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3, 0x4d, 0x17,
	0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad, 0xcc, 0xbb, 0x7f, 0x0a,
}

// Schedule owns every level's key material for one connection plus the
// intermediate secrets (initial_secret, hs_secret) needed to derive later
// levels. It does not itself track which level is "current" -- that is a
// property of the handshake state machine, which calls the Derive*
// methods at the transitions spec.md §4.3 defines.
type Schedule struct {
	Initial   LevelKeys
	Early     DirectionalKeys // client-only 0-RTT material
	Handshake LevelKeys
	Protected LevelKeys

	initialSecret []byte
	hsSecret      []byte
}

func directional(secret []byte) DirectionalKeys {
	return DirectionalKeys{
		Secret:   secret,
		Key:      kdf.Key(secret),
		IV:       kdf.IV(secret),
		PNSecret: kdf.ExpandLabel(secret, "quic pn", nil, 16),
	}
}

// DeriveInitial installs the Initial level from cidInitial, the client's
// destination connection ID at the first Initial packet (spec.md §3,
// invariant 5: both roles salt the extract with the same value).
func (s *Schedule) DeriveInitial(cidInitial []byte) {
	s.initialSecret = kdf.Extract(cidInitial, InitialSaltV1)

	clientSecret := kdf.ExpandLabel(s.initialSecret, "client in", nil, kdf.HashSize)
	serverSecret := kdf.ExpandLabel(s.initialSecret, "server in", nil, kdf.HashSize)

	s.Initial.Client = directional(clientSecret)
	s.Initial.Server = directional(serverSecret)
}

// DeriveEarly installs the client-only 0-RTT material from the Initial
// secret, following the same "client in"-rooted derivation as the Initial
// level but keyed with the early-data label used by this repository's
// single-suite QUIC-TLS profile.
func (s *Schedule) DeriveEarly() {
	if s.initialSecret == nil {
		panic("keyschedule: DeriveEarly called before DeriveInitial")
	}
	earlySecret := kdf.ExpandLabel(s.initialSecret, "c e traffic", nil, kdf.HashSize)
	s.Early = directional(earlySecret)
}

// DeriveHandshake installs the Handshake level. dhe is the ECDH shared
// secret and transcriptHash is SHA256 of the transcript through ServerHello
// (spec.md §4.3).
func (s *Schedule) DeriveHandshake(dhe []byte, transcriptHash [sha256.Size]byte) {
	if s.initialSecret == nil {
		panic("keyschedule: DeriveHandshake called before DeriveInitial")
	}
	derived := kdf.ExpandLabel(s.initialSecret, "derived", nil, kdf.HashSize)
	s.hsSecret = kdf.Extract(dhe, derived)

	clientSecret := kdf.ExpandLabel(s.hsSecret, "c hs traffic", transcriptHash[:], kdf.HashSize)
	serverSecret := kdf.ExpandLabel(s.hsSecret, "s hs traffic", transcriptHash[:], kdf.HashSize)

	s.Handshake.Client = directional(clientSecret)
	s.Handshake.Server = directional(serverSecret)
}

// DeriveProtected installs the Protected (1-RTT) level. transcriptHash is
// SHA256 of the transcript through the Finished message that freezes this
// boundary (client side: server Finished; server side: its own emitted
// Finished), per spec.md §4.3.
func (s *Schedule) DeriveProtected(transcriptHash [sha256.Size]byte) {
	if s.hsSecret == nil {
		panic("keyschedule: DeriveProtected called before DeriveHandshake")
	}
	zeros := make([]byte, kdf.HashSize)
	derived2 := kdf.ExpandLabel(s.hsSecret, "derived", nil, kdf.HashSize)
	master := kdf.Extract(zeros, derived2)

	clientSecret := kdf.ExpandLabel(master, "c ap traffic", transcriptHash[:], kdf.HashSize)
	serverSecret := kdf.ExpandLabel(master, "s ap traffic", transcriptHash[:], kdf.HashSize)

	s.Protected.Client = directional(clientSecret)
	s.Protected.Server = directional(serverSecret)
}

// FinishedKey derives the "finished" label MAC key from a handshake
// traffic secret, used by both the client (verifying the server's
// Finished) and the server (verifying the client's Finished).
func FinishedKey(trafficSecret []byte) []byte {
	return kdf.ExpandLabel(trafficSecret, "finished", nil, kdf.HashSize)
}

// ZeroRetired wipes a level's key material. Callers invoke this once the
// next level has been installed, per spec.md §3's "Lifecycle" clause.
func (s *Schedule) ZeroRetired(l Level) {
	switch l {
	case Initial:
		s.Initial.Zero()
		zero(s.initialSecret)
	case EarlyData:
		s.Early.Zero()
	case Handshake:
		s.Handshake.Zero()
		zero(s.hsSecret)
	}
}
