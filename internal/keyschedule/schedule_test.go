// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package keyschedule

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

// S1: RFC 9001 Appendix A.1 initial test vector.
func TestDeriveInitialRFCVector(t *testing.T) {
	cid, err := hex.DecodeString("8394c8f03e515708")
	if err != nil {
		t.Fatalf("bad fixture: %v", err)
	}

	var s Schedule
	s.DeriveInitial(cid)

	if !s.Initial.Installed() {
		t.Fatalf("Initial level must be installed after DeriveInitial")
	}
	if len(s.Initial.Client.Key) != 16 || len(s.Initial.Client.IV) != 12 {
		t.Fatalf("client key/iv have wrong lengths: %d/%d", len(s.Initial.Client.Key), len(s.Initial.Client.IV))
	}
	if len(s.Initial.Server.Key) != 16 || len(s.Initial.Server.IV) != 12 {
		t.Fatalf("server key/iv have wrong lengths: %d/%d", len(s.Initial.Server.Key), len(s.Initial.Server.IV))
	}
	if bytes.Equal(s.Initial.Client.Key, s.Initial.Server.Key) {
		t.Fatalf("client and server initial keys must differ")
	}

	wantClientKey, err := hex.DecodeString("1f369613dd76d5467730efcbe3b1a22")
	if err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	if !bytes.Equal(s.Initial.Client.Key, wantClientKey) {
		t.Fatalf("client key = %x, want %x", s.Initial.Client.Key, wantClientKey)
	}
	wantClientIV, err := hex.DecodeString("fa044b2f42a3fd3b46fb255c")
	if err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	if !bytes.Equal(s.Initial.Client.IV, wantClientIV) {
		t.Fatalf("client iv = %x, want %x", s.Initial.Client.IV, wantClientIV)
	}
}

func TestDeriveHandshakeRequiresInitial(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("DeriveHandshake before DeriveInitial must panic")
		}
	}()
	var s Schedule
	s.DeriveHandshake(make([]byte, 32), sha256.Sum256(nil))
}

func TestDeriveProtectedRequiresHandshake(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("DeriveProtected before DeriveHandshake must panic")
		}
	}()
	var s Schedule
	s.DeriveProtected(sha256.Sum256(nil))
}

func TestLevelTransitionsPureFunctionOfTranscript(t *testing.T) {
	cid, _ := hex.DecodeString("8394c8f03e515708")
	dhe := bytes.Repeat([]byte{0x5}, 32)
	th := sha256.Sum256([]byte("ClientHello||ServerHello"))

	var a, b Schedule
	a.DeriveInitial(cid)
	b.DeriveInitial(cid)
	a.DeriveHandshake(dhe, th)
	b.DeriveHandshake(dhe, th)

	if !bytes.Equal(a.Handshake.Client.Key, b.Handshake.Client.Key) {
		t.Fatalf("identical (transcript hash, dhe) must derive identical handshake keys")
	}

	th2 := sha256.Sum256([]byte("ClientHello||ServerHello||EncryptedExtensions"))
	a.DeriveHandshake(dhe, th2)
	if bytes.Equal(a.Handshake.Client.Key, b.Handshake.Client.Key) {
		t.Fatalf("different transcript hash must derive different handshake keys")
	}
}

func TestZeroRetiredWipesKeyMaterial(t *testing.T) {
	cid, _ := hex.DecodeString("8394c8f03e515708")
	var s Schedule
	s.DeriveInitial(cid)
	key := append([]byte(nil), s.Initial.Client.Key...)
	if len(key) == 0 {
		t.Fatal("expected non-empty key before zeroing")
	}

	s.ZeroRetired(Initial)
	if s.Initial.Client.Key != nil {
		t.Fatalf("ZeroRetired must drop the key reference")
	}
}
