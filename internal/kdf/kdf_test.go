// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// External test package so this file can import internal/keyschedule for
// the published initial salt without creating an import cycle (keyschedule
// itself imports kdf).
package kdf_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/qcryptocore/qc-server/internal/kdf"
	"github.com/qcryptocore/qc-server/internal/keyschedule"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex fixture %q: %v", s, err)
	}
	return b
}

// TestInitialSecretVectors checks the S1 published vector (spec.md §8,
// RFC 9001 Appendix A.1/A.2): initial_secret and the client-direction
// Initial key/IV derived from dcid=0x8394c8f03e515708.
func TestInitialSecretVectors(t *testing.T) {
	dcid := mustHex(t, "8394c8f03e515708")

	initialSecret := kdf.Extract(dcid, keyschedule.InitialSaltV1)
	wantInitialSecret := mustHex(t, "7db5df06e7a69e432496adedb00851923595221596ae2ae9fb8115c1e9ed0a44")
	if !bytes.Equal(initialSecret, wantInitialSecret) {
		t.Fatalf("initial_secret = %x, want %x", initialSecret, wantInitialSecret)
	}

	clientInitial := kdf.ExpandLabel(initialSecret, "client in", nil, kdf.HashSize)
	wantClientInitial := mustHex(t, "c00cf151ca5be075ed0ebfb5c80323c42d6b7db67881289af4008f1f6c357aea")
	if !bytes.Equal(clientInitial, wantClientInitial) {
		t.Fatalf("client_initial_secret = %x, want %x", clientInitial, wantClientInitial)
	}

	clientKey := kdf.Key(clientInitial)
	wantClientKey := mustHex(t, "1f369613dd76d5467730efcbe3b1a22d")
	if !bytes.Equal(clientKey, wantClientKey) {
		t.Fatalf("client key = %x, want %x", clientKey, wantClientKey)
	}

	clientIV := kdf.IV(clientInitial)
	wantClientIV := mustHex(t, "fa044b2f42a3fd3b46fb255c")
	if !bytes.Equal(clientIV, wantClientIV) {
		t.Fatalf("client iv = %x, want %x", clientIV, wantClientIV)
	}
}

func TestExpandLabelNilAndEmptyContextMatch(t *testing.T) {
	secret := bytes.Repeat([]byte{0x11}, kdf.HashSize)

	a := kdf.ExpandLabel(secret, "derived", nil, 32)
	b := kdf.ExpandLabel(secret, "derived", []byte{}, 32)
	if !bytes.Equal(a, b) {
		t.Fatalf("nil and empty-slice context must derive identically: %x vs %x", a, b)
	}
}

func TestExpandLabelDeterministic(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, kdf.HashSize)
	a := kdf.ExpandLabel(secret, "key", nil, 16)
	b := kdf.ExpandLabel(secret, "key", nil, 16)
	if !bytes.Equal(a, b) {
		t.Fatalf("expand_label must be a pure function of its inputs")
	}
}

func TestExpandLabelDistinctLengthsDiverge(t *testing.T) {
	secret := bytes.Repeat([]byte{0x7}, kdf.HashSize)
	key := kdf.ExpandLabel(secret, "key", nil, 16)
	iv := kdf.ExpandLabel(secret, "iv", nil, 12)
	if bytes.Equal(key[:12], iv) {
		t.Fatalf("key and iv expansions must not collide despite shared secret")
	}
}
