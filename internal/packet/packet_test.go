// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package packet

import (
	"bytes"
	"testing"

	"github.com/qcryptocore/qc-server/internal/keyschedule"
)

func testKeys(t *testing.T) *Keys {
	t.Helper()
	var s keyschedule.Schedule
	s.DeriveInitial([]byte{0x83, 0x94, 0xc8, 0xf0, 0x3e, 0x51, 0x57, 0x08})
	k, err := NewKeys(s.Initial.Client)
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	return k
}

func TestSealOpenRoundTrip(t *testing.T) {
	k := testKeys(t)
	header := []byte{0xC3, 1, 2, 3, 4}
	plaintext := []byte("ClientHello goes here, padded to be long enough to sample safely")

	for _, pktNum := range []uint64{0, 1, 127, 128, 300, 70000} {
		sealed, err := k.Seal(header, plaintext, pktNum, 0)
		if err != nil {
			t.Fatalf("Seal(%d): %v", pktNum, err)
		}
		got, plain, err := k.Open(sealed, len(header), 0)
		if err != nil {
			t.Fatalf("Open(%d): %v", pktNum, err)
		}
		if got != pktNum {
			t.Fatalf("recovered pktNum = %d, want %d", got, pktNum)
		}
		if !bytes.Equal(plain, plaintext) {
			t.Fatalf("plaintext = %q, want %q", plain, plaintext)
		}
	}
}

func TestSealDeterministic(t *testing.T) {
	k := testKeys(t)
	header := []byte{0xC3, 1, 2, 3, 4}
	plaintext := []byte("same state, same packet number, same bytes out")

	a, err := k.Seal(header, plaintext, 5, 0)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := k.Seal(header, plaintext, 5, 0)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("sealing the same (pt, pn) twice produced different bytes")
	}
}

func TestOpenTamperedPayloadFails(t *testing.T) {
	k := testKeys(t)
	header := []byte{0xC3, 1, 2, 3, 4}
	plaintext := []byte("tamper test plaintext padded out long enough")

	sealed, err := k.Seal(header, plaintext, 42, 0)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, _, err := k.Open(tampered, len(header), 0); err == nil {
		t.Fatalf("expected decrypt error for tampered payload")
	}
}

func TestUntruncatePNPicksClosestCandidate(t *testing.T) {
	// A 1-byte PN of 5 following a largest-received of 300 should recover to
	// whichever full value ending in ...05 is nearest 301, not literally 5.
	full := untruncatePN([]byte{0x05}, 1, 300)
	if full < 256 {
		t.Fatalf("expected untruncation to pick a nearby large value, got %d", full)
	}
}
