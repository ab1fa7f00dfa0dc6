// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 63, 64, 16383, 16384, 1073741823, 1073741824, 1<<62 - 1}
	for _, v := range cases {
		enc, err := AppendVarint(nil, v)
		if err != nil {
			t.Fatalf("AppendVarint(%d): %v", v, err)
		}
		got, rest, err := ReadVarint(enc)
		if err != nil {
			t.Fatalf("ReadVarint(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
		if len(rest) != 0 {
			t.Fatalf("round trip %d: unexpected leftover bytes %x", v, rest)
		}
	}
}

func TestVarintWidths(t *testing.T) {
	widths := map[uint64]int{0: 1, 63: 1, 64: 2, 16383: 2, 16384: 4, 1073741823: 4, 1073741824: 8}
	for v, want := range widths {
		enc, err := AppendVarint(nil, v)
		if err != nil {
			t.Fatalf("AppendVarint(%d): %v", v, err)
		}
		if len(enc) != want {
			t.Fatalf("AppendVarint(%d) width = %d, want %d", v, len(enc), want)
		}
	}
}

func TestAppendVarintOutOfRange(t *testing.T) {
	if _, err := AppendVarint(nil, 1<<62); err == nil {
		t.Fatalf("expected error for value exceeding 62-bit range")
	}
}

func TestReadVarintTruncated(t *testing.T) {
	if _, _, err := ReadVarint([]byte{0x40}); err == nil {
		t.Fatalf("expected error for truncated 2-byte varint")
	}
}
