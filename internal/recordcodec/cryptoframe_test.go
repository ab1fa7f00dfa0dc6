// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import (
	"bytes"
	"testing"
)

func TestCryptoFrameRoundTrip(t *testing.T) {
	data := []byte("a TLS handshake record body")
	enc, err := EncodeCryptoFrame(17, data)
	if err != nil {
		t.Fatalf("EncodeCryptoFrame: %v", err)
	}

	frame, rest, err := ParseCryptoFrame(enc)
	if err != nil {
		t.Fatalf("ParseCryptoFrame: %v", err)
	}
	if frame.Offset != 17 {
		t.Fatalf("offset = %d, want 17", frame.Offset)
	}
	if !bytes.Equal(frame.Data, data) {
		t.Fatalf("data = %q, want %q", frame.Data, data)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected trailing bytes: %x", rest)
	}
}

func TestCryptoFrameWithTrailingBytes(t *testing.T) {
	frame1, _ := EncodeCryptoFrame(0, []byte("first"))
	frame2, _ := EncodeCryptoFrame(5, []byte("second"))

	buf := append(append([]byte(nil), frame1...), frame2...)

	parsed1, rest, err := ParseCryptoFrame(buf)
	if err != nil {
		t.Fatalf("parse first: %v", err)
	}
	if string(parsed1.Data) != "first" {
		t.Fatalf("first frame data = %q", parsed1.Data)
	}

	parsed2, rest, err := ParseCryptoFrame(rest)
	if err != nil {
		t.Fatalf("parse second: %v", err)
	}
	if string(parsed2.Data) != "second" {
		t.Fatalf("second frame data = %q", parsed2.Data)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected leftover: %x", rest)
	}
}

func TestParseCryptoFrameWrongType(t *testing.T) {
	if _, _, err := ParseCryptoFrame([]byte{0x01, 0x00, 0x00}); err == nil {
		t.Fatalf("expected error for non-CRYPTO frame type byte")
	}
}
