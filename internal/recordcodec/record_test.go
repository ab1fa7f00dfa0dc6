// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import (
	"bytes"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	rec := Record{Type: Finished, Body: []byte("hmac bytes go here")}
	enc, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, rest, err := ParseRecord(enc)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if got.Type != Finished {
		t.Fatalf("type = %v, want Finished", got.Type)
	}
	if !bytes.Equal(got.Body, rec.Body) {
		t.Fatalf("body = %q, want %q", got.Body, rec.Body)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected trailing bytes")
	}
}

func TestRecordTypeString(t *testing.T) {
	cases := map[RecordType]string{
		ClientHello:         "ClientHello",
		ServerHello:         "ServerHello",
		EncryptedExtensions: "EncryptedExtensions",
		Certificate:         "Certificate",
		CertificateVerify:   "CertificateVerify",
		Finished:            "Finished",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}

func TestParseRecordTruncated(t *testing.T) {
	if _, _, err := ParseRecord([]byte{byte(Finished), 0, 0, 5, 'a'}); err == nil {
		t.Fatalf("expected error for body shorter than declared length")
	}
}
