// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import "testing"

func TestTransportParametersRoundTrip(t *testing.T) {
	p := DefaultTransportParameters()
	p.MaxPacketSize = 1200
	p.DisableMigration = true
	p.HasStatelessResetToken = true
	for i := range p.StatelessResetToken {
		p.StatelessResetToken[i] = byte(i)
	}

	enc, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeTransportParameters(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.MaxPacketSize != 1200 {
		t.Fatalf("max_packet_size = %d, want 1200", got.MaxPacketSize)
	}
	if !got.DisableMigration {
		t.Fatalf("disable_migration not round-tripped")
	}
	if !got.HasStatelessResetToken || got.StatelessResetToken != p.StatelessResetToken {
		t.Fatalf("stateless_reset_token not round-tripped")
	}
	if got.InitialMaxStreamData != 5000 || got.InitialMaxData != 5000 {
		t.Fatalf("defaults not preserved: %+v", got)
	}
}

func TestMaxPacketSizeBelowMinimumRejected(t *testing.T) {
	p := DefaultTransportParameters()
	p.MaxPacketSize = 100
	enc, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := DecodeTransportParameters(enc); err == nil {
		t.Fatalf("expected error decoding max_packet_size below 1200")
	}
}

func TestClientHelloExtensionRoundTrip(t *testing.T) {
	p := DefaultTransportParameters()
	enc, err := EncodeClientHelloExtension(1, p)
	if err != nil {
		t.Fatalf("EncodeClientHelloExtension: %v", err)
	}
	version, got, err := DecodeClientHelloExtension(enc)
	if err != nil {
		t.Fatalf("DecodeClientHelloExtension: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}
	if got.MaxPacketSize != p.MaxPacketSize {
		t.Fatalf("params not round-tripped: %+v", got)
	}
}

func TestEncryptedExtensionsExtensionRoundTrip(t *testing.T) {
	p := DefaultTransportParameters()
	enc, err := EncodeEncryptedExtensionsExtension(1, nil, p)
	if err != nil {
		t.Fatalf("EncodeEncryptedExtensionsExtension: %v", err)
	}
	version, others, got, err := DecodeEncryptedExtensionsExtension(enc)
	if err != nil {
		t.Fatalf("DecodeEncryptedExtensionsExtension: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}
	if len(others) != 0 {
		t.Fatalf("expected no other_versions, got %v", others)
	}
	if got.InitialMaxBidiStreams != p.InitialMaxBidiStreams {
		t.Fatalf("params not round-tripped: %+v", got)
	}
}

func TestDecodeTransportParametersUnknownID(t *testing.T) {
	var b []byte
	b = append(b, 0xFF, 0xFE, 0x00, 0x00) // id=0xFFFE, len=0
	if _, err := DecodeTransportParameters(b); err == nil {
		t.Fatalf("expected error for unknown transport parameter id")
	}
}
