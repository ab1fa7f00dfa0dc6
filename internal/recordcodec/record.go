// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import "fmt"

// RecordType is a TLS 1.3 handshake message type, restricted to the six
// this repository's QUIC-TLS profile ever sends (spec.md §4.4).
type RecordType byte

const (
	ClientHello         RecordType = 1
	ServerHello         RecordType = 2
	EncryptedExtensions RecordType = 8
	Certificate         RecordType = 11
	CertificateVerify   RecordType = 15
	Finished            RecordType = 20
)

func (t RecordType) String() string {
	switch t {
	case ClientHello:
		return "ClientHello"
	case ServerHello:
		return "ServerHello"
	case EncryptedExtensions:
		return "EncryptedExtensions"
	case Certificate:
		return "Certificate"
	case CertificateVerify:
		return "CertificateVerify"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("RecordType(%d)", byte(t))
	}
}

// Record is one TLS handshake record: {type:u8, length:u24, body}.
type Record struct {
	Type RecordType
	Body []byte
}

const maxRecordBodyLen = 1<<24 - 1

// Encode serializes r as a {type, length:u24, body} record.
func (r Record) Encode() ([]byte, error) {
	if len(r.Body) > maxRecordBodyLen {
		return nil, fmt.Errorf("recordcodec: record body too long: %d", len(r.Body))
	}
	out := make([]byte, 0, 4+len(r.Body))
	out = append(out, byte(r.Type))
	out = append(out, byte(len(r.Body)>>16), byte(len(r.Body)>>8), byte(len(r.Body)))
	out = append(out, r.Body...)
	return out, nil
}

// ParseRecord parses one TLS handshake record from the front of b,
// returning the record and the unconsumed remainder.
func ParseRecord(b []byte) (rec Record, rest []byte, err error) {
	if len(b) < 4 {
		return Record{}, nil, fmt.Errorf("recordcodec: record header truncated")
	}
	typ := RecordType(b[0])
	length := int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	b = b[4:]
	if len(b) < length {
		return Record{}, nil, fmt.Errorf("recordcodec: record body truncated, need %d have %d", length, len(b))
	}
	body := b[:length]
	return Record{Type: typ, Body: body}, b[length:], nil
}
