// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package recordcodec implements the QUIC CRYPTO-frame wire format, the TLS
// 1.3 handshake record encoding QUIC carries inside it, the QUIC transport
// parameters extension (codepoint 0xFFA5), and the per-level CRYPTO stream
// ordering discipline (spec.md §4.4).
//
// All bit-packing -- varints, the two-bit length-prefix scheme, the packet-
// number length bits -- goes through this single tested reader/writer
// rather than ad-hoc byte slicing, per spec.md §9's design note.
package recordcodec

import (
	"encoding/binary"
	"fmt"
)

// Varint length-prefix classes (RFC 9000 §16): the two high bits of the
// first byte select how many total bytes encode the value, and how many
// payload bits are available.
const (
	varint1ByteMax = 1<<6 - 1
	varint2ByteMax = 1<<14 - 1
	varint4ByteMax = 1<<30 - 1
	varint8ByteMax = 1<<62 - 1
)

// AppendVarint encodes v in QUIC's variable-length integer format and
// appends it to dst.
func AppendVarint(dst []byte, v uint64) ([]byte, error) {
	switch {
	case v <= varint1ByteMax:
		return append(dst, byte(v)), nil
	case v <= varint2ByteMax:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v))
		b[0] |= 0x40
		return append(dst, b[:]...), nil
	case v <= varint4ByteMax:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v))
		b[0] |= 0x80
		return append(dst, b[:]...), nil
	case v <= varint8ByteMax:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v)
		b[0] |= 0xC0
		return append(dst, b[:]...), nil
	default:
		return nil, fmt.Errorf("recordcodec: varint %d exceeds 62-bit range", v)
	}
}

// ReadVarint decodes a QUIC varint from the front of b, returning the value
// and the remaining bytes.
func ReadVarint(b []byte) (v uint64, rest []byte, err error) {
	if len(b) == 0 {
		return 0, nil, fmt.Errorf("recordcodec: empty varint")
	}
	n := 1 << (b[0] >> 6)
	if len(b) < n {
		return 0, nil, fmt.Errorf("recordcodec: truncated varint, need %d bytes, have %d", n, len(b))
	}
	buf := make([]byte, n)
	copy(buf, b[:n])
	buf[0] &= 0x3F

	switch n {
	case 1:
		v = uint64(buf[0])
	case 2:
		v = uint64(binary.BigEndian.Uint16(buf))
	case 4:
		v = uint64(binary.BigEndian.Uint32(buf))
	case 8:
		v = binary.BigEndian.Uint64(buf)
	}
	return v, b[n:], nil
}
