// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import "fmt"

// CryptoFrameType is the QUIC frame type byte identifying a CRYPTO frame.
const CryptoFrameType = 0x18

// CryptoFrame is a parsed CRYPTO frame: an offset into the level's CRYPTO
// stream plus the TLS handshake bytes carried at that offset.
type CryptoFrame struct {
	Offset uint64
	Data   []byte
}

// EncodeCryptoFrame produces a CRYPTO frame carrying data at offset.
func EncodeCryptoFrame(offset uint64, data []byte) ([]byte, error) {
	out := []byte{CryptoFrameType}
	var err error
	out, err = AppendVarint(out, offset)
	if err != nil {
		return nil, err
	}
	out, err = AppendVarint(out, uint64(len(data)))
	if err != nil {
		return nil, err
	}
	return append(out, data...), nil
}

// ParseCryptoFrame parses one CRYPTO frame from the front of b, returning
// the frame and the unconsumed remainder.
func ParseCryptoFrame(b []byte) (frame CryptoFrame, rest []byte, err error) {
	if len(b) == 0 || b[0] != CryptoFrameType {
		return CryptoFrame{}, nil, fmt.Errorf("recordcodec: not a CRYPTO frame")
	}
	b = b[1:]

	offset, b, err := ReadVarint(b)
	if err != nil {
		return CryptoFrame{}, nil, fmt.Errorf("recordcodec: crypto frame offset: %w", err)
	}
	length, b, err := ReadVarint(b)
	if err != nil {
		return CryptoFrame{}, nil, fmt.Errorf("recordcodec: crypto frame length: %w", err)
	}
	if uint64(len(b)) < length {
		return CryptoFrame{}, nil, fmt.Errorf("recordcodec: crypto frame body truncated, need %d have %d", length, len(b))
	}
	data := b[:length]
	return CryptoFrame{Offset: offset, Data: data}, b[length:], nil
}
