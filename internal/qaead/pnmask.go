// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package qaead

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// ErrDecrypt is returned by AEAD.Open on tag-verification failure. Per
// spec §7 the caller must drop the packet silently, never surface it.
var ErrDecrypt = errors.New("qaead: decrypt_error")

// PNMasker produces the AES-128-CTR keystream used to obfuscate (and later
// recover) the encoded packet-number bytes of a QUIC packet, keyed by the
// level's pn_secret-derived key.
type PNMasker struct {
	block cipher.Block
}

// NewPNMasker builds a masker from a 16-byte key derived from pn_secret.
func NewPNMasker(key []byte) (*PNMasker, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("qaead: pn key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &PNMasker{block: block}, nil
}

// Mask XORs the AES-CTR keystream seeded by sample (a SampleSize-byte slice
// of ciphertext) into dst in place. Applying Mask twice with the same
// sample restores the original bytes (§8 property 6: PN obfuscation is
// involutive), since CTR keystream XOR is its own inverse.
func (m *PNMasker) Mask(sample []byte, dst []byte) error {
	if len(sample) != SampleSize {
		return fmt.Errorf("qaead: pn sample must be %d bytes, got %d", SampleSize, len(sample))
	}
	stream := cipher.NewCTR(m.block, sample)
	stream.XORKeyStream(dst, dst)
	return nil
}
