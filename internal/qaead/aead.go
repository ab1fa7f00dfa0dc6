// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package qaead implements the two symmetric primitives QUIC-TLS layers on
// top of the negotiated traffic secrets: AES-128-GCM record protection and
// the AES-128-CTR keystream used to obfuscate on-the-wire packet numbers.
//
// Grounded on the xorNonceAEAD / computeInitialKeyAndIV pattern in
// other_examples/55945b2f_ooni-netem__quiccrypto.go.go, generalized from a
// sequence-number-only nonce mask to the full 64-bit QUIC packet number.
package qaead

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// KeySize is the AES-128 key length in bytes.
const KeySize = 16

// IVSize is the AEAD nonce length in bytes.
const IVSize = 12

// SampleSize is the number of ciphertext bytes sampled for packet-number
// protection (also AES's block size, required by the CTR construction).
const SampleSize = 16

// AEAD wraps an AES-128-GCM instance keyed by a single directional traffic
// key, XORing the connection IV with the packet number to build each
// record's nonce (RFC 9001 §5.3).
type AEAD struct {
	gcm cipher.AEAD
	iv  [IVSize]byte
}

// New builds an AEAD from a 16-byte key and 12-byte IV.
func New(key, iv []byte) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("qaead: key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("qaead: iv must be %d bytes, got %d", IVSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	a := &AEAD{gcm: gcm}
	copy(a.iv[:], iv)
	return a, nil
}

// nonce computes iv XOR be96(pktNum) without mutating the AEAD's stored IV.
func (a *AEAD) nonce(pktNum uint64) [IVSize]byte {
	var n [IVSize]byte
	copy(n[:], a.iv[:])
	var pn [8]byte
	binary.BigEndian.PutUint64(pn[:], pktNum)
	for i := 0; i < 8; i++ {
		n[IVSize-8+i] ^= pn[i]
	}
	return n
}

// Seal encrypts plaintext for pktNum under aad (the full QUIC header
// including the unprotected packet number) and appends the 16-byte tag,
// i.e. returns ciphertext||tag as RFC 9001 requires.
func (a *AEAD) Seal(pktNum uint64, aad, plaintext []byte) []byte {
	nonce := a.nonce(pktNum)
	return a.gcm.Seal(nil, nonce[:], plaintext, aad)
}

// Open verifies and decrypts a ciphertext||tag blob for pktNum under aad. A
// tag mismatch is reported as ErrDecrypt; callers MUST drop the packet
// silently rather than propagate the error upward (spec §7 decrypt_error).
func (a *AEAD) Open(pktNum uint64, aad, sealed []byte) ([]byte, error) {
	nonce := a.nonce(pktNum)
	pt, err := a.gcm.Open(nil, nonce[:], sealed, aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return pt, nil
}

// Overhead returns the AEAD authentication tag length.
func (a *AEAD) Overhead() int { return a.gcm.Overhead() }
