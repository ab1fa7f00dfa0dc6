// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package kdf implements the HKDF-Extract / HKDF-Expand-Label primitives QUIC
// uses to turn a handshake secret into directional traffic secrets, AEAD
// keys/IVs and packet-number secrets. Everything here is SHA-256 only: this
// repository speaks a single cipher suite (AES-128-GCM-SHA256).
package kdf

import (
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/hkdf"
)

// HashSize is the fixed SHA-256 digest length used throughout this package.
const HashSize = sha256.Size

// tlsLabelPrefix is prepended to every label, as RFC 8446 HKDF-Expand-Label
// does. QUIC's packet-protection labels ("quic key", "quic iv", "quic pn")
// carry their own "quic " part after it.
const tlsLabelPrefix = "tls13 "

// Extract runs HKDF-Extract(salt, ikm) and returns a 32-byte pseudorandom key.
func Extract(ikm, salt []byte) []byte {
	return hkdf.Extract(sha256.New, ikm, salt)
}

// ExpandLabel builds the TLS 1.3 HKDF-Expand-Label info string
//
//	len(L):u16 || len(label):u8 || label || len(ctx):u8 || ctx
//
// where label is prefixed with "tls13 " and ctx is used exactly as given
// (RFC 8446 §7.1's HkdfLabel.context is an opaque field, not re-hashed by
// HKDF-Expand-Label itself). Callers that need a transcript-hash context
// compute SHA256(transcript) themselves before calling ExpandLabel (see
// internal/keyschedule); an empty context is the true zero-length string,
// as RFC 9001 requires for the "key"/"iv"/"pn" derivations. spec.md §9(a)
// flags the reference source's unconditional internal re-hash of context
// as a bug; this implementation does not reproduce it.
func ExpandLabel(secret []byte, label string, context []byte, length int) []byte {
	fullLabel := tlsLabelPrefix + label

	info := make([]byte, 0, 2+1+len(fullLabel)+1+len(context))
	info = binary.BigEndian.AppendUint16(info, uint16(length))
	info = append(info, byte(len(fullLabel)))
	info = append(info, fullLabel...)
	info = append(info, byte(len(context)))
	info = append(info, context...)

	out := make([]byte, length)
	r := hkdf.Expand(sha256.New, secret, info)
	if _, err := r.Read(out); err != nil {
		// hkdf.Expand can only fail when length exceeds 255*HashSize; every
		// caller in this repository requests 12, 16 or 32 bytes.
		panic("kdf: expand-label failed: " + err.Error())
	}
	return out
}

// Key derives a 16-byte AEAD key from a directional traffic secret.
func Key(secret []byte) []byte {
	return ExpandLabel(secret, "quic key", nil, 16)
}

// IV derives a 12-byte AEAD nonce base from a directional traffic secret.
func IV(secret []byte) []byte {
	return ExpandLabel(secret, "quic iv", nil, 12)
}
