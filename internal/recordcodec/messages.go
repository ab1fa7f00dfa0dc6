// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import (
	"encoding/binary"
	"fmt"
)

// Negotiated-value constants for this repository's single-ciphersuite,
// single-group, single-signature-algorithm QUIC-TLS profile (spec.md §1).
const (
	LegacyVersionTLS12  = 0x0303
	TLSVersion13        = 0x0304
	CipherAES128GCMSHA256 = 0x1301
	SignatureECDSASecp256r1SHA256 = 0x0403
	GroupSecp256r1      = 0x0017
)

// Extension codepoints used inside ClientHello/ServerHello/EncryptedExtensions.
const (
	ExtSupportedVersions    = 43
	ExtSupportedGroups      = 10
	ExtSignatureAlgorithms  = 13
	ExtKeyShare             = 51
	ExtServerCertificateType = 20
	// ExtQUICTransportParameters is QUICExtensionCodepoint (0xFFA5), defined
	// alongside the transport-parameter codec in transportparams.go.
)

type extension struct {
	typ  uint16
	data []byte
}

func encodeExtensions(exts []extension) ([]byte, error) {
	var body []byte
	for _, e := range exts {
		if len(e.data) > 0xFFFF {
			return nil, fmt.Errorf("recordcodec: extension %d too long: %d", e.typ, len(e.data))
		}
		body = binary.BigEndian.AppendUint16(body, e.typ)
		body = binary.BigEndian.AppendUint16(body, uint16(len(e.data)))
		body = append(body, e.data...)
	}
	out := binary.BigEndian.AppendUint16(nil, uint16(len(body)))
	return append(out, body...), nil
}

func decodeExtensions(b []byte) ([]extension, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("recordcodec: extensions block truncated")
	}
	length := int(binary.BigEndian.Uint16(b[0:2]))
	b = b[2:]
	if len(b) < length {
		return nil, fmt.Errorf("recordcodec: extensions block shorter than declared length")
	}
	b = b[:length]

	var exts []extension
	for len(b) > 0 {
		if len(b) < 4 {
			return nil, fmt.Errorf("recordcodec: truncated extension header")
		}
		typ := binary.BigEndian.Uint16(b[0:2])
		extLen := int(binary.BigEndian.Uint16(b[2:4]))
		b = b[4:]
		if len(b) < extLen {
			return nil, fmt.Errorf("recordcodec: truncated extension body for type %d", typ)
		}
		exts = append(exts, extension{typ: typ, data: append([]byte(nil), b[:extLen]...)})
		b = b[extLen:]
	}
	return exts, nil
}

func findExtension(exts []extension, typ uint16) ([]byte, bool) {
	for _, e := range exts {
		if e.typ == typ {
			return e.data, true
		}
	}
	return nil, false
}

// KeyShareEntry is one (group, key_exchange) pair from a key_share extension.
type KeyShareEntry struct {
	Group uint16
	Data  []byte
}

func encodeKeyShareEntry(e KeyShareEntry) []byte {
	out := binary.BigEndian.AppendUint16(nil, e.Group)
	out = binary.BigEndian.AppendUint16(out, uint16(len(e.Data)))
	return append(out, e.Data...)
}

func decodeKeyShareEntry(b []byte) (KeyShareEntry, []byte, error) {
	if len(b) < 4 {
		return KeyShareEntry{}, nil, fmt.Errorf("recordcodec: truncated key_share entry")
	}
	group := binary.BigEndian.Uint16(b[0:2])
	length := int(binary.BigEndian.Uint16(b[2:4]))
	b = b[4:]
	if len(b) < length {
		return KeyShareEntry{}, nil, fmt.Errorf("recordcodec: truncated key_share data")
	}
	return KeyShareEntry{Group: group, Data: append([]byte(nil), b[:length]...)}, b[length:], nil
}

// ClientHello is this profile's ClientHello body: fixed legacy fields plus
// the five extensions spec.md §4.4 lists.
type ClientHello struct {
	Random              [32]byte
	CipherSuites        []uint16
	SupportedVersions   []uint16
	SignatureAlgorithms []uint16
	SupportedGroups     []uint16
	KeyShares           []KeyShareEntry
	QUICInitialVersion  uint32
	QUICParams          TransportParameters
}

// Encode serializes ch as a ClientHello body (the part after the outer
// {type, length} record header).
func (ch ClientHello) Encode() ([]byte, error) {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, LegacyVersionTLS12)
	body = append(body, ch.Random[:]...)
	body = append(body, 0) // legacy_session_id_len = 0

	if len(ch.CipherSuites) > 0x7FFF {
		return nil, fmt.Errorf("recordcodec: too many cipher suites")
	}
	body = binary.BigEndian.AppendUint16(body, uint16(len(ch.CipherSuites)*2))
	for _, c := range ch.CipherSuites {
		body = binary.BigEndian.AppendUint16(body, c)
	}
	body = append(body, 1, 0x00) // legacy_compression_methods = {null}

	var exts []extension

	var sv []byte
	sv = append(sv, byte(len(ch.SupportedVersions)*2))
	for _, v := range ch.SupportedVersions {
		sv = binary.BigEndian.AppendUint16(sv, v)
	}
	exts = append(exts, extension{ExtSupportedVersions, sv})

	var sg []byte
	sg = binary.BigEndian.AppendUint16(sg, uint16(len(ch.SupportedGroups)*2))
	for _, g := range ch.SupportedGroups {
		sg = binary.BigEndian.AppendUint16(sg, g)
	}
	exts = append(exts, extension{ExtSupportedGroups, sg})

	var sa []byte
	sa = binary.BigEndian.AppendUint16(sa, uint16(len(ch.SignatureAlgorithms)*2))
	for _, a := range ch.SignatureAlgorithms {
		sa = binary.BigEndian.AppendUint16(sa, a)
	}
	exts = append(exts, extension{ExtSignatureAlgorithms, sa})

	var ks []byte
	var ksList []byte
	for _, e := range ch.KeyShares {
		ksList = append(ksList, encodeKeyShareEntry(e)...)
	}
	ks = binary.BigEndian.AppendUint16(ks, uint16(len(ksList)))
	ks = append(ks, ksList...)
	exts = append(exts, extension{ExtKeyShare, ks})

	qtp, err := EncodeClientHelloExtension(ch.QUICInitialVersion, ch.QUICParams)
	if err != nil {
		return nil, err
	}
	exts = append(exts, extension{QUICExtensionCodepoint, qtp})

	extBlock, err := encodeExtensions(exts)
	if err != nil {
		return nil, err
	}
	return append(body, extBlock...), nil
}

// DecodeClientHello reverses ClientHello.Encode.
func DecodeClientHello(b []byte) (ClientHello, error) {
	var ch ClientHello
	if len(b) < 2+32+1 {
		return ch, fmt.Errorf("recordcodec: client hello truncated")
	}
	legacyVersion := binary.BigEndian.Uint16(b[0:2])
	if legacyVersion != LegacyVersionTLS12 {
		return ch, fmt.Errorf("recordcodec: client hello legacy_version = %#04x, want %#04x", legacyVersion, LegacyVersionTLS12)
	}
	copy(ch.Random[:], b[2:34])
	sessIDLen := int(b[34])
	b = b[35:]
	if len(b) < sessIDLen {
		return ch, fmt.Errorf("recordcodec: client hello session id truncated")
	}
	b = b[sessIDLen:]

	if len(b) < 2 {
		return ch, fmt.Errorf("recordcodec: client hello cipher suites truncated")
	}
	csLen := int(binary.BigEndian.Uint16(b[0:2]))
	b = b[2:]
	if len(b) < csLen {
		return ch, fmt.Errorf("recordcodec: client hello cipher suites body truncated")
	}
	for i := 0; i < csLen; i += 2 {
		ch.CipherSuites = append(ch.CipherSuites, binary.BigEndian.Uint16(b[i:i+2]))
	}
	b = b[csLen:]

	if len(b) < 1 {
		return ch, fmt.Errorf("recordcodec: client hello compression methods truncated")
	}
	compLen := int(b[0])
	b = b[1+compLen:]

	exts, err := decodeExtensions(b)
	if err != nil {
		return ch, err
	}

	if sv, ok := findExtension(exts, ExtSupportedVersions); ok && len(sv) >= 1 {
		n := int(sv[0])
		sv = sv[1:]
		for i := 0; i+1 < len(sv) && i < n; i += 2 {
			ch.SupportedVersions = append(ch.SupportedVersions, binary.BigEndian.Uint16(sv[i:i+2]))
		}
	}
	if sg, ok := findExtension(exts, ExtSupportedGroups); ok && len(sg) >= 2 {
		n := int(binary.BigEndian.Uint16(sg[0:2]))
		sg = sg[2:]
		for i := 0; i+1 < len(sg) && i < n; i += 2 {
			ch.SupportedGroups = append(ch.SupportedGroups, binary.BigEndian.Uint16(sg[i:i+2]))
		}
	}
	if sa, ok := findExtension(exts, ExtSignatureAlgorithms); ok && len(sa) >= 2 {
		n := int(binary.BigEndian.Uint16(sa[0:2]))
		sa = sa[2:]
		for i := 0; i+1 < len(sa) && i < n; i += 2 {
			ch.SignatureAlgorithms = append(ch.SignatureAlgorithms, binary.BigEndian.Uint16(sa[i:i+2]))
		}
	}
	if ks, ok := findExtension(exts, ExtKeyShare); ok && len(ks) >= 2 {
		listLen := int(binary.BigEndian.Uint16(ks[0:2]))
		ks = ks[2:]
		if listLen > len(ks) {
			return ch, fmt.Errorf("recordcodec: client hello key_share list truncated")
		}
		ks = ks[:listLen]
		for len(ks) > 0 {
			var e KeyShareEntry
			var err error
			e, ks, err = decodeKeyShareEntry(ks)
			if err != nil {
				return ch, err
			}
			ch.KeyShares = append(ch.KeyShares, e)
		}
	}
	if qtp, ok := findExtension(exts, QUICExtensionCodepoint); ok {
		version, params, err := DecodeClientHelloExtension(qtp)
		if err != nil {
			return ch, fmt.Errorf("recordcodec: client hello quic params: %w", err)
		}
		ch.QUICInitialVersion = version
		ch.QUICParams = params
	}

	return ch, nil
}

// ServerHello is this profile's ServerHello body.
type ServerHello struct {
	Random            [32]byte
	CipherSuite       uint16
	SupportedVersion  uint16
	KeyShare          KeyShareEntry
}

// Encode serializes sh as a ServerHello body.
func (sh ServerHello) Encode() ([]byte, error) {
	var body []byte
	body = binary.BigEndian.AppendUint16(body, LegacyVersionTLS12)
	body = append(body, sh.Random[:]...)
	body = append(body, 0) // legacy_session_id_echo len = 0
	body = binary.BigEndian.AppendUint16(body, sh.CipherSuite)
	body = append(body, 0x00) // legacy_compression_method

	var exts []extension
	exts = append(exts, extension{ExtSupportedVersions, binary.BigEndian.AppendUint16(nil, sh.SupportedVersion)})
	exts = append(exts, extension{ExtKeyShare, encodeKeyShareEntry(sh.KeyShare)})

	extBlock, err := encodeExtensions(exts)
	if err != nil {
		return nil, err
	}
	return append(body, extBlock...), nil
}

// DecodeServerHello reverses ServerHello.Encode.
func DecodeServerHello(b []byte) (ServerHello, error) {
	var sh ServerHello
	if len(b) < 2+32+1 {
		return sh, fmt.Errorf("recordcodec: server hello truncated")
	}
	legacyVersion := binary.BigEndian.Uint16(b[0:2])
	if legacyVersion != LegacyVersionTLS12 {
		return sh, fmt.Errorf("recordcodec: server hello legacy_version = %#04x, want %#04x", legacyVersion, LegacyVersionTLS12)
	}
	copy(sh.Random[:], b[2:34])
	sessIDLen := int(b[34])
	b = b[35:]
	if len(b) < sessIDLen+3 {
		return sh, fmt.Errorf("recordcodec: server hello truncated after session id")
	}
	b = b[sessIDLen:]
	sh.CipherSuite = binary.BigEndian.Uint16(b[0:2])
	b = b[3:] // cipher suite (2) + compression method (1)

	exts, err := decodeExtensions(b)
	if err != nil {
		return sh, err
	}
	if sv, ok := findExtension(exts, ExtSupportedVersions); ok && len(sv) >= 2 {
		sh.SupportedVersion = binary.BigEndian.Uint16(sv[0:2])
	}
	if ks, ok := findExtension(exts, ExtKeyShare); ok {
		e, _, err := decodeKeyShareEntry(ks)
		if err != nil {
			return sh, err
		}
		sh.KeyShare = e
	}
	return sh, nil
}

// EncryptedExtensions carries this profile's negotiated signature
// algorithm, group and QUIC transport parameters (spec.md §4.4).
type EncryptedExtensions struct {
	SignatureAlgorithm    uint16
	Group                 uint16
	QUICNegotiatedVersion uint32
	QUICOtherVersions     [][4]byte
	QUICParams            TransportParameters
}

func (ee EncryptedExtensions) Encode() ([]byte, error) {
	var exts []extension
	exts = append(exts, extension{ExtSignatureAlgorithms, binary.BigEndian.AppendUint16(nil, ee.SignatureAlgorithm)})
	exts = append(exts, extension{ExtSupportedGroups, binary.BigEndian.AppendUint16(nil, ee.Group)})

	qtp, err := EncodeEncryptedExtensionsExtension(ee.QUICNegotiatedVersion, ee.QUICOtherVersions, ee.QUICParams)
	if err != nil {
		return nil, err
	}
	exts = append(exts, extension{QUICExtensionCodepoint, qtp})

	return encodeExtensions(exts)
}

func DecodeEncryptedExtensions(b []byte) (EncryptedExtensions, error) {
	var ee EncryptedExtensions
	exts, err := decodeExtensions(b)
	if err != nil {
		return ee, err
	}
	if sa, ok := findExtension(exts, ExtSignatureAlgorithms); ok && len(sa) >= 2 {
		ee.SignatureAlgorithm = binary.BigEndian.Uint16(sa[0:2])
	}
	if g, ok := findExtension(exts, ExtSupportedGroups); ok && len(g) >= 2 {
		ee.Group = binary.BigEndian.Uint16(g[0:2])
	}
	if qtp, ok := findExtension(exts, QUICExtensionCodepoint); ok {
		version, others, params, err := DecodeEncryptedExtensionsExtension(qtp)
		if err != nil {
			return ee, fmt.Errorf("recordcodec: encrypted extensions quic params: %w", err)
		}
		ee.QUICNegotiatedVersion = version
		ee.QUICOtherVersions = others
		ee.QUICParams = params
	}
	return ee, nil
}

// CertificateMessage carries a DER certificate chain, leaf first.
type CertificateMessage struct {
	Chain [][]byte // DER-encoded certificates, leaf first
}

func (c CertificateMessage) Encode() ([]byte, error) {
	body := []byte{0} // certificate_request_context_len = 0
	var list []byte
	for _, der := range c.Chain {
		if len(der) > maxRecordBodyLen {
			return nil, fmt.Errorf("recordcodec: certificate too long")
		}
		list = append(list, byte(len(der)>>16), byte(len(der)>>8), byte(len(der)))
		list = append(list, der...)
		list = append(list, 0, 0) // extensions_len = 0
	}
	body = append(body, byte(len(list)>>16), byte(len(list)>>8), byte(len(list)))
	return append(body, list...), nil
}

func DecodeCertificateMessage(b []byte) (CertificateMessage, error) {
	var c CertificateMessage
	if len(b) < 1 {
		return c, fmt.Errorf("recordcodec: certificate message truncated")
	}
	ctxLen := int(b[0])
	b = b[1:]
	if len(b) < ctxLen+3 {
		return c, fmt.Errorf("recordcodec: certificate message truncated after context")
	}
	b = b[ctxLen:]
	listLen := int(b[0])<<16 | int(b[1])<<8 | int(b[2])
	b = b[3:]
	if len(b) < listLen {
		return c, fmt.Errorf("recordcodec: certificate list truncated")
	}
	b = b[:listLen]
	for len(b) > 0 {
		if len(b) < 3 {
			return c, fmt.Errorf("recordcodec: certificate entry header truncated")
		}
		certLen := int(b[0])<<16 | int(b[1])<<8 | int(b[2])
		b = b[3:]
		if len(b) < certLen+2 {
			return c, fmt.Errorf("recordcodec: certificate entry body truncated")
		}
		c.Chain = append(c.Chain, append([]byte(nil), b[:certLen]...))
		b = b[certLen:]
		extLen := int(binary.BigEndian.Uint16(b[0:2]))
		b = b[2+extLen:]
	}
	return c, nil
}

// CertificateVerifyMessage carries the signature over the transcript hash.
type CertificateVerifyMessage struct {
	Algorithm uint16
	Signature []byte
}

func (cv CertificateVerifyMessage) Encode() []byte {
	out := binary.BigEndian.AppendUint16(nil, cv.Algorithm)
	out = binary.BigEndian.AppendUint16(out, uint16(len(cv.Signature)))
	return append(out, cv.Signature...)
}

func DecodeCertificateVerifyMessage(b []byte) (CertificateVerifyMessage, error) {
	var cv CertificateVerifyMessage
	if len(b) < 4 {
		return cv, fmt.Errorf("recordcodec: certificate verify truncated")
	}
	cv.Algorithm = binary.BigEndian.Uint16(b[0:2])
	sigLen := int(binary.BigEndian.Uint16(b[2:4]))
	b = b[4:]
	if len(b) < sigLen {
		return cv, fmt.Errorf("recordcodec: certificate verify signature truncated")
	}
	cv.Signature = append([]byte(nil), b[:sigLen]...)
	return cv, nil
}

// FinishedMessage carries the HMAC-SHA256 verify_data (spec.md §4.5).
type FinishedMessage struct {
	VerifyData []byte
}

func (f FinishedMessage) Encode() []byte {
	return append([]byte(nil), f.VerifyData...)
}

func DecodeFinishedMessage(b []byte) FinishedMessage {
	return FinishedMessage{VerifyData: append([]byte(nil), b...)}
}
