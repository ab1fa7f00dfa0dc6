// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package recordcodec

import (
	"encoding/binary"
	"fmt"
)

// ParamID identifies one QUIC transport parameter (spec.md §6 table).
type ParamID uint16

const (
	ParamInitialMaxStreamData  ParamID = 0
	ParamInitialMaxData        ParamID = 1
	ParamInitialMaxBidiStreams ParamID = 2
	ParamIdleTimeout           ParamID = 3
	ParamPreferredAddress      ParamID = 4
	ParamMaxPacketSize         ParamID = 5
	ParamStatelessResetToken   ParamID = 6
	ParamAckDelayExponent      ParamID = 7
	ParamInitialMaxUniStreams  ParamID = 8
	ParamDisableMigration      ParamID = 9
)

// QUICExtensionCodepoint is the TLS extension codepoint carrying QUIC
// transport parameters inside ClientHello/EncryptedExtensions.
const QUICExtensionCodepoint = 0xFFA5

// PreferredAddress is the structured value of ParamPreferredAddress.
type PreferredAddress struct {
	IPv4     [4]byte
	IPv4Port uint16
	IPv6     [16]byte
	IPv6Port uint16
	ConnID   []byte
	ResetToken [16]byte
}

func (p PreferredAddress) encode() []byte {
	out := make([]byte, 0, 4+2+16+2+1+len(p.ConnID)+16)
	out = append(out, p.IPv4[:]...)
	out = binary.BigEndian.AppendUint16(out, p.IPv4Port)
	out = append(out, p.IPv6[:]...)
	out = binary.BigEndian.AppendUint16(out, p.IPv6Port)
	out = append(out, byte(len(p.ConnID)))
	out = append(out, p.ConnID...)
	out = append(out, p.ResetToken[:]...)
	return out
}

func decodePreferredAddress(b []byte) (PreferredAddress, error) {
	var p PreferredAddress
	if len(b) < 4+2+16+2+1 {
		return p, fmt.Errorf("recordcodec: preferred_address truncated")
	}
	copy(p.IPv4[:], b[0:4])
	p.IPv4Port = binary.BigEndian.Uint16(b[4:6])
	copy(p.IPv6[:], b[6:22])
	p.IPv6Port = binary.BigEndian.Uint16(b[22:24])
	cidLen := int(b[24])
	b = b[25:]
	if len(b) < cidLen+16 {
		return p, fmt.Errorf("recordcodec: preferred_address conn_id/reset_token truncated")
	}
	p.ConnID = append([]byte(nil), b[:cidLen]...)
	copy(p.ResetToken[:], b[cidLen:cidLen+16])
	return p, nil
}

// TransportParameters is the negotiated set of QUIC transport parameters
// (spec.md §6). Fields default to the values in the defaults table; a zero
// Params is ready to use as-is.
type TransportParameters struct {
	InitialMaxStreamData  uint64
	InitialMaxData        uint64
	InitialMaxBidiStreams uint64
	InitialMaxUniStreams  uint64
	IdleTimeout           uint64
	MaxPacketSize         uint64
	AckDelayExponent      uint8
	DisableMigration      bool

	HasPreferredAddress bool
	PreferredAddress    PreferredAddress

	HasStatelessResetToken bool
	StatelessResetToken    [16]byte
}

// DefaultTransportParameters returns the spec.md §6 defaults. max_ack_delay
// is tracked by the connection layer, not the wire parameter set this
// package encodes, since it has no assigned ParamID in spec.md's table.
func DefaultTransportParameters() TransportParameters {
	return TransportParameters{
		InitialMaxStreamData:  5000,
		InitialMaxData:        5000,
		InitialMaxBidiStreams: 1,
		InitialMaxUniStreams:  1,
		IdleTimeout:           0,
		MaxPacketSize:         1200,
		AckDelayExponent:      3,
		DisableMigration:      false,
	}
}

func appendParam(dst []byte, id ParamID, value []byte) ([]byte, error) {
	dst = binary.BigEndian.AppendUint16(dst, uint16(id))
	if len(value) > 0xFFFF {
		return nil, fmt.Errorf("recordcodec: param %d value too long: %d", id, len(value))
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(value)))
	return append(dst, value...), nil
}

func appendVarintParam(dst []byte, id ParamID, v uint64) ([]byte, error) {
	val, err := AppendVarint(nil, v)
	if err != nil {
		return nil, err
	}
	return appendParam(dst, id, val)
}

// Encode serializes the parameter set as a sequence of {id:u16, len:u16,
// value} entries. Values are varint-encoded integers, per spec.md §9(e)'s
// resolution in favor of the RFC wire format rather than ASCII decimal.
func (p TransportParameters) Encode() ([]byte, error) {
	var out []byte
	var err error

	if out, err = appendVarintParam(out, ParamInitialMaxStreamData, p.InitialMaxStreamData); err != nil {
		return nil, err
	}
	if out, err = appendVarintParam(out, ParamInitialMaxData, p.InitialMaxData); err != nil {
		return nil, err
	}
	if out, err = appendVarintParam(out, ParamInitialMaxBidiStreams, p.InitialMaxBidiStreams); err != nil {
		return nil, err
	}
	if out, err = appendVarintParam(out, ParamIdleTimeout, p.IdleTimeout); err != nil {
		return nil, err
	}
	if p.HasPreferredAddress {
		if out, err = appendParam(out, ParamPreferredAddress, p.PreferredAddress.encode()); err != nil {
			return nil, err
		}
	}
	if out, err = appendVarintParam(out, ParamMaxPacketSize, p.MaxPacketSize); err != nil {
		return nil, err
	}
	if p.HasStatelessResetToken {
		if out, err = appendParam(out, ParamStatelessResetToken, p.StatelessResetToken[:]); err != nil {
			return nil, err
		}
	}
	if out, err = appendParam(out, ParamAckDelayExponent, []byte{p.AckDelayExponent}); err != nil {
		return nil, err
	}
	if out, err = appendVarintParam(out, ParamInitialMaxUniStreams, p.InitialMaxUniStreams); err != nil {
		return nil, err
	}
	if p.DisableMigration {
		if out, err = appendParam(out, ParamDisableMigration, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeTransportParameters parses a sequence of {id, len, value} entries.
// Unknown IDs are not tolerated here since this single-profile repository
// only ever negotiates the ten parameters spec.md §6 names; an external
// collaborator implementing full QUIC would skip unknown IDs instead.
func DecodeTransportParameters(b []byte) (TransportParameters, error) {
	p := DefaultTransportParameters()
	for len(b) > 0 {
		if len(b) < 4 {
			return TransportParameters{}, fmt.Errorf("recordcodec: truncated transport parameter header")
		}
		id := ParamID(binary.BigEndian.Uint16(b[0:2]))
		length := int(binary.BigEndian.Uint16(b[2:4]))
		b = b[4:]
		if len(b) < length {
			return TransportParameters{}, fmt.Errorf("recordcodec: truncated transport parameter value for id %d", id)
		}
		value := b[:length]
		b = b[length:]

		switch id {
		case ParamInitialMaxStreamData:
			v, _, err := ReadVarint(value)
			if err != nil {
				return TransportParameters{}, err
			}
			p.InitialMaxStreamData = v
		case ParamInitialMaxData:
			v, _, err := ReadVarint(value)
			if err != nil {
				return TransportParameters{}, err
			}
			p.InitialMaxData = v
		case ParamInitialMaxBidiStreams:
			v, _, err := ReadVarint(value)
			if err != nil {
				return TransportParameters{}, err
			}
			p.InitialMaxBidiStreams = v
		case ParamIdleTimeout:
			v, _, err := ReadVarint(value)
			if err != nil {
				return TransportParameters{}, err
			}
			p.IdleTimeout = v
		case ParamPreferredAddress:
			pa, err := decodePreferredAddress(value)
			if err != nil {
				return TransportParameters{}, err
			}
			p.HasPreferredAddress = true
			p.PreferredAddress = pa
		case ParamMaxPacketSize:
			v, _, err := ReadVarint(value)
			if err != nil {
				return TransportParameters{}, err
			}
			if v < 1200 {
				return TransportParameters{}, fmt.Errorf("recordcodec: max_packet_size %d below RFC minimum 1200", v)
			}
			p.MaxPacketSize = v
		case ParamStatelessResetToken:
			if len(value) != 16 {
				return TransportParameters{}, fmt.Errorf("recordcodec: stateless_reset_token must be 16 bytes, got %d", len(value))
			}
			p.HasStatelessResetToken = true
			copy(p.StatelessResetToken[:], value)
		case ParamAckDelayExponent:
			if len(value) != 1 {
				return TransportParameters{}, fmt.Errorf("recordcodec: ack_delay_exponent must be 1 byte, got %d", len(value))
			}
			p.AckDelayExponent = value[0]
		case ParamInitialMaxUniStreams:
			v, _, err := ReadVarint(value)
			if err != nil {
				return TransportParameters{}, err
			}
			p.InitialMaxUniStreams = v
		case ParamDisableMigration:
			if len(value) != 0 {
				return TransportParameters{}, fmt.Errorf("recordcodec: disable_migration must be zero-length")
			}
			p.DisableMigration = true
		default:
			return TransportParameters{}, fmt.Errorf("recordcodec: unknown transport parameter id %d", id)
		}
	}
	return p, nil
}

// EncodeClientHelloExtension wraps params in the ClientHello-side QUIC
// transport-parameters extension payload: initial_version:u32 ||
// params_len:u16 || params.
func EncodeClientHelloExtension(initialVersion uint32, params TransportParameters) ([]byte, error) {
	encoded, err := params.Encode()
	if err != nil {
		return nil, err
	}
	out := binary.BigEndian.AppendUint32(nil, initialVersion)
	out = binary.BigEndian.AppendUint16(out, uint16(len(encoded)))
	return append(out, encoded...), nil
}

// DecodeClientHelloExtension reverses EncodeClientHelloExtension.
func DecodeClientHelloExtension(b []byte) (initialVersion uint32, params TransportParameters, err error) {
	if len(b) < 6 {
		return 0, TransportParameters{}, fmt.Errorf("recordcodec: client hello quic extension truncated")
	}
	initialVersion = binary.BigEndian.Uint32(b[0:4])
	paramsLen := int(binary.BigEndian.Uint16(b[4:6]))
	b = b[6:]
	if len(b) < paramsLen {
		return 0, TransportParameters{}, fmt.Errorf("recordcodec: client hello quic params truncated")
	}
	params, err = DecodeTransportParameters(b[:paramsLen])
	return initialVersion, params, err
}

// EncodeEncryptedExtensionsExtension wraps params in the server-side QUIC
// transport-parameters extension payload: negotiated_version:u32 ||
// other_versions_len:u8 || other_versions || params_len:u16 || params.
func EncodeEncryptedExtensionsExtension(negotiatedVersion uint32, otherVersions [][4]byte, params TransportParameters) ([]byte, error) {
	encoded, err := params.Encode()
	if err != nil {
		return nil, err
	}
	if len(otherVersions) > 0xFF {
		return nil, fmt.Errorf("recordcodec: too many other_versions: %d", len(otherVersions))
	}
	out := binary.BigEndian.AppendUint32(nil, negotiatedVersion)
	out = append(out, byte(len(otherVersions)))
	for _, v := range otherVersions {
		out = append(out, v[:]...)
	}
	out = binary.BigEndian.AppendUint16(out, uint16(len(encoded)))
	return append(out, encoded...), nil
}

// DecodeEncryptedExtensionsExtension reverses EncodeEncryptedExtensionsExtension.
func DecodeEncryptedExtensionsExtension(b []byte) (negotiatedVersion uint32, otherVersions [][4]byte, params TransportParameters, err error) {
	if len(b) < 5 {
		return 0, nil, TransportParameters{}, fmt.Errorf("recordcodec: encrypted extensions quic extension truncated")
	}
	negotiatedVersion = binary.BigEndian.Uint32(b[0:4])
	n := int(b[4])
	b = b[5:]
	if len(b) < n*4+2 {
		return 0, nil, TransportParameters{}, fmt.Errorf("recordcodec: encrypted extensions other_versions truncated")
	}
	for i := 0; i < n; i++ {
		var v [4]byte
		copy(v[:], b[i*4:i*4+4])
		otherVersions = append(otherVersions, v)
	}
	b = b[n*4:]
	paramsLen := int(binary.BigEndian.Uint16(b[0:2]))
	b = b[2:]
	if len(b) < paramsLen {
		return 0, nil, TransportParameters{}, fmt.Errorf("recordcodec: encrypted extensions params truncated")
	}
	params, err = DecodeTransportParameters(b[:paramsLen])
	return negotiatedVersion, otherVersions, params, err
}
