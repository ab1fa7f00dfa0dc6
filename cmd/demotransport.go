// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"fmt"

	"github.com/qcryptocore/qc-server/internal/keyschedule"
	"github.com/qcryptocore/qc-server/internal/packet"
)

// demoHeaderLen is the fixed header/AAD size listen.go and dial.go use for
// every UDP datagram: a one-byte encryption-level tag plus the 8-byte
// cid_initial. Real QUIC varies the header by packet type; this demo
// transport is deliberately the minimal stand-in spec.md §1 carves out as
// "QUIC packet framing outside the CRYPTO frame" — an external collaborator
// the core does not specify.
const demoHeaderLen = 1 + 8

func demoHeader(level keyschedule.Level, cidInitial []byte) []byte {
	h := make([]byte, demoHeaderLen)
	h[0] = byte(level)
	copy(h[1:], cidInitial)
	return h
}

func demoHeaderLevel(header []byte) (keyschedule.Level, []byte, error) {
	if len(header) < demoHeaderLen {
		return 0, nil, fmt.Errorf("demo transport: short header")
	}
	return keyschedule.Level(header[0]), header[1:demoHeaderLen], nil
}

// session tracks the per-remote demo state listen.go and dial.go both need
// on top of a handshake.Connection: the independent packet-number space
// each encryption level keeps (spec.md §2's "Packet seal/open" row) plus
// the largest received counters open_packet needs to reconstruct a
// truncated packet number.
type session struct {
	sendPN      map[keyschedule.Level]uint64
	recvLargest map[keyschedule.Level]uint64
}

func newSession() *session {
	return &session{
		sendPN:      make(map[keyschedule.Level]uint64),
		recvLargest: make(map[keyschedule.Level]uint64),
	}
}

func (s *session) nextSendPN(level keyschedule.Level) uint64 {
	pn := s.sendPN[level]
	s.sendPN[level] = pn + 1
	return pn
}

func (s *session) seal(keys *packet.Keys, level keyschedule.Level, cidInitial, plaintext []byte) ([]byte, error) {
	pn := s.nextSendPN(level)
	largestAcked := uint64(0)
	if pn > 0 {
		largestAcked = pn - 1
	}
	return keys.Seal(demoHeader(level, cidInitial), plaintext, pn, largestAcked)
}

func (s *session) open(keys *packet.Keys, level keyschedule.Level, datagram []byte) (uint64, []byte, error) {
	pn, pt, err := keys.Open(datagram, demoHeaderLen, s.recvLargest[level])
	if err != nil {
		return 0, nil, err
	}
	if pn > s.recvLargest[level] {
		s.recvLargest[level] = pn
	}
	return pn, pt, nil
}
