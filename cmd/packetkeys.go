// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"fmt"

	"github.com/qcryptocore/qc-server/internal/handshake"
	"github.com/qcryptocore/qc-server/internal/keyschedule"
	"github.com/qcryptocore/qc-server/internal/packet"
)

// direction picks the DirectionalKeys a role uses to seal (its own
// direction) or open (the peer's), mirroring packet.Direction but indexed
// by handshake.Role so listen.go and dial.go don't each re-derive it.
func directionSend(role handshake.Role) packet.Direction {
	if role == handshake.RoleClient {
		return packet.DirectionClientToServer
	}
	return packet.DirectionServerToClient
}

func directionRecv(role handshake.Role) packet.Direction {
	if role == handshake.RoleClient {
		return packet.DirectionServerToClient
	}
	return packet.DirectionClientToServer
}

// directionalKeysFor picks the LevelKeys.Client/Server half of sched that
// dir names at level, returning an error if that level hasn't been
// installed yet (spec.md §3 invariant 1).
func directionalKeysFor(sched *keyschedule.Schedule, level keyschedule.Level, dir packet.Direction) (keyschedule.DirectionalKeys, error) {
	var lk *keyschedule.LevelKeys
	switch level {
	case keyschedule.Initial:
		lk = &sched.Initial
	case keyschedule.Handshake:
		lk = &sched.Handshake
	case keyschedule.Protected:
		lk = &sched.Protected
	default:
		return keyschedule.DirectionalKeys{}, fmt.Errorf("packetkeys: no directional keys for level %s", level)
	}
	if !lk.Installed() {
		return keyschedule.DirectionalKeys{}, fmt.Errorf("packetkeys: level %s not installed yet", level)
	}
	if dir == packet.DirectionClientToServer {
		return lk.Client, nil
	}
	return lk.Server, nil
}

// newPacketKeys wraps directional key material into the AEAD/PN-mask pair
// seal/open need, surfacing packet.NewKeys's error as-is.
func newPacketKeys(d keyschedule.DirectionalKeys) (*packet.Keys, error) {
	return packet.NewKeys(d)
}
