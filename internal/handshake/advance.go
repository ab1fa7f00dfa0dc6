// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package handshake

import (
	"crypto/sha256"
	"fmt"

	"github.com/qcryptocore/qc-server/internal/keyschedule"
)

// AdvanceKeys is spec.md §6's advance_keys: it performs whichever level
// transition the connection's current state makes available, and is a
// no-op if nothing is ready yet. The caller invokes it opportunistically
// after each successful ValidateRecord or EmitFinished call.
func (c *Connection) AdvanceKeys() error {
	if c.Level == keyschedule.Handshake && !c.Schedule.Handshake.Installed() {
		if err := c.deriveHandshakeKeys(); err != nil {
			return err
		}
	}
	if c.readyForProtected() && !c.Schedule.Protected.Installed() {
		c.deriveProtectedKeys()
		c.Level = keyschedule.Protected
	}
	return nil
}

func (c *Connection) deriveHandshakeKeys() error {
	if c.PeerPubKey == nil {
		return fmt.Errorf("handshake: advance_keys: no peer key_share yet")
	}
	dhe, err := c.PrivKey.ECDH(c.PeerPubKey)
	if err != nil {
		return fmt.Errorf("handshake: ECDH: %w", err)
	}
	th := sha256.Sum256(c.initial.Transcript())
	c.Schedule.DeriveHandshake(dhe, th)
	c.Schedule.ZeroRetired(keyschedule.Initial)
	return nil
}

// readyForProtected reports whether this side has reached its
// protected-boundary trigger: the client once it has validated the
// server's Finished, the server once it has sent its own (spec.md §4.3).
func (c *Connection) readyForProtected() bool {
	if !c.Schedule.Handshake.Installed() {
		return false
	}
	if c.Role == RoleClient {
		return c.handshakeFinishedRecvd
	}
	return c.handshakeFinishedSent
}

func (c *Connection) deriveProtectedKeys() {
	c.Schedule.DeriveProtected(c.transcriptHash())
}
