// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package db

import "time"

// SeedVector stores one of spec.md §8's named end-to-end scenarios (S1-S6)
// as hex-free byte columns, so a fixture can be recomputed and compared
// against what was persisted rather than trusted from inline test constants
// alone.
type SeedVector struct {
	Name        string `gorm:"primaryKey"`
	Description string
	CIDInitial  []byte
	InitialSecret       []byte
	ClientInitialSecret []byte
	ClientKey           []byte
	ClientIV            []byte
	CreatedAt   time.Time
}

// AuditEvent records one validator verdict or key-schedule transition
// observed for a connection, keyed by an opaque connection identifier the
// caller chooses (e.g. the hex CIDInitial).
type AuditEvent struct {
	ID           uint `gorm:"primaryKey"`
	ConnectionID string
	Role         string
	Level        string
	RecordType   string
	Result       string
	Detail       string
	CreatedAt    time.Time
}
