// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package db persists the two things the crypto core itself is silent
// about: the named seed vectors from spec.md §8 as checkable artifacts, and
// a running audit trail of validator verdicts and level transitions, for
// the cmd/vectors and api diagnostic surfaces to read back.
//
// Grounded on the teacher's DatabaseConfig.getState/db.InitDb naming
// (cmd/config.go), generalized from its sqlite-only stdlib store to a
// gorm-backed store so the sqlite/postgres driver pair the teacher's go.mod
// already carries is actually exercised by this repository.
package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// State wraps the gorm handle for this process's database, mirroring the
// teacher's *sqlite.DB return value from getState() but backed by gorm so
// sqlite and postgres share one code path.
type State struct {
	DB *gorm.DB
}

// InitDb opens driver ("sqlite" or "postgres") at dsn and migrates the
// seed-vector and audit-trail tables. dsn is a file path for sqlite, a
// libpq connection string for postgres.
func InitDb(driver, dsn string) (*State, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q (must be sqlite or postgres)", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", driver, err)
	}

	if err := gdb.AutoMigrate(&SeedVector{}, &AuditEvent{}); err != nil {
		return nil, fmt.Errorf("db: migrate: %w", err)
	}

	return &State{DB: gdb}, nil
}
