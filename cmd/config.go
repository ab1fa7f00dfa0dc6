// SPDX-FileCopyrightText: (C) 2025 Red Hat Inc.
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qcryptocore/qc-server/internal/db"
)

// Log configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Configuration for the diagnostic HTTP endpoint (api.Router)
type HTTPConfig struct {
	IP   string `mapstructure:"ip"`
	Port string `mapstructure:"port"`
}

// Database configuration for the seed-vector/audit fixture store
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// QCServerConfig holds the contents of the configuration file shared by the
// listen and dial subcommands.
type QCServerConfig struct {
	Log  LogConfig      `mapstructure:"log"`
	DB   DatabaseConfig `mapstructure:"db"`
	HTTP HTTPConfig     `mapstructure:"http"`
}

// ListenAddress returns the concatenated IP:Port address for the
// diagnostic HTTP endpoint.
func (h *HTTPConfig) ListenAddress() string {
	return h.IP + ":" + h.Port
}

func (dc *DatabaseConfig) getState() (*db.State, error) {
	if dc.DSN == "" {
		return nil, errors.New("database configuration error: dsn is required")
	}
	dc.Driver = strings.ToLower(dc.Driver)
	if dc.Driver != "sqlite" && dc.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (must be 'sqlite' or 'postgres')", dc.Driver)
	}
	return db.InitDb(dc.Driver, dc.DSN)
}
