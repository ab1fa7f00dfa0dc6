// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hermannm.dev/devlog"

	"github.com/qcryptocore/qc-server/internal/db"
)

var (
	dbDriver string
	dbDSN    string
	debug    bool
	logLevel slog.LevelVar
)

var rootCmd = &cobra.Command{
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Use:   "qc-server",
	Short: "Reference client/server for the QUIC-over-TLS1.3 handshake crypto core",
	Long: `Drives internal/handshake's Connection state machine over a real or
	simulated transport in either role, and prints or verifies the seed
	vectors against a persisted fixture store.
`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	slog.SetDefault(slog.New(devlog.NewHandler(os.Stdout, &devlog.Options{
		Level: &logLevel,
	})))

	rootCmd.PersistentFlags().Bool("debug", false, "Print debug contents")
	rootCmd.PersistentFlags().String("db-driver", "sqlite", "Fixture/audit database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().String("db-dsn", "qc-server.db", "Database DSN (sqlite file path or postgres connection string)")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("db-driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("db-dsn", rootCmd.PersistentFlags().Lookup("db-dsn"))
}

// rootCmdLoadConfig reads the persistent flags subcommands share, mirroring
// the teacher's rootCmdLoadConfig: called once viper's flags are bound and
// any config file is loaded.
func rootCmdLoadConfig() error {
	dbDriver = viper.GetString("db-driver")
	dbDSN = viper.GetString("db-dsn")
	debug = viper.GetBool("debug")
	if debug {
		logLevel.Set(slog.LevelDebug)
	}
	return nil
}

func getState() (*db.State, error) {
	return db.InitDb(dbDriver, dbDSN)
}

// parsePrivateKey loads a PKCS8, SEC1 (EC) or PKCS1 private key from disk,
// PEM-wrapped or raw DER, trying each encoding in turn the way the teacher's key-loading path does.
func parsePrivateKey(keyPath string) (crypto.Signer, error) {
	b, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	if blk, _ := pem.Decode(b); blk != nil {
		b = blk.Bytes
	}
	key, err := x509.ParsePKCS8PrivateKey(b)
	if err == nil {
		return key.(crypto.Signer), nil
	}
	if strings.Contains(err.Error(), "ParseECPrivateKey") {
		ecKey, err := x509.ParseECPrivateKey(b)
		if err != nil {
			return nil, err
		}
		return ecKey, nil
	}
	if strings.Contains(err.Error(), "ParsePKCS1PrivateKey") {
		rsaKey, err := x509.ParsePKCS1PrivateKey(b)
		if err != nil {
			return nil, err
		}
		return rsaKey, nil
	}
	return nil, fmt.Errorf("unable to parse private key %s: %v", keyPath, err)
}
