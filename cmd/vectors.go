// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qcryptocore/qc-server/internal/db"
)

// vectorsCmd is the parent for the spec.md §8 seed-vector subcommands:
// "print" computes and persists S1 (the only scenario with a context-free
// fixture; S2-S6 depend on a live transcript and are exercised by
// internal/handshake's tests instead), and "verify" recomputes it and
// compares against what was persisted.
var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Compute, print, and verify spec.md §8's named seed vectors",
}

var vectorsPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Compute S1 and store it under its scenario name",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := getState()
		if err != nil {
			return err
		}
		v := db.ComputeS1()
		if err := state.StoreSeedVector(v); err != nil {
			return fmt.Errorf("store S1: %w", err)
		}
		printSeedVector(v)
		return nil
	},
}

var vectorsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute S1 and compare it against the persisted copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := getState()
		if err != nil {
			return err
		}
		if err := state.VerifyS1(); err != nil {
			return err
		}
		fmt.Println("S1: ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vectorsCmd)
	vectorsCmd.AddCommand(vectorsPrintCmd)
	vectorsCmd.AddCommand(vectorsVerifyCmd)
}

func printSeedVector(v db.SeedVector) {
	fmt.Printf("%s: %s\n", v.Name, v.Description)
	fmt.Printf("  cid_initial           = %s\n", hex.EncodeToString(v.CIDInitial))
	fmt.Printf("  initial_secret        = %s\n", hex.EncodeToString(v.InitialSecret))
	fmt.Printf("  client_initial_secret = %s\n", hex.EncodeToString(v.ClientInitialSecret))
	fmt.Printf("  client_key            = %s\n", hex.EncodeToString(v.ClientKey))
	fmt.Printf("  client_iv             = %s\n", hex.EncodeToString(v.ClientIV))
}
