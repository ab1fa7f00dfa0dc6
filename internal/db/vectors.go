// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package db

import (
	"bytes"
	"fmt"

	"github.com/qcryptocore/qc-server/internal/kdf"
	"github.com/qcryptocore/qc-server/internal/keyschedule"
)

// S1CIDInitial is the RFC 9001 Appendix A.1 example destination connection
// ID, the fixed input spec.md §8's S1 scenario is defined against.
var S1CIDInitial = []byte{0x83, 0x94, 0xc8, 0xf0, 0x3e, 0x51, 0x57, 0x08}

// ComputeS1 derives the S1 seed vector (spec.md §8): the RFC-v1 initial
// secret and client-direction Initial key/IV for S1CIDInitial.
func ComputeS1() SeedVector {
	var sched keyschedule.Schedule
	sched.DeriveInitial(S1CIDInitial)

	initialSecret := kdf.Extract(S1CIDInitial, keyschedule.InitialSaltV1)
	clientInitialSecret := kdf.ExpandLabel(initialSecret, "client in", nil, kdf.HashSize)

	return SeedVector{
		Name:                "S1",
		Description:         "RFC-v1 initial secrets for cid=0x8394c8f03e515708",
		CIDInitial:           append([]byte(nil), S1CIDInitial...),
		InitialSecret:        initialSecret,
		ClientInitialSecret:  clientInitialSecret,
		ClientKey:            sched.Initial.Client.Key,
		ClientIV:             sched.Initial.Client.IV,
	}
}

// StoreSeedVector upserts v by name.
func (s *State) StoreSeedVector(v SeedVector) error {
	return s.DB.Save(&v).Error
}

// LoadSeedVector reads a previously stored vector by name.
func (s *State) LoadSeedVector(name string) (SeedVector, error) {
	var v SeedVector
	err := s.DB.First(&v, "name = ?", name).Error
	return v, err
}

// VerifyS1 recomputes S1 and compares it against what is stored under that
// name, returning an error describing the first field that diverges.
func (s *State) VerifyS1() error {
	want := ComputeS1()
	got, err := s.LoadSeedVector("S1")
	if err != nil {
		return fmt.Errorf("db: load S1: %w", err)
	}
	switch {
	case !bytes.Equal(got.InitialSecret, want.InitialSecret):
		return fmt.Errorf("db: S1 initial_secret mismatch")
	case !bytes.Equal(got.ClientInitialSecret, want.ClientInitialSecret):
		return fmt.Errorf("db: S1 client_initial_secret mismatch")
	case !bytes.Equal(got.ClientKey, want.ClientKey):
		return fmt.Errorf("db: S1 client_key mismatch")
	case !bytes.Equal(got.ClientIV, want.ClientIV):
		return fmt.Errorf("db: S1 client_iv mismatch")
	}
	return nil
}
