// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package db

import (
	"testing"
)

func openTestDB(t *testing.T) *State {
	t.Helper()
	s, err := InitDb("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("InitDb: %v", err)
	}
	return s
}

func TestInitDbRejectsUnknownDriver(t *testing.T) {
	if _, err := InitDb("mysql", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestStoreAndVerifyS1(t *testing.T) {
	s := openTestDB(t)
	if err := s.StoreSeedVector(ComputeS1()); err != nil {
		t.Fatalf("StoreSeedVector: %v", err)
	}
	if err := s.VerifyS1(); err != nil {
		t.Fatalf("VerifyS1: %v", err)
	}
}

func TestVerifyS1DetectsTamperedVector(t *testing.T) {
	s := openTestDB(t)
	v := ComputeS1()
	v.ClientKey = append([]byte(nil), v.ClientKey...)
	v.ClientKey[0] ^= 0xFF
	if err := s.StoreSeedVector(v); err != nil {
		t.Fatalf("StoreSeedVector: %v", err)
	}
	if err := s.VerifyS1(); err == nil {
		t.Fatalf("expected VerifyS1 to detect the tampered client key")
	}
}

func TestRecordAndRecentEvents(t *testing.T) {
	s := openTestDB(t)
	connID := "8394c8f03e515708"

	for _, result := range []string{"valid", "incomplete", "valid"} {
		if err := s.RecordEvent(AuditEvent{
			ConnectionID: connID,
			Role:         "server",
			Level:        "initial",
			RecordType:   "client_hello",
			Result:       result,
		}); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	events, err := s.RecentEvents(connID, 2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Result != "valid" {
		t.Fatalf("newest event result = %q, want %q (insertion order 3)", events[0].Result, "valid")
	}
}
