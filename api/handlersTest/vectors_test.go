// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package handlersTest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/qcryptocore/qc-server/api/handlers"
	"github.com/qcryptocore/qc-server/internal/db"
)

// setupTestState opens a temporary sqlite-backed db.State, mirroring the
// teacher's setupTestOwnerServer's temp-database-per-test pattern.
func setupTestState(t *testing.T) *db.State {
	t.Helper()
	tempFile, err := os.CreateTemp("", "vectors_test_*.db")
	if err != nil {
		t.Fatalf("failed to create temp database: %v", err)
	}
	tempFile.Close()
	t.Cleanup(func() { os.Remove(tempFile.Name()) })

	state, err := db.InitDb("sqlite", tempFile.Name())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	return state
}

func TestVectorsHandler(t *testing.T) {
	state := setupTestState(t)

	req := httptest.NewRequest(http.MethodGet, "/vectors", nil)
	recorder := httptest.NewRecorder()

	handlers.VectorsHandler(state)(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var names []string
	if err := json.NewDecoder(recorder.Body).Decode(&names); err != nil {
		t.Fatalf("unable to parse response: %v", err)
	}
	if len(names) != len(db.ScenarioNames) {
		t.Errorf("expected %d scenario names, got %d", len(db.ScenarioNames), len(names))
	}
}

func TestVectorHandler(t *testing.T) {
	state := setupTestState(t)

	t.Run("not found before storing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/vectors/S1", nil)
		req.SetPathValue("name", "S1")
		recorder := httptest.NewRecorder()

		handlers.VectorHandler(state)(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
		}
	})

	t.Run("found after storing", func(t *testing.T) {
		want := db.ComputeS1()
		if err := state.StoreSeedVector(want); err != nil {
			t.Fatalf("failed to store S1 vector: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/vectors/S1", nil)
		req.SetPathValue("name", "S1")
		recorder := httptest.NewRecorder()

		handlers.VectorHandler(state)(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
		}
		var got db.SeedVector
		if err := json.NewDecoder(recorder.Body).Decode(&got); err != nil {
			t.Fatalf("unable to parse response: %v", err)
		}
		if got.Name != want.Name {
			t.Errorf("expected name %q, got %q", want.Name, got.Name)
		}
	})

	t.Run("POST not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/vectors/S1", nil)
		req.SetPathValue("name", "S1")
		recorder := httptest.NewRecorder()

		handlers.VectorHandler(state)(recorder, req)

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, recorder.Code)
		}
	})
}
