// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"github.com/qcryptocore/qc-server/internal/db"
)

// VectorsHandler lists the names of spec.md §8's named seed scenarios.
// Exposed as GET /vectors.
func VectorsHandler(state *db.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		slog.Debug("Listing seed vectors")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(db.ScenarioNames)
	}
}

// VectorHandler returns the stored copy of the named seed vector.
// Exposed as GET /vectors/{name}.
func VectorHandler(state *db.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := r.PathValue("name")
		slog.Debug("Fetching seed vector", "name", name)

		v, err := state.LoadSeedVector(name)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.Error(w, "No seed vector found", http.StatusNotFound)
				return
			}
			slog.Error("Error loading seed vector", "name", name, "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Error encoding seed vector response", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}
