// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/qcryptocore/qc-server/internal/db"
)

// defaultAuditLimit caps how many audit rows a single request returns when
// the caller doesn't ask for a specific limit.
const defaultAuditLimit = 50

// AuditHandler returns the audit trail (validator verdicts and level
// transitions) recorded for one connection, newest first. Exposed as
// GET /audit/{connection_id}, with an optional ?limit= query parameter.
func AuditHandler(state *db.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		connID := r.PathValue("connection_id")
		limit := defaultAuditLimit
		if q := r.URL.Query().Get("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n <= 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		slog.Debug("Fetching audit trail", "connection_id", connID, "limit", limit)

		events, err := state.RecentEvents(connID, limit)
		if err != nil {
			slog.Error("Error fetching audit trail", "connection_id", connID, "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(events); err != nil {
			slog.Error("Error encoding audit response", "err", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}
