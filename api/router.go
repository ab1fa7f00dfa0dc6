// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package api is the diagnostic HTTP surface cmd/listen.go exposes
// alongside the UDP demo transport (when --http-addr or http.port is set): read-only JSON views over the
// internal/db fixture and audit store, for operational visibility into
// otherwise-opaque handshake state.
//
// Grounded on the teacher's api/handlers package (GET-only, slog-logged,
// JSON-encoded handler functions registered onto a bare http.ServeMux by
// the owning cmd/*.go subcommand) generalized from FDO device/RV-info
// endpoints to this repository's seed-vector and audit-trail domain.
package api

import (
	"net/http"

	"github.com/qcryptocore/qc-server/api/handlers"
	"github.com/qcryptocore/qc-server/internal/db"
)

// Router builds the diagnostic mux for state, mirroring the route shapes
// the teacher's manufacturing/owner/rendezvous subcommands each assemble
// ad hoc (apiRouter := http.NewServeMux(); apiRouter.HandleFunc(...)).
func Router(state *db.State) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.HealthHandler)
	mux.HandleFunc("GET /vectors", handlers.VectorsHandler(state))
	mux.HandleFunc("GET /vectors/{name}", handlers.VectorHandler(state))
	mux.HandleFunc("GET /audit/{connection_id}", handlers.AuditHandler(state))
	return mux
}
