// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"net/http"

	"github.com/heary-aldy/lpmi40-sub009/internal/middleware"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// statsResponse extends the service stats with API endpoint latency
// aggregates from the in-process performance monitor.
type statsResponse struct {
	*models.ServiceStats
	Endpoints []middleware.EndpointStats `json:"endpoints,omitempty"`
}

// handleStats returns the operator-facing statistics snapshot: cache
// state, persistent configuration, advisory recommendations, and
// per-endpoint latency percentiles.
func (router *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := router.deps.Service.Stats(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := statsResponse{ServiceStats: stats}
	if router.perf != nil {
		resp.Endpoints = router.perf.GetStats()
	}
	respondData(w, http.StatusOK, resp)
}
