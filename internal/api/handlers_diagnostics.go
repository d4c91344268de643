// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/validation"
)

// handleInvestigate probes a collection id and its aliases across every
// storage tier. Read-only.
func (router *Router) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsCollectionID(id) {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "invalid collection id", nil)
		return
	}

	report, err := router.deps.Diagnostics.Investigate(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, report)
}

// handleDiagnosticsHealth reports persistent-collection health. The HTTP
// status mirrors the report so monitoring can alert on status code
// alone: 200 healthy, 207 degraded, 503 critical.
func (router *Router) handleDiagnosticsHealth(w http.ResponseWriter, r *http.Request) {
	report, err := router.deps.Diagnostics.HealthCheck(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusOK
	switch report.Status {
	case models.HealthDegraded:
		status = http.StatusMultiStatus
	case models.HealthCritical:
		status = http.StatusServiceUnavailable
	}
	respondData(w, status, report)
}
