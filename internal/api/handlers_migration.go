// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"errors"
	"net/http"

	"github.com/heary-aldy/lpmi40-sub009/internal/migration"
)

// handleMigrationStatus is read-only: current and target version plus
// the state machine position.
func (router *Router) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	state, err := router.deps.Migration.CheckStatus(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, state)
}

// handleMigrationRun executes the pending migration, or retries a failed
// one. A no-op when already up to date.
func (router *Router) handleMigrationRun(w http.ResponseWriter, r *http.Request) {
	ran, err := router.deps.Migration.RunIfNeeded(r.Context())
	if err != nil {
		if errors.Is(err, migration.ErrMigrationFailed) {
			respondError(w, http.StatusConflict, ErrCodeMigrationFailed,
				"migration failed; data is unchanged, retry or skip explicitly", err)
			return
		}
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"ran": ran,
	})
}

// handleMigrationSkip marks the target version reached without running
// the transformation. For operators who migrated out of band.
func (router *Router) handleMigrationSkip(w http.ResponseWriter, r *http.Request) {
	if err := router.deps.Migration.Skip(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"skipped": true,
	})
}
