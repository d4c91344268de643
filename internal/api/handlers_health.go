// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"net/http"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// handleHealth returns the full health payload: store and remote
// connectivity, last refresh, uptime. The remote being down does not
// make the service unhealthy; serving from the local store is the
// designed degraded mode, so the status stays "ok" as long as the
// process can serve anything at all.
func (router *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:  "ok",
		Version: router.deps.Version,
		Uptime:  time.Since(router.started).Seconds(),
	}
	if router.deps.StoreConnected != nil {
		status.StoreConnected = router.deps.StoreConnected()
	}
	if router.deps.RemoteConnected != nil {
		status.RemoteConnected = router.deps.RemoteConnected(r.Context())
	}
	if router.deps.Refresh != nil {
		if last := router.deps.Refresh.LastSyncTime(); !last.IsZero() {
			status.LastRefreshAt = &last
		}
	}
	if !status.StoreConnected {
		status.Status = "degraded"
	}

	respondData(w, http.StatusOK, status)
}

// handleLive is the liveness probe: the process is up.
func (router *Router) handleLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReady is the readiness probe: ready once the local store is
// open. Remote availability deliberately does not gate readiness.
func (router *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	if router.deps.StoreConnected != nil && !router.deps.StoreConnected() {
		respondError(w, http.StatusServiceUnavailable, ErrCodeInternal, "local store not ready", nil)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"})
}
