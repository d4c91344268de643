// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package api provides the HTTP surface of the engine: a chi router over
// the collection service, migration manager, diagnostics tool, and
// backup manager, plus health and metrics endpoints.
//
// All endpoints live under /api/v1 and reply with the models.APIResponse
// envelope. Read endpoints are open; destructive endpoints (refresh,
// cache clear, migration run/skip, backup create/restore/delete) sit
// behind the operator token gate, which fails closed when no token is
// configured.
//
// Route groups:
//
//	/health, /health/live, /health/ready    liveness and readiness
//	/api/v1/collections                     listing, single fetch, refresh, clear
//	/api/v1/search                          song search
//	/api/v1/stats                           cache and service statistics
//	/api/v1/persistent                      persistent id set and candidates
//	/api/v1/migration                       migration status, run, skip
//	/api/v1/diagnostics                     investigation and health reports
//	/api/v1/backups                         backup lifecycle and restore
//	/metrics                                Prometheus exposition (optional)
package api
