// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package middleware provides HTTP middleware for the API server.
//
// Middleware here wraps http.HandlerFunc (the api package bridges to
// chi's func(http.Handler) http.Handler shape where needed):
//
//   - RequestID: assigns or propagates X-Request-ID and threads it into
//     the logging context for request tracing.
//   - PrometheusMetrics: per-request counter, latency histogram, and
//     active-request gauge.
//   - Compression: gzip response compression for clients that accept it;
//     collection listings full of lyrics compress well.
//   - OperatorGate: constant-time shared-token check guarding the
//     destructive endpoints (backup, restore, migration, cache clear).
//     Fails closed when no token is configured.
//   - PerformanceMonitor: sliding-window per-endpoint latency aggregates
//     exposed through the stats endpoint, independent of Prometheus.
//
// Ordering: RequestID runs first so every later log line carries the id;
// the operator gate runs last, directly around the handler, so refused
// requests are still counted and traced.
package middleware
