// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the collection engine using the Prometheus client
library, exposing metrics for monitoring performance, errors, and system health.

# Overview

The package provides metrics for:
  - Collection fetches by source (remote, local, bundled) and outcome
  - Cache hit/miss rates and entry counts
  - Remote request latency, retries, and circuit breaker state
  - Local store operation performance (BadgerDB)
  - HTTP request latency and throughput
  - Background sync statistics
  - Migration and backup runs

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8180/metrics

All collectors are registered with the default registry via promauto at
package initialization, so importing the package is enough to activate them.
*/
package metrics
