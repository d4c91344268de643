// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

/*
Package remote implements the client for the remote collection database, a
Firebase-style REST store addressing collections by flat id:

	GET  {base}/collections.json?shallow=true   list collection ids
	GET  {base}/collections/{id}.json           read one collection export
	PUT  {base}/collections/{id}/songs.json     replace a collection's songs
	PUT  {base}/collections/{id}.json           replace a whole collection

The client layers three resilience mechanisms:

  - A client-side token bucket (golang.org/x/time/rate) smooths request
    bursts before they reach the wire.
  - HTTP 429 responses are retried with exponential backoff (1s, 2s, 4s,
    ...) honoring Retry-After.
  - A circuit breaker (sony/gobreaker) fails fast once the remote is
    clearly down, so bulk refreshes degrade to cached data quickly instead
    of timing out id by id.

Network failures, timeouts, and open-breaker rejections all surface as
ErrRemoteUnavailable so callers can trigger the local-store fallback chain
without inspecting causes.
*/
package remote
