// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

/*
Package service composes the collection cache and the persistent-id
registry into the prioritized, deduplicated collection view the rest of
the application consumes.

Every listing runs through the same pipeline: fetch via the cache (which
handles freshness, coalescing, and the remote/local/bundled fallback
chain), auto-promote detected seasonal candidates into the persistent
set, then reorder so pinned collections always lead. The promotion step
is what keeps a seasonal collection from silently vanishing when a
flaky remote listing omits it: once promoted, the cache treats it as
must-include and the registry guarantees its position.

The service also provides cross-collection song search and the
operator-facing stats snapshot with advisory recommendations.
*/
package service
