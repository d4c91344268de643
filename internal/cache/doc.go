// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

/*
Package cache owns the in-memory and persisted cache of collection song
lists and the fetch coordination around it.

The Manager is the only component that mutates cached collection data.
It decides, per collection, which tier serves a request and keeps the
in-memory map, the local store, and the metrics gauges consistent with
each other.

# Serving order

For a single collection the order is:

 1. In-memory entry inside the validity window (no I/O).
 2. Remote source (the fetch path, coalesced per id).
 3. Most recent cached entry, stale but present, memory first then the
    local store.
 4. Bundled assets compiled into the binary.

A collection that fails in every tier is reported as an omission marker
in listing results, never as a listing-wide error. Single-collection
reads surface ErrNotFound instead.

# Fetch coordination

Concurrent fetches for the same id are coalesced into a single flight;
every waiter receives the result of the one underlying remote read.
Waiters can cancel their own wait without cancelling the shared fetch,
which continues and populates the cache for the next caller. Fetches for
distinct ids run in parallel, bounded by cache.max_concurrent_fetches
during bulk refreshes.

# Write discipline

Entry writes are last-writer-wins only when the incoming FetchedAt is at
least as new as the resident one. An older write is discarded, so a slow
stale response completing late can never replace fresher data. Writes to
the same id are serialized by a per-id lock that also covers the
write-through to the local store, keeping memory and disk from
diverging.

# Invalidation

Entries are evicted only by ClearCache, which drops the in-memory map
and the persisted entry namespace. Pinned collection ids and migration
state live under separate store keys and survive a clear. A failed
remote read never evicts; it falls back to the previous entry.
*/
package cache
