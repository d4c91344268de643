// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package models

import "time"

// Source identifies which storage tier a cache entry's songs came from.
type Source string

// Cache entry sources, in fallback order.
const (
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceBundled Source = "bundled"
)

// CacheEntry is one cached collection payload.
//
// FetchedAt is monotonically non-decreasing per CollectionID across
// successive writes: the cache rejects any write carrying an older
// FetchedAt than the entry it would replace, so a slow stale response
// completing late can never clobber fresher data.
type CacheEntry struct {
	CollectionID string    `json:"collection_id"`
	Songs        []Song    `json:"songs"`
	FetchedAt    time.Time `json:"fetched_at"`
	Source       Source    `json:"source"`
}

// FreshWithin reports whether the entry was fetched inside the validity
// window ending at now.
func (e *CacheEntry) FreshWithin(window time.Duration, now time.Time) bool {
	if e == nil || e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) < window
}

// OmissionReason says why a collection is absent from a listing result.
type OmissionReason string

// Omission reasons.
const (
	// OmittedRemoteUnavailable: the remote fetch failed and no cached or
	// bundled copy exists.
	OmittedRemoteUnavailable OmissionReason = "remote_unavailable"

	// OmittedNotFound: no source has ever had data for this id.
	OmittedNotFound OmissionReason = "not_found"
)

// OmittedCollection marks a collection that failed in every source during a
// multi-collection listing. Listings carry these markers instead of failing
// outright when a single collection is unreachable.
type OmittedCollection struct {
	CollectionID string         `json:"collection_id"`
	Reason       OmissionReason `json:"reason"`
}

// CacheStats is a point-in-time summary derived from the current cache
// entry set. It is computed on demand and never stored, so it cannot drift
// from the entries it summarizes.
type CacheStats struct {
	// Collections is the number of entries resident in memory.
	Collections int `json:"collections"`

	// TotalSongs is the sum of song counts across all entries.
	TotalSongs int `json:"total_songs"`

	// FreshEntries and StaleEntries partition the entries by whether
	// FetchedAt is inside the validity window.
	FreshEntries int `json:"fresh_entries"`
	StaleEntries int `json:"stale_entries"`

	// BySource counts entries by the tier that produced them.
	BySource map[Source]int `json:"by_source"`

	// LastSyncAt is the newest FetchedAt across all entries; zero when the
	// cache is empty.
	LastSyncAt time.Time `json:"last_sync_at"`

	// ValidityHours is the configured freshness window, surfaced so
	// operators can interpret the fresh/stale split.
	ValidityHours float64 `json:"validity_hours"`
}
