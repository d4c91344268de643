// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package models

import "time"

// ServiceStats aggregates cache statistics, the persistent-collection
// configuration, and advisory recommendations into one operator-facing
// snapshot. Recommendations are informational only; nothing acts on them
// automatically.
type ServiceStats struct {
	Cache           CacheStats `json:"cache"`
	PersistentIDs   []string   `json:"persistent_ids"`
	Omitted         []OmittedCollection `json:"omitted,omitempty"`
	Recommendations []string   `json:"recommendations"`
	GeneratedAt     time.Time  `json:"generated_at"`
}

// SearchField selects which song fields a search query matches against.
type SearchField string

// Searchable fields.
const (
	SearchFieldTitle  SearchField = "title"
	SearchFieldLyrics SearchField = "lyrics"
)

// SearchResult is one matched song, annotated with which field matched
// first (title wins over lyrics when both match).
type SearchResult struct {
	Song       Song        `json:"song"`
	MatchedOn  SearchField `json:"matched_on"`
	Collection string      `json:"collection_id"`
}
