// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package models

import "strings"

// Verse is one labeled block of a song's lyrics ("1", "2", "Korus", ...).
type Verse struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Song is a single hymn within a collection.
//
// Number is the natural sort and display key, unique within its collection.
// It may be zero-padded ("001" vs "1"); padding width is a storage-format
// concern handled by migration, not part of song identity.
type Song struct {
	Number       string  `json:"number"`
	Title        string  `json:"title"`
	Verses       []Verse `json:"verses"`
	AudioRef     string  `json:"audio_ref,omitempty"`
	CollectionID string  `json:"collection_id"`
}

// Lyrics returns the song's verse texts joined with newlines.
// Used by full-text search; verse labels are not part of the lyrics.
func (s *Song) Lyrics() string {
	if len(s.Verses) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.Verses))
	for _, v := range s.Verses {
		parts = append(parts, v.Text)
	}
	return strings.Join(parts, "\n")
}
