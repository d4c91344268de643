// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// Search limits. A request above MaxSearchLimit is clamped, not
// rejected; zero or negative means DefaultSearchLimit.
const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 500
)

// SearchOptions narrows a search.
type SearchOptions struct {
	// Collections restricts the search scope. Empty means every
	// collection in listing order.
	Collections []string

	// Fields selects which song fields to match. Empty means title and
	// lyrics.
	Fields []models.SearchField

	// Limit caps the number of results.
	Limit int
}

// Search runs a case-insensitive substring match over the selected
// fields of every song in the in-scope collections. Results come back
// in listing order (pinned collections first), then song natural order
// within a collection, truncated at the limit. Never fetches: it
// searches whatever the current listing serves, so a search is as
// fresh as the cache is.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]models.SearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	matchTitle, matchLyrics := fieldSelection(opts.Fields)

	ordered, _, err := s.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}

	var scope map[string]bool
	if len(opts.Collections) > 0 {
		scope = make(map[string]bool, len(opts.Collections))
		for _, id := range opts.Collections {
			scope[id] = true
		}
	}

	start := time.Now()
	results := make([]models.SearchResult, 0, limit)
	for _, col := range ordered {
		if scope != nil && !scope[col.CollectionID] {
			continue
		}
		for _, song := range col.Songs {
			matched, field := matchSong(&song, needle, matchTitle, matchLyrics)
			if !matched {
				continue
			}
			results = append(results, models.SearchResult{
				Song:       song,
				MatchedOn:  field,
				Collection: col.CollectionID,
			})
			if len(results) >= limit {
				metrics.RecordSearch(time.Since(start), len(results))
				return results, nil
			}
		}
	}
	metrics.RecordSearch(time.Since(start), len(results))
	return results, nil
}

// fieldSelection resolves the requested fields; empty means both.
func fieldSelection(fields []models.SearchField) (title, lyrics bool) {
	if len(fields) == 0 {
		return true, true
	}
	for _, f := range fields {
		switch f {
		case models.SearchFieldTitle:
			title = true
		case models.SearchFieldLyrics:
			lyrics = true
		}
	}
	return title, lyrics
}

// matchSong checks one song against the lowered needle. Title wins over
// lyrics when both match.
func matchSong(song *models.Song, needle string, matchTitle, matchLyrics bool) (bool, models.SearchField) {
	if matchTitle && strings.Contains(strings.ToLower(song.Title), needle) {
		return true, models.SearchFieldTitle
	}
	if matchLyrics && strings.Contains(strings.ToLower(song.Lyrics()), needle) {
		return true, models.SearchFieldLyrics
	}
	return false, ""
}
