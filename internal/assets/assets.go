// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package assets serves the collections compiled into the binary. They are
// the last tier of the fetch fallback chain: consulted only when both the
// remote source and the local store have nothing for an id.
package assets

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

//go:embed collections/*.json
var bundledFS embed.FS

// Source holds the parsed bundled collections. Read-only after New.
type Source struct {
	collections map[string]*models.CollectionExport
}

// New parses every embedded collection file. The file name (without
// extension) is the collection id.
func New() (*Source, error) {
	entries, err := bundledFS.ReadDir("collections")
	if err != nil {
		return nil, fmt.Errorf("read bundled collections: %w", err)
	}

	s := &Source{collections: make(map[string]*models.CollectionExport, len(entries))}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := bundledFS.ReadFile("collections/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read bundled %s: %w", entry.Name(), err)
		}

		var export models.CollectionExport
		if err := json.Unmarshal(data, &export); err != nil {
			return nil, fmt.Errorf("parse bundled %s: %w", entry.Name(), err)
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		s.collections[id] = &export
	}

	return s, nil
}

// ReadBundled returns the bundled songs for an id in natural number order.
// The second return is false when the id is not bundled.
func (s *Source) ReadBundled(id string) ([]models.Song, bool) {
	export, ok := s.collections[id]
	if !ok {
		return nil, false
	}
	return export.SongList(id), true
}

// Meta returns the bundled metadata for an id.
func (s *Source) Meta(id string) (models.CollectionMeta, bool) {
	export, ok := s.collections[id]
	if !ok {
		return models.CollectionMeta{}, false
	}
	return export.Metadata, true
}

// IDs returns all bundled collection ids in ascending order.
func (s *Source) IDs() []string {
	ids := make([]string, 0, len(s.collections))
	for id := range s.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
