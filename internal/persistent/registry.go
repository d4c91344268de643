// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package persistent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// SettingsStore is the slice of the durable store the registry consumes.
type SettingsStore interface {
	GetPersistentIDs(ctx context.Context) ([]string, error)
	SetPersistentIDs(ctx context.Context, ids []string) error
}

// Registry is the durable ordered set of pinned collection ids.
//
// The stored order is insertion order; Reorder surfaces pins in exactly
// that order, which makes "first pinned, first listed" stable across
// restarts. All read-modify-write cycles on the stored list are
// serialized by an internal mutex.
type Registry struct {
	store   SettingsStore
	matcher *synonymMatcher

	mu sync.Mutex
}

// NewRegistry creates a registry over the given settings store and the
// configured seasonal synonyms.
func NewRegistry(store SettingsStore, cfg config.PersistentConfig) *Registry {
	return &Registry{
		store:   store,
		matcher: newSynonymMatcher(cfg.SeasonalSynonyms),
	}
}

// PersistentIDs returns the pinned ids in the order they were added.
// An empty registry yields an empty slice, never nil error.
func (r *Registry) PersistentIDs(ctx context.Context) ([]string, error) {
	ids, err := r.store.GetPersistentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading persistent ids: %w", err)
	}
	return ids, nil
}

// Add pins a collection id. Adding an id that is already pinned is a
// no-op; the original insertion position is kept.
func (r *Registry) Add(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("persistent id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.store.GetPersistentIDs(ctx)
	if err != nil {
		return fmt.Errorf("reading persistent ids: %w", err)
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}

	ids = append(ids, id)
	if err := r.store.SetPersistentIDs(ctx, ids); err != nil {
		return fmt.Errorf("writing persistent ids: %w", err)
	}
	logging.Info().Str("collection_id", id).Int("pinned", len(ids)).Msg("Collection pinned")
	return nil
}

// Remove unpins a collection id. Removing an id that is not pinned is a
// no-op.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.store.GetPersistentIDs(ctx)
	if err != nil {
		return fmt.Errorf("reading persistent ids: %w", err)
	}

	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}

	if err := r.store.SetPersistentIDs(ctx, kept); err != nil {
		return fmt.Errorf("writing persistent ids: %w", err)
	}
	logging.Info().Str("collection_id", id).Int("pinned", len(kept)).Msg("Collection unpinned")
	return nil
}

// Reorder arranges a fetched collection map into the listing order:
// pinned ids first, in the order they were added, then the remaining
// ids ascending. A pinned id absent from the map is skipped, never
// synthesized with empty data; the guarantee is "don't drop it when
// present", not "fabricate it when absent".
func (r *Registry) Reorder(ctx context.Context, collections map[string][]models.Song) ([]models.CollectionData, error) {
	pinned, err := r.PersistentIDs(ctx)
	if err != nil {
		return nil, err
	}

	ordered := make([]models.CollectionData, 0, len(collections))
	taken := make(map[string]bool, len(pinned))
	for _, id := range pinned {
		songs, ok := collections[id]
		if !ok {
			continue
		}
		taken[id] = true
		ordered = append(ordered, models.CollectionData{
			CollectionID: id,
			Songs:        songs,
			Persistent:   true,
		})
	}

	rest := make([]string, 0, len(collections))
	for id := range collections {
		if !taken[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		ordered = append(ordered, models.CollectionData{
			CollectionID: id,
			Songs:        collections[id],
		})
	}
	return ordered, nil
}

// DetectCandidates proposes pin candidates from the given ids by
// matching them against the configured seasonal synonyms. Pure: the
// registry is never mutated, callers decide whether to promote a
// candidate. Input order is preserved, duplicates dropped.
func (r *Registry) DetectCandidates(allIDs []string) []string {
	var candidates []string
	seen := make(map[string]bool)
	for _, id := range allIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if r.matcher.matches(id) {
			candidates = append(candidates, id)
		}
	}
	return candidates
}

// MatchedSynonyms explains which synonyms fired for an id. Diagnostics
// uses this to report why a candidate was proposed.
func (r *Registry) MatchedSynonyms(id string) []string {
	return r.matcher.matchedSynonyms(id)
}
