// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// fakeCache implements Cache over a fixed collection map.
type fakeCache struct {
	mu          sync.Mutex
	collections map[string][]models.Song
	omitted     []models.OmittedCollection
	entries     map[string]*models.CacheEntry
	listErr     error
	mustInclude []string
	clearCalls  int
	forceCalls  int
}

func (f *fakeCache) GetAllCollections(ctx context.Context, forceRefresh bool) (map[string][]models.Song, []models.OmittedCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if forceRefresh {
		f.forceCalls++
	}
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	out := make(map[string][]models.Song, len(f.collections))
	for id, songs := range f.collections {
		out[id] = songs
	}
	return out, f.omitted, nil
}

func (f *fakeCache) GetCollection(ctx context.Context, id string, forceRefresh bool) ([]models.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	songs, ok := f.collections[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return songs, nil
}

func (f *fakeCache) ClearCache(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	return nil
}

func (f *fakeCache) Entry(id string) (*models.CacheEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	return entry, ok
}

func (f *fakeCache) SetMustInclude(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mustInclude = append([]string(nil), ids...)
}

func (f *fakeCache) Stats() models.CacheStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := models.CacheStats{
		Collections: len(f.collections),
		BySource:    make(map[models.Source]int),
	}
	for _, songs := range f.collections {
		stats.TotalSongs += len(songs)
	}
	return stats
}

// fakeRegistry implements Registry with an in-memory ordered set and a
// fixed candidate heuristic (ids containing "christmas").
type fakeRegistry struct {
	mu     sync.Mutex
	pinned []string
	getErr error
	addErr error
}

func (f *fakeRegistry) PersistentIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]string(nil), f.pinned...), nil
}

func (f *fakeRegistry) Add(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	for _, existing := range f.pinned {
		if existing == id {
			return nil
		}
	}
	f.pinned = append(f.pinned, id)
	return nil
}

func (f *fakeRegistry) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.pinned[:0]
	for _, existing := range f.pinned {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	f.pinned = kept
	return nil
}

func (f *fakeRegistry) Reorder(ctx context.Context, collections map[string][]models.Song) ([]models.CollectionData, error) {
	f.mu.Lock()
	pinned := append([]string(nil), f.pinned...)
	f.mu.Unlock()

	var ordered []models.CollectionData
	taken := make(map[string]bool)
	for _, id := range pinned {
		if songs, ok := collections[id]; ok {
			taken[id] = true
			ordered = append(ordered, models.CollectionData{CollectionID: id, Songs: songs, Persistent: true})
		}
	}
	var rest []string
	for id := range collections {
		if !taken[id] {
			rest = append(rest, id)
		}
	}
	for i := 0; i < len(rest); i++ {
		for j := i + 1; j < len(rest); j++ {
			if rest[j] < rest[i] {
				rest[i], rest[j] = rest[j], rest[i]
			}
		}
	}
	for _, id := range rest {
		ordered = append(ordered, models.CollectionData{CollectionID: id, Songs: collections[id]})
	}
	return ordered, nil
}

func (f *fakeRegistry) DetectCandidates(allIDs []string) []string {
	var out []string
	for _, id := range allIDs {
		if strings.Contains(strings.ToLower(id), "christmas") {
			out = append(out, id)
		}
	}
	return out
}

func songs(titles ...string) []models.Song {
	out := make([]models.Song, len(titles))
	for i, title := range titles {
		out[i] = models.Song{Number: string(rune('1' + i)), Title: title}
	}
	return out
}

func TestGetAllPinnedFirst(t *testing.T) {
	cache := &fakeCache{collections: map[string][]models.Song{
		"lpmi":      songs("A"),
		"srd":       songs("B"),
		"christmas": songs("C1", "C2"),
	}}
	registry := &fakeRegistry{pinned: []string{"christmas"}}
	svc := New(cache, registry)

	ordered, omitted, err := svc.GetAll(context.Background(), false)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(omitted) != 0 {
		t.Errorf("omitted = %v, want none", omitted)
	}

	wantOrder := []string{"christmas", "lpmi", "srd"}
	if len(ordered) != len(wantOrder) {
		t.Fatalf("got %d collections, want %d", len(ordered), len(wantOrder))
	}
	for i, want := range wantOrder {
		if ordered[i].CollectionID != want {
			t.Errorf("ordered[%d] = %q, want %q", i, ordered[i].CollectionID, want)
		}
	}
	if !ordered[0].Persistent {
		t.Error("pinned collection not flagged persistent")
	}
}

func TestGetAllPassesPinnedAsMustInclude(t *testing.T) {
	cache := &fakeCache{collections: map[string][]models.Song{"lpmi": songs("A")}}
	registry := &fakeRegistry{pinned: []string{"christmas", "advent"}}
	svc := New(cache, registry)

	if _, _, err := svc.GetAll(context.Background(), false); err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if len(cache.mustInclude) != 2 || cache.mustInclude[0] != "christmas" {
		t.Errorf("mustInclude = %v, want [christmas advent]", cache.mustInclude)
	}
}

func TestGetAllPromotesPresentCandidates(t *testing.T) {
	cache := &fakeCache{collections: map[string][]models.Song{
		"lpmi":            songs("A"),
		"lagu_christmas":  songs("C1", "C2"),
		"christmas_empty": {},
	}}
	registry := &fakeRegistry{}
	svc := New(cache, registry)

	if _, _, err := svc.GetAll(context.Background(), false); err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}

	pinned, _ := registry.PersistentIDs(context.Background())
	if len(pinned) != 1 || pinned[0] != "lagu_christmas" {
		t.Errorf("pinned = %v, want only the nonzero candidate", pinned)
	}
}

func TestGetAllAnnotatesProvenance(t *testing.T) {
	fetched := time.Now().Add(-2 * time.Hour)
	cache := &fakeCache{
		collections: map[string][]models.Song{"lpmi": songs("A")},
		entries: map[string]*models.CacheEntry{
			"lpmi": {CollectionID: "lpmi", Source: models.SourceLocal, FetchedAt: fetched},
		},
	}
	svc := New(cache, &fakeRegistry{})

	ordered, _, err := svc.GetAll(context.Background(), false)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if ordered[0].Source != models.SourceLocal {
		t.Errorf("Source = %q, want local", ordered[0].Source)
	}
	if !ordered[0].FetchedAt.Equal(fetched) {
		t.Errorf("FetchedAt = %v, want %v", ordered[0].FetchedAt, fetched)
	}
}

func TestGetAllListErrorPropagates(t *testing.T) {
	cache := &fakeCache{listErr: errors.New("remote down")}
	svc := New(cache, &fakeRegistry{})

	if _, _, err := svc.GetAll(context.Background(), false); err == nil {
		t.Fatal("GetAll() error = nil, want listing failure")
	}
}

func TestGetAllSurvivesRegistryReadFailure(t *testing.T) {
	cache := &fakeCache{collections: map[string][]models.Song{"lpmi": songs("A")}}
	registry := &fakeRegistry{}
	svc := New(cache, registry)

	// An unreadable registry degrades the must-include guarantee but
	// must not fail the listing itself.
	registry.getErr = errors.New("store closed")
	ordered, _, err := svc.GetAll(context.Background(), false)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(ordered) != 1 {
		t.Errorf("got %d collections, want 1", len(ordered))
	}
}

func TestClearCacheAndRefresh(t *testing.T) {
	cache := &fakeCache{collections: map[string][]models.Song{
		"lpmi": songs("A"),
		"srd":  songs("B"),
	}}
	svc := New(cache, &fakeRegistry{})

	count, err := svc.ClearCacheAndRefresh(context.Background())
	if err != nil {
		t.Fatalf("ClearCacheAndRefresh() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.clearCalls != 1 {
		t.Errorf("clearCalls = %d, want 1", cache.clearCalls)
	}
	if cache.forceCalls != 1 {
		t.Errorf("forceCalls = %d, want 1", cache.forceCalls)
	}
}

func TestMarkUnmarkPersistent(t *testing.T) {
	registry := &fakeRegistry{}
	svc := New(&fakeCache{collections: map[string][]models.Song{}}, registry)
	ctx := context.Background()

	if err := svc.MarkPersistent(ctx, "srd"); err != nil {
		t.Fatalf("MarkPersistent() error = %v", err)
	}
	pinned, _ := registry.PersistentIDs(ctx)
	if len(pinned) != 1 || pinned[0] != "srd" {
		t.Fatalf("pinned = %v, want [srd]", pinned)
	}

	if err := svc.UnmarkPersistent(ctx, "srd"); err != nil {
		t.Fatalf("UnmarkPersistent() error = %v", err)
	}
	pinned, _ = registry.PersistentIDs(ctx)
	if len(pinned) != 0 {
		t.Fatalf("pinned after unmark = %v, want empty", pinned)
	}
}

func TestStatsRecommendations(t *testing.T) {
	t.Run("empty system", func(t *testing.T) {
		svc := New(&fakeCache{collections: map[string][]models.Song{}}, &fakeRegistry{})
		stats, err := svc.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(stats.Recommendations) < 2 {
			t.Errorf("recommendations = %v, want no-pins and empty-cache advisories", stats.Recommendations)
		}
	})

	t.Run("omissions surface", func(t *testing.T) {
		cache := &fakeCache{
			collections: map[string][]models.Song{"lpmi": songs("A")},
			omitted:     []models.OmittedCollection{{CollectionID: "srd", Reason: models.OmittedRemoteUnavailable}},
		}
		svc := New(cache, &fakeRegistry{pinned: []string{"lpmi"}})

		if _, _, err := svc.GetAll(context.Background(), false); err != nil {
			t.Fatalf("GetAll() error = %v", err)
		}
		stats, err := svc.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if len(stats.Omitted) != 1 || stats.Omitted[0].CollectionID != "srd" {
			t.Errorf("Omitted = %v, want srd marker", stats.Omitted)
		}
		found := false
		for _, rec := range stats.Recommendations {
			if strings.Contains(rec, "srd") {
				found = true
			}
		}
		if !found {
			t.Errorf("recommendations %v do not mention the omitted collection", stats.Recommendations)
		}
	})
}
