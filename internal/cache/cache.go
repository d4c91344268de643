// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// ErrNotFound is returned by single-collection reads when no tier has any
// data for the requested id. Multi-collection listings report the same
// condition as an omission marker instead of an error.
var ErrNotFound = errors.New("collection not found in any source")

// RemoteSource is the slice of the remote client the cache consumes.
type RemoteSource interface {
	ListCollectionIDs(ctx context.Context) ([]string, error)
	ReadCollection(ctx context.Context, id string) (*models.CollectionExport, error)
}

// LocalStore is the slice of the durable store the cache consumes.
// Implementations must be safe for concurrent use.
type LocalStore interface {
	GetEntry(ctx context.Context, id string) (*models.CacheEntry, error)
	SetEntry(ctx context.Context, entry *models.CacheEntry) error
	ForEachEntry(ctx context.Context, fn func(*models.CacheEntry) error) (int, error)
	DropEntries(ctx context.Context) error
}

// BundledSource is the read-only asset fallback compiled into the binary.
type BundledSource interface {
	ReadBundled(id string) ([]models.Song, bool)
	IDs() []string
}

// Manager coordinates the collection cache across memory, the local
// store, the remote source, and bundled assets.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - mu guards the entries map structure.
//   - locks holds one mutex per collection id; conflicting writes to the
//     same id serialize on it (including the store write-through) while
//     writes to distinct ids proceed in parallel.
//   - group coalesces concurrent remote fetches per id.
type Manager struct {
	remote  RemoteSource
	local   LocalStore
	bundled BundledSource

	validity      time.Duration
	maxConcurrent int
	mustInclude   []string

	mu      sync.RWMutex
	entries map[string]*models.CacheEntry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	group singleflight.Group
}

// NewManager creates a cache manager over the given tiers.
//
// The manager starts empty; call Hydrate to preload entries persisted by
// a previous run. Construction performs no I/O.
func NewManager(remote RemoteSource, local LocalStore, bundled BundledSource, cfg config.CacheConfig) *Manager {
	maxConcurrent := cfg.MaxConcurrentFetches
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Manager{
		remote:        remote,
		local:         local,
		bundled:       bundled,
		validity:      cfg.Validity(),
		maxConcurrent: maxConcurrent,
		mustInclude:   cfg.MustInclude,
		entries:       make(map[string]*models.CacheEntry),
		locks:         make(map[string]*sync.Mutex),
	}
}

// Hydrate loads all persisted entries from the local store into memory.
// Entries that fail to decode are skipped; corruption is counted and
// logged, never fatal. Called once at startup before the manager serves
// requests.
func (m *Manager) Hydrate(ctx context.Context) {
	start := time.Now()
	count := 0
	corrupt, err := m.local.ForEachEntry(ctx, func(entry *models.CacheEntry) error {
		// The bytes came from the local store this time around, whatever
		// tier originally produced them.
		entry.Source = models.SourceLocal
		m.storeEntry(ctx, entry, false)
		count++
		return nil
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Cache hydration failed, starting empty")
		return
	}
	m.updateEntryGauges()
	logging.Info().
		Int("entries", count).
		Int("corrupt", corrupt).
		Dur("duration", time.Since(start)).
		Msg("Cache hydrated from local store")
}

// GetAllCollections returns the song lists of every known collection.
//
// Behavior:
//   - With forceRefresh false and every resident entry inside the
//     validity window (and every must-include id resident), the
//     in-memory map is returned directly with zero I/O.
//   - Otherwise the known id universe is refreshed: the remote listing
//     is merged with resident ids and configured must-include ids, and
//     each stale id is fetched with per-id coalescing, bounded by the
//     concurrency cap.
//   - A collection failing in every tier becomes an omission marker in
//     the second return value; it never fails the listing.
//
// The returned map is a copy; the song slices are shared and must be
// treated as read-only.
func (m *Manager) GetAllCollections(ctx context.Context, forceRefresh bool) (map[string][]models.Song, []models.OmittedCollection, error) {
	if !forceRefresh {
		if snapshot, ok := m.freshSnapshot(); ok {
			metrics.CacheHits.Inc()
			return snapshot, nil, nil
		}
	}
	metrics.CacheMisses.Inc()
	return m.refreshAll(ctx, forceRefresh)
}

// GetCollection returns one collection's songs, serving the resident
// entry when it is fresh and forceRefresh is false, otherwise fetching
// through the per-id single flight. Callers requesting different ids
// never block on each other.
func (m *Manager) GetCollection(ctx context.Context, id string, forceRefresh bool) ([]models.Song, error) {
	if !forceRefresh {
		m.mu.RLock()
		entry := m.entries[id]
		m.mu.RUnlock()
		if entry.FreshWithin(m.validity, time.Now()) {
			metrics.CacheHits.Inc()
			return entry.Songs, nil
		}
	}
	metrics.CacheMisses.Inc()
	return m.fetch(ctx, id)
}

// ClearCache drops every in-memory and persisted collection entry.
// Pinned ids and migration state are stored under separate keys and are
// not touched.
func (m *Manager) ClearCache(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]*models.CacheEntry)
	m.mu.Unlock()

	if err := m.local.DropEntries(ctx); err != nil {
		return err
	}
	m.updateEntryGauges()
	logging.Info().Msg("Collection cache cleared")
	return nil
}

// SetMustInclude replaces the set of ids every listing must attempt.
// The service keeps this aligned with the persistent-id registry so a
// pinned collection stays in the refresh universe even when the remote
// listing omits it. The configured must-include ids are the initial
// value.
func (m *Manager) SetMustInclude(ids []string) {
	m.mu.Lock()
	m.mustInclude = append([]string(nil), ids...)
	m.mu.Unlock()
}

// Entry returns the resident cache entry for id, if any.
func (m *Manager) Entry(id string) (*models.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[id]
	return entry, ok
}

// freshSnapshot returns a copy of the in-memory map when every resident
// entry is inside the validity window and every must-include id is
// resident. The second return value is false when any entry is stale,
// absent, or the cache is empty.
func (m *Manager) freshSnapshot() (map[string][]models.Song, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, false
	}
	for _, id := range m.mustInclude {
		if _, ok := m.entries[id]; !ok {
			return nil, false
		}
	}

	now := time.Now()
	snapshot := make(map[string][]models.Song, len(m.entries))
	for id, entry := range m.entries {
		if !entry.FreshWithin(m.validity, now) {
			return nil, false
		}
		snapshot[id] = entry.Songs
	}
	return snapshot, true
}

// lockFor returns the write lock for a collection id, creating it on
// first use. Lock instances are never removed; the id space is small and
// stable.
func (m *Manager) lockFor(id string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// storeEntry applies a cache entry write under the per-id lock.
//
// The write is accepted only when entry.FetchedAt is at least as new as
// the resident entry's; an older write is discarded and false returned.
// With persist set the accepted entry is also written through to the
// local store while the id lock is still held, so disk can never end up
// newer than memory for the same id.
func (m *Manager) storeEntry(ctx context.Context, entry *models.CacheEntry, persist bool) bool {
	lock := m.lockFor(entry.CollectionID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	existing := m.entries[entry.CollectionID]
	m.mu.RUnlock()
	if existing != nil && entry.FetchedAt.Before(existing.FetchedAt) {
		logging.Debug().
			Str("collection_id", entry.CollectionID).
			Time("incoming", entry.FetchedAt).
			Time("resident", existing.FetchedAt).
			Msg("Discarded stale cache write")
		return false
	}

	m.mu.Lock()
	m.entries[entry.CollectionID] = entry
	m.mu.Unlock()

	if persist {
		if err := m.local.SetEntry(ctx, entry); err != nil {
			logging.Warn().Err(err).
				Str("collection_id", entry.CollectionID).
				Msg("Failed to persist cache entry")
		}
	}
	return true
}

// updateEntryGauges recomputes the per-source entry count gauges from
// the resident map.
func (m *Manager) updateEntryGauges() {
	counts := make(map[models.Source]int)
	m.mu.RLock()
	for _, entry := range m.entries {
		counts[entry.Source]++
	}
	m.mu.RUnlock()

	for _, source := range []models.Source{models.SourceRemote, models.SourceLocal, models.SourceBundled} {
		metrics.CacheEntries.WithLabelValues(string(source)).Set(float64(counts[source]))
	}
}
