// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/remote"
	"github.com/heary-aldy/lpmi40-sub009/internal/store"
)

// fetch runs fetchOne through the per-id single flight. Concurrent calls
// for the same id observe exactly one underlying fetch; a caller whose
// context ends stops waiting, but the shared fetch continues and
// populates the cache for the next caller.
func (m *Manager) fetch(ctx context.Context, id string) ([]models.Song, error) {
	ch := m.group.DoChan(id, func() (interface{}, error) {
		// Detached from the waiter's cancellation; the remote client's
		// request timeout still bounds the fetch.
		return m.fetchOne(context.WithoutCancel(ctx), id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.CacheFetchesShared.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.Song), nil
	}
}

// fetchOne attempts the full source chain for one collection:
// remote, then the stale resident entry, then the local store, then
// bundled assets. The first tier with data wins. Only a remote success
// refreshes FetchedAt; fallback tiers serve data as old as it is so the
// next call retries the remote.
func (m *Manager) fetchOne(ctx context.Context, id string) ([]models.Song, error) {
	start := time.Now()
	export, err := m.remote.ReadCollection(ctx, id)
	if err == nil {
		songs := export.SongList(id)
		m.storeEntry(ctx, &models.CacheEntry{
			CollectionID: id,
			Songs:        songs,
			FetchedAt:    time.Now(),
			Source:       models.SourceRemote,
		}, true)
		metrics.RecordFetch(string(models.SourceRemote), time.Since(start), nil)
		return songs, nil
	}
	metrics.RecordFetch(string(models.SourceRemote), time.Since(start), err)

	notFound := errors.Is(err, remote.ErrNotFound)
	if notFound {
		logging.Debug().Str("collection_id", id).Msg("Collection absent from remote, trying fallbacks")
	} else {
		logging.Warn().Err(err).Str("collection_id", id).Msg("Remote fetch failed, trying fallbacks")
	}

	// Stale-but-present beats absent. A failed refresh never evicts the
	// previous entry.
	m.mu.RLock()
	resident := m.entries[id]
	m.mu.RUnlock()
	if resident != nil && len(resident.Songs) > 0 {
		return resident.Songs, nil
	}

	storeStart := time.Now()
	stored, storeErr := m.local.GetEntry(ctx, id)
	switch {
	case storeErr == nil:
		stored.Source = models.SourceLocal
		m.storeEntry(ctx, stored, false)
		metrics.RecordFetch(string(models.SourceLocal), time.Since(storeStart), nil)
		return stored.Songs, nil
	case errors.Is(storeErr, store.ErrCorrupt):
		// Treated as a cache miss; the entry will be rewritten on the
		// next successful remote fetch.
		metrics.RecordFetch(string(models.SourceLocal), time.Since(storeStart), storeErr)
		logging.Warn().Err(storeErr).Str("collection_id", id).Msg("Corrupt cache entry treated as missing")
	}

	if songs, ok := m.bundled.ReadBundled(id); ok {
		// Zero FetchedAt keeps bundled data permanently stale, so every
		// later call retries the remote while this copy keeps serving.
		m.storeEntry(ctx, &models.CacheEntry{
			CollectionID: id,
			Songs:        songs,
			Source:       models.SourceBundled,
		}, false)
		metrics.RecordFetch(string(models.SourceBundled), 0, nil)
		logging.Info().Str("collection_id", id).Msg("Serving bundled copy")
		return songs, nil
	}

	if notFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil, fmt.Errorf("collection %s unavailable in all sources: %w", id, err)
}

// refreshAll fetches every id in the known universe, reusing fresh
// entries unless force is set. Per-id failures become omission markers;
// the listing succeeds as long as the universe itself could be
// determined.
func (m *Manager) refreshAll(ctx context.Context, force bool) (map[string][]models.Song, []models.OmittedCollection, error) {
	start := time.Now()

	universe, listErr := m.universe(ctx)
	if len(universe) == 0 {
		if listErr != nil {
			return nil, nil, listErr
		}
		return map[string][]models.Song{}, nil, nil
	}

	type outcome struct {
		songs []models.Song
		err   error
	}
	results := make([]outcome, len(universe))

	g := new(errgroup.Group)
	g.SetLimit(m.maxConcurrent)

	now := time.Now()
	for i, id := range universe {
		if !force {
			m.mu.RLock()
			entry := m.entries[id]
			m.mu.RUnlock()
			if entry.FreshWithin(m.validity, now) {
				results[i] = outcome{songs: entry.Songs}
				continue
			}
		}
		g.Go(func() error {
			songs, err := m.fetch(ctx, id)
			results[i] = outcome{songs: songs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	collections := make(map[string][]models.Song, len(universe))
	var omitted []models.OmittedCollection
	for i, id := range universe {
		res := results[i]
		if res.err == nil {
			collections[id] = res.songs
			continue
		}
		reason := models.OmittedRemoteUnavailable
		if errors.Is(res.err, ErrNotFound) {
			reason = models.OmittedNotFound
		}
		omitted = append(omitted, models.OmittedCollection{CollectionID: id, Reason: reason})
		metrics.CollectionsOmitted.WithLabelValues(string(reason)).Inc()
	}

	m.updateEntryGauges()
	logging.Info().
		Int("collections", len(collections)).
		Int("omitted", len(omitted)).
		Bool("forced", force).
		Dur("duration", time.Since(start)).
		Msg("Collection refresh completed")
	return collections, omitted, nil
}

// universe determines the set of collection ids a listing should cover:
// the remote listing, every resident id, and the configured
// must-include ids, deduplicated in that order. When the remote listing
// fails the bundled ids stand in for it so a cold offline start still
// surfaces the shipped collections. The listing error is returned
// alongside so an empty universe can propagate it.
func (m *Manager) universe(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	add := func(more ...string) {
		for _, id := range more {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	listed, listErr := m.remote.ListCollectionIDs(ctx)
	if listErr != nil {
		logging.Warn().Err(listErr).Msg("Remote listing failed, refreshing known ids only")
		add(m.bundled.IDs()...)
	} else {
		add(listed...)
	}
	add(m.residentIDs()...)
	m.mu.RLock()
	must := append([]string(nil), m.mustInclude...)
	m.mu.RUnlock()
	add(must...)
	return ids, listErr
}

// residentIDs returns the in-memory entry ids in ascending order.
func (m *Manager) residentIDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
