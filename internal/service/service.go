// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// Cache is the slice of the cache manager the service consumes.
type Cache interface {
	GetAllCollections(ctx context.Context, forceRefresh bool) (map[string][]models.Song, []models.OmittedCollection, error)
	GetCollection(ctx context.Context, id string, forceRefresh bool) ([]models.Song, error)
	ClearCache(ctx context.Context) error
	Entry(id string) (*models.CacheEntry, bool)
	SetMustInclude(ids []string)
	Stats() models.CacheStats
}

// Registry is the slice of the persistent-id registry the service
// consumes.
type Registry interface {
	PersistentIDs(ctx context.Context) ([]string, error)
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Reorder(ctx context.Context, collections map[string][]models.Song) ([]models.CollectionData, error)
	DetectCandidates(allIDs []string) []string
}

// Service is the collection view the rest of the application consumes:
// prioritized listings, single-collection reads, search, and the stats
// snapshot. Construct once and share; all methods are safe for
// concurrent use.
type Service struct {
	cache    Cache
	registry Registry

	mu          sync.Mutex
	lastOmitted []models.OmittedCollection
}

// New creates a collection service over the given cache and registry.
func New(cache Cache, registry Registry) *Service {
	return &Service{cache: cache, registry: registry}
}

// GetAll returns every available collection in listing order: pinned
// collections first, in the order they were pinned, then the rest
// ascending by id.
//
// Before reordering, ids matching the seasonal synonym table that are
// actually present with a nonzero song set are promoted into the
// persistent set. Promotion is the standing defense against the
// "seasonal collection silently disappears" failure: once pinned, the
// id stays in every refresh universe and every listing that has data
// for it.
//
// Collections that failed in every source are reported as omission
// markers, never as a listing failure.
func (s *Service) GetAll(ctx context.Context, forceRefresh bool) ([]models.CollectionData, []models.OmittedCollection, error) {
	if err := s.syncMustInclude(ctx); err != nil {
		// The registry being unreadable degrades the guarantee, not the
		// listing; resident and listed ids still refresh normally.
		logging.Warn().Err(err).Msg("Could not pass pinned ids to the cache")
	}

	collections, omitted, err := s.cache.GetAllCollections(ctx, forceRefresh)
	if err != nil {
		return nil, nil, fmt.Errorf("listing collections: %w", err)
	}

	s.promoteCandidates(ctx, collections)

	ordered, err := s.registry.Reorder(ctx, collections)
	if err != nil {
		return nil, nil, fmt.Errorf("ordering collections: %w", err)
	}
	s.annotate(ordered)

	s.mu.Lock()
	s.lastOmitted = omitted
	s.mu.Unlock()
	return ordered, omitted, nil
}

// GetCollection returns one collection's songs via the cache.
func (s *Service) GetCollection(ctx context.Context, id string, forceRefresh bool) ([]models.Song, error) {
	return s.cache.GetCollection(ctx, id, forceRefresh)
}

// ForceRefreshAll re-fetches every collection regardless of freshness
// and returns how many collections the refreshed listing holds.
func (s *Service) ForceRefreshAll(ctx context.Context) (int, error) {
	ordered, _, err := s.GetAll(ctx, true)
	if err != nil {
		return 0, err
	}
	return len(ordered), nil
}

// ClearCacheAndRefresh drops the entire cache and immediately rebuilds
// it from the live sources. The persistent set and migration state
// survive; only collection payloads are dropped.
func (s *Service) ClearCacheAndRefresh(ctx context.Context) (int, error) {
	if err := s.cache.ClearCache(ctx); err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return s.ForceRefreshAll(ctx)
}

// MarkPersistent pins a collection id.
func (s *Service) MarkPersistent(ctx context.Context, id string) error {
	return s.registry.Add(ctx, id)
}

// UnmarkPersistent unpins a collection id.
func (s *Service) UnmarkPersistent(ctx context.Context, id string) error {
	return s.registry.Remove(ctx, id)
}

// Stats assembles the operator-facing snapshot: cache statistics, the
// pinned-id list, the omissions seen on the most recent listing, and
// advisory recommendations. Nothing acts on the recommendations
// automatically.
func (s *Service) Stats(ctx context.Context) (*models.ServiceStats, error) {
	pinned, err := s.registry.PersistentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading persistent ids: %w", err)
	}

	s.mu.Lock()
	omitted := append([]models.OmittedCollection(nil), s.lastOmitted...)
	s.mu.Unlock()

	stats := &models.ServiceStats{
		Cache:         s.cache.Stats(),
		PersistentIDs: pinned,
		Omitted:       omitted,
		GeneratedAt:   time.Now(),
	}
	stats.Recommendations = recommendations(stats)
	return stats, nil
}

// syncMustInclude pushes the current pinned ids into the cache's
// refresh universe.
func (s *Service) syncMustInclude(ctx context.Context) error {
	pinned, err := s.registry.PersistentIDs(ctx)
	if err != nil {
		return err
	}
	s.cache.SetMustInclude(pinned)
	return nil
}

// promoteCandidates pins every seasonal candidate that is present with
// a nonzero song set. Detection proposes, presence decides; an id the
// synonym table matches but no source has data for is left alone.
func (s *Service) promoteCandidates(ctx context.Context, collections map[string][]models.Song) {
	ids := make([]string, 0, len(collections))
	for id := range collections {
		ids = append(ids, id)
	}

	for _, candidate := range s.registry.DetectCandidates(ids) {
		if len(collections[candidate]) == 0 {
			continue
		}
		if err := s.registry.Add(ctx, candidate); err != nil {
			logging.Warn().Err(err).Str("collection_id", candidate).Msg("Could not promote seasonal candidate")
			continue
		}
		logging.Info().
			Str("collection_id", candidate).
			Int("songs", len(collections[candidate])).
			Msg("Seasonal candidate promoted to persistent set")
	}
}

// annotate fills cache provenance onto an ordered listing.
func (s *Service) annotate(ordered []models.CollectionData) {
	for i := range ordered {
		if entry, ok := s.cache.Entry(ordered[i].CollectionID); ok {
			ordered[i].Source = entry.Source
			ordered[i].FetchedAt = entry.FetchedAt
		}
	}
}

// recommendations derives the advisory strings for a stats snapshot.
func recommendations(stats *models.ServiceStats) []string {
	var recs []string
	if len(stats.PersistentIDs) == 0 {
		recs = append(recs, "no collections are marked persistent; pinned collections survive remote listing failures")
	}
	if stats.Cache.Collections == 0 {
		recs = append(recs, "cache is empty; run a force refresh to populate it")
	} else if stats.Cache.StaleEntries > stats.Cache.FreshEntries {
		recs = append(recs, fmt.Sprintf("%d of %d cached collections are stale; consider a force refresh",
			stats.Cache.StaleEntries, stats.Cache.Collections))
	}
	if bundled := stats.Cache.BySource[models.SourceBundled]; bundled > 0 {
		recs = append(recs, fmt.Sprintf("%d collections are serving from bundled assets; the remote source may be unreachable", bundled))
	}
	for _, om := range stats.Omitted {
		recs = append(recs, fmt.Sprintf("collection %q was omitted from the last listing (%s)", om.CollectionID, om.Reason))
	}
	return recs
}
