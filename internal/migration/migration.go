// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package migration tracks the schema version of remotely stored song
// keys and applies one-shot re-keying transformations.
//
// The version record is monotonic: CurrentVersion only ever advances,
// and it advances only after every collection has been transformed and
// written back successfully. A failure anywhere before that point
// leaves the version untouched, so the next run retries the migration
// wholesale instead of resuming from an unknown partial state. A failed
// run is recorded as such and stays failed until it is retried or
// explicitly skipped; it never silently reverts to up to date.
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/store"
)

// ErrMigrationFailed wraps any failure that aborted a migration run.
// The stored version is unchanged when this is returned.
var ErrMigrationFailed = errors.New("migration failed")

// initialVersion is the implied schema version of a store that has
// never recorded a migration: song numbers as originally entered, no
// fixed padding.
const initialVersion = 1

// RemoteSource is the slice of the remote client migrations consume.
type RemoteSource interface {
	ListCollectionIDs(ctx context.Context) ([]string, error)
	ReadCollection(ctx context.Context, id string) (*models.CollectionExport, error)
	WriteSongs(ctx context.Context, id string, songs []models.Song) error
}

// StateStore persists the migration version record.
type StateStore interface {
	GetMigrationState(ctx context.Context) (*models.MigrationState, error)
	SetMigrationState(ctx context.Context, state *models.MigrationState) error
}

// Manager runs the version check and the re-keying migration. At most
// one migration runs at a time; concurrent RunIfNeeded calls serialize.
type Manager struct {
	remote RemoteSource
	store  StateStore
	target int

	mu sync.Mutex
}

// NewManager creates a migration manager targeting the configured
// schema version.
func NewManager(remote RemoteSource, stateStore StateStore, cfg config.MigrationConfig) *Manager {
	return &Manager{
		remote: remote,
		store:  stateStore,
		target: cfg.TargetVersion,
	}
}

// CheckStatus returns the current version record without side effects.
// A store that has never recorded a migration reports the initial
// version; nothing is written.
func (m *Manager) CheckStatus(ctx context.Context) (*models.MigrationState, error) {
	return m.loadState(ctx)
}

// RunIfNeeded migrates when the stored version is behind the target.
//
// The run is one logical unit: read every collection's full song set,
// derive the zero-padding width from the maximum song number across all
// of them, re-key, and write everything back. Only after the last write
// succeeds does the version advance. On any failure the version is left
// untouched and the failure recorded, so the next call retries the
// whole migration; re-running over already-padded data is a no-op
// transform, which is what makes the retry safe.
//
// Returns true only when a migration ran to completion.
func (m *Manager) RunIfNeeded(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.loadState(ctx)
	if err != nil {
		return false, err
	}
	if state.UpToDate() {
		metrics.MigrationRuns.WithLabelValues("noop").Inc()
		return false, nil
	}

	start := time.Now()
	logging.Info().
		Int("current_version", state.CurrentVersion).
		Int("target_version", state.TargetVersion).
		Msg("Starting song key migration")

	state.Status = models.MigrationMigrating
	if err := m.store.SetMigrationState(ctx, state); err != nil {
		return false, fmt.Errorf("recording migration start: %w", err)
	}

	rekeyed, err := m.migrate(ctx)
	if err != nil {
		state.Status = models.MigrationFailed
		state.LastError = err.Error()
		if persistErr := m.store.SetMigrationState(ctx, state); persistErr != nil {
			logging.Error().Err(persistErr).Msg("Failed to record migration failure")
		}
		metrics.MigrationRuns.WithLabelValues("failed").Inc()
		metrics.MigrationDuration.Observe(time.Since(start).Seconds())
		return false, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	state.CurrentVersion = state.TargetVersion
	state.Status = models.MigrationUpToDate
	state.LastMigrationAt = time.Now()
	state.LastError = ""
	if err := m.store.SetMigrationState(ctx, state); err != nil {
		// Data is migrated but the version did not advance; the next run
		// re-applies a no-op transform and tries again.
		return false, fmt.Errorf("recording migration completion: %w", err)
	}

	metrics.MigrationRuns.WithLabelValues("completed").Inc()
	metrics.MigrationDuration.Observe(time.Since(start).Seconds())
	metrics.MigrationSongsRekeyed.Add(float64(rekeyed))
	logging.Info().
		Int("version", state.CurrentVersion).
		Int("songs_rekeyed", rekeyed).
		Dur("duration", time.Since(start)).
		Msg("Song key migration completed")
	return true, nil
}

// Skip stamps the target version without transforming anything. This is
// the explicit operator acknowledgement for abandoning a failed
// migration; it is never called automatically.
func (m *Manager) Skip(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.loadState(ctx)
	if err != nil {
		return err
	}
	if state.UpToDate() {
		return nil
	}

	state.CurrentVersion = state.TargetVersion
	state.Status = models.MigrationUpToDate
	state.LastMigrationAt = time.Now()
	state.LastError = ""
	if err := m.store.SetMigrationState(ctx, state); err != nil {
		return fmt.Errorf("recording migration skip: %w", err)
	}
	metrics.MigrationRuns.WithLabelValues("skipped").Inc()
	logging.Warn().Int("version", state.CurrentVersion).Msg("Migration skipped without transforming")
	return nil
}

// migrate reads every collection, re-keys the song numbers, and writes
// them back. Returns the number of songs whose key changed.
func (m *Manager) migrate(ctx context.Context) (int, error) {
	ids, err := m.remote.ListCollectionIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing collections: %w", err)
	}

	collections := make(map[string][]models.Song, len(ids))
	for _, id := range ids {
		export, err := m.remote.ReadCollection(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("reading collection %s: %w", id, err)
		}
		collections[id] = export.SongList(id)
	}

	width := padWidth(maxSongNumber(collections))
	if width == 0 {
		// No numeric song numbers anywhere; nothing to re-key.
		return 0, nil
	}

	rekeyed := 0
	for _, id := range ids {
		songs, changed := rekeySongs(collections[id], width)
		if changed == 0 {
			continue
		}
		if err := m.remote.WriteSongs(ctx, id, songs); err != nil {
			return 0, fmt.Errorf("writing collection %s: %w", id, err)
		}
		rekeyed += changed
		logging.Debug().
			Str("collection_id", id).
			Int("songs_rekeyed", changed).
			Int("pad_width", width).
			Msg("Collection re-keyed")
	}
	return rekeyed, nil
}

// loadState reads the stored version record, or the implied initial
// record when none exists. The target version always comes from
// configuration; the stored copy is informational.
func (m *Manager) loadState(ctx context.Context) (*models.MigrationState, error) {
	state, err := m.store.GetMigrationState(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return &models.MigrationState{
			CurrentVersion: initialVersion,
			TargetVersion:  m.target,
			Status:         models.MigrationUpToDate,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading migration state: %w", err)
	}
	state.TargetVersion = m.target
	return state, nil
}
