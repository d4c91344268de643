// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	cacheKeyPrefix    = "cache:"
	persistentIDsKey  = "settings:persistent_ids"
	migrationStateKey = "settings:migration"
)

// Errors
var (
	// ErrNotFound is returned when a key has no value in the store.
	ErrNotFound = errors.New("key not found in local store")

	// ErrCorrupt is returned when a persisted payload fails to decode.
	// Callers treat the entry as absent and refetch.
	ErrCorrupt = errors.New("local store payload corrupt")
)

// Store is the BadgerDB-backed durable store. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open creates (or reopens) the store at the configured path.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Local store opened")

	return &Store{db: db}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the backup subsystem.
func (s *Store) DB() *badger.DB {
	return s.db
}

// StartGCRoutine runs the value log garbage collector on a fixed interval
// until ctx is cancelled. A zero interval disables the routine.
func (s *Store) StartGCRoutine(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.runGC(); err != nil {
					logging.Warn().Err(err).Msg("Value log GC failed")
				}
			}
		}
	}()
}

// runGC rewrites value log files until no further cleanup is possible.
func (s *Store) runGC() error {
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}
