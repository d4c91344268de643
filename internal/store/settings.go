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
	"github.com/goccy/go-json"

	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// GetPersistentIDs returns the stored persistent-id list in insertion order.
// An empty list (not an error) is returned when nothing has been stored yet.
func (s *Store) GetPersistentIDs(ctx context.Context) ([]string, error) {
	start := time.Now()

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(persistentIDsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get persistent ids: %w", err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &ids); err != nil {
				return fmt.Errorf("%w: persistent ids: %v", ErrCorrupt, err)
			}
			return nil
		})
	})

	metrics.RecordStoreOp("get_persistent", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SetPersistentIDs replaces the stored persistent-id list.
func (s *Store) SetPersistentIDs(ctx context.Context, ids []string) error {
	start := time.Now()

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal persistent ids: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(persistentIDsKey), data)
	})

	metrics.RecordStoreOp("set_persistent", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("set persistent ids: %w", err)
	}
	return nil
}

// GetMigrationState returns the stored migration record.
// Returns ErrNotFound when no migration has ever been recorded.
func (s *Store) GetMigrationState(ctx context.Context) (*models.MigrationState, error) {
	start := time.Now()

	var state models.MigrationState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(migrationStateKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get migration state: %w", err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &state); err != nil {
				return fmt.Errorf("%w: migration state: %v", ErrCorrupt, err)
			}
			return nil
		})
	})

	metrics.RecordStoreOp("get_migration", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// SetMigrationState replaces the stored migration record.
func (s *Store) SetMigrationState(ctx context.Context, state *models.MigrationState) error {
	start := time.Now()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal migration state: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(migrationStateKey), data)
	})

	metrics.RecordStoreOp("set_migration", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("set migration state: %w", err)
	}
	return nil
}
