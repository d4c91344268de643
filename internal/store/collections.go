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

// GetEntry retrieves the persisted cache entry for a collection id.
// Returns ErrNotFound when no entry exists and ErrCorrupt when the stored
// payload cannot be decoded.
func (s *Store) GetEntry(ctx context.Context, id string) (*models.CacheEntry, error) {
	start := time.Now()

	var entry models.CacheEntry
	err := s.db.View(func(txn *badger.Txn) error {
		key := []byte(cacheKeyPrefix + id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return fmt.Errorf("%w: entry %s: %v", ErrCorrupt, id, err)
			}
			return nil
		})
	})

	metrics.RecordStoreOp("get", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	// A decoded entry with no id is as useless as an undecodable one.
	if entry.CollectionID == "" {
		return nil, fmt.Errorf("%w: entry %s: missing collection id", ErrCorrupt, id)
	}

	return &entry, nil
}

// SetEntry persists a cache entry under its collection id.
func (s *Store) SetEntry(ctx context.Context, entry *models.CacheEntry) error {
	start := time.Now()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := []byte(cacheKeyPrefix + entry.CollectionID)
		return txn.Set(key, data)
	})

	metrics.RecordStoreOp("set", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("set entry %s: %w", entry.CollectionID, err)
	}
	return nil
}

// RemoveEntry deletes the persisted entry for a collection id.
// Removing an absent entry is not an error.
func (s *Store) RemoveEntry(ctx context.Context, id string) error {
	start := time.Now()

	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(cacheKeyPrefix + id)
		if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete entry: %w", err)
		}
		return nil
	})

	metrics.RecordStoreOp("remove", time.Since(start), err)
	return err
}

// ListEntryIDs returns the collection ids of every persisted entry, in
// lexicographic key order.
func (s *Store) ListEntryIDs(ctx context.Context) ([]string, error) {
	start := time.Now()

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(cacheKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	})

	metrics.RecordStoreOp("list", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return ids, nil
}

// ForEachEntry visits every decodable persisted entry. Corrupt entries are
// skipped, their count returned so callers can surface repair advice.
func (s *Store) ForEachEntry(ctx context.Context, fn func(*models.CacheEntry) error) (corrupt int, err error) {
	start := time.Now()

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(cacheKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry models.CacheEntry
			decodeErr := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if decodeErr != nil || entry.CollectionID == "" {
				corrupt++
				continue
			}
			if err := fn(&entry); err != nil {
				return err
			}
		}
		return nil
	})

	metrics.RecordStoreOp("scan", time.Since(start), err)
	return corrupt, err
}

// DropEntries removes every persisted cache entry. Settings keys (the
// persistent set, migration state) survive.
func (s *Store) DropEntries(ctx context.Context) error {
	start := time.Now()

	err := s.db.DropPrefix([]byte(cacheKeyPrefix))

	metrics.RecordStoreOp("drop", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("drop entries: %w", err)
	}
	return nil
}

// CountEntries returns the number of persisted cache entries.
func (s *Store) CountEntries(ctx context.Context) (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(cacheKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}
