// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package store provides the durable local key-value store backing the
// collection cache, the persistent-id set, and the migration state.
//
// The store wraps BadgerDB and namespaces its keys:
//
//	cache:<collectionId>    persisted cache entry blobs
//	settings:persistent_ids the ordered persistent-id set
//	settings:migration      the migration state record
//
// Cache entries live and die independently of the settings keys: dropping
// all cached collections leaves the persistent set and migration state
// untouched.
//
// A payload that fails to decode is reported as ErrCorrupt so callers can
// treat the entry as absent and refetch rather than fail.
package store
