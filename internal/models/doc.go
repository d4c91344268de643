// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package models defines the shared domain types for the collection sync
// engine: hymn collections and their songs, cache entries and derived cache
// statistics, diagnostic reports, and the HTTP API envelope.
//
// The package holds plain data types only. Serialization happens at the
// boundaries (local store, remote wire, HTTP responses) and business rules
// live in the packages that own them; nothing here performs I/O.
package models
