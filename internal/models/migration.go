// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package models

import "time"

// MigrationStatus is the migration state machine position.
//
// Valid transitions:
//
//	UpToDate -> Migrating  (version mismatch detected)
//	Migrating -> UpToDate  (run succeeded, version advanced)
//	Migrating -> Failed    (run failed, version unchanged)
//	Failed -> Migrating    (manual retry)
//	Failed -> UpToDate     (operator skip)
//
// A Failed migration never reverts to UpToDate on its own.
type MigrationStatus string

const (
	MigrationUpToDate  MigrationStatus = "up_to_date"
	MigrationMigrating MigrationStatus = "migrating"
	MigrationFailed    MigrationStatus = "failed"
)

// MigrationState is the persisted schema migration record.
// CurrentVersion only ever increases; a failed run leaves it untouched.
type MigrationState struct {
	CurrentVersion  int             `json:"current_version"`
	TargetVersion   int             `json:"target_version"`
	Status          MigrationStatus `json:"status"`
	LastMigrationAt time.Time       `json:"last_migration_at,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
}

// UpToDate reports whether no migration work is pending.
func (s MigrationState) UpToDate() bool {
	return s.CurrentVersion >= s.TargetVersion
}
