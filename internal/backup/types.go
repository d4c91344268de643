// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package backup snapshots remote collection contents into timestamped
// gzip JSON archives and restores them over the live collections.
//
// Archives live under a configured directory next to a metadata.json
// index. Every archive carries a SHA-256 checksum recorded at creation
// and verified before any restore. Restores are all-or-nothing per
// collection: a collection is either written back in a single remote
// write or left exactly as it was; a failure partway through a
// multi-collection restore stops the run and reports which collections
// were already fully restored.
//
// Repair actions are operator-invoked only. The manager never restores
// anything on its own; the scheduler only creates backups and prunes
// old ones.
package backup

import (
	"errors"
	"time"
)

// Errors
var (
	// ErrBackupNotFound is returned when no backup exists for a handle.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrRestoreFailed wraps any failure that aborted a restore run.
	// Collections reported restored were fully written; everything else
	// is untouched.
	ErrRestoreFailed = errors.New("restore failed")
)

// Status represents the state of a backup archive.
type Status string

const (
	// StatusInProgress indicates the backup is currently being written.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the archive was written and checksummed.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the backup run failed; no usable archive.
	StatusFailed Status = "failed"

	// StatusCorrupted indicates a later validation found a checksum
	// mismatch or unreadable archive.
	StatusCorrupted Status = "corrupted"
)

// Trigger indicates what initiated a backup.
type Trigger string

const (
	// TriggerManual: operator-requested via the diagnostics surface.
	TriggerManual Trigger = "manual"

	// TriggerScheduled: created by the periodic backup scheduler.
	TriggerScheduled Trigger = "scheduled"

	// TriggerPreRestore: safety snapshot taken before a restore.
	TriggerPreRestore Trigger = "pre_restore"
)

// Backup is the metadata record for one archive. The ID doubles as the
// restore handle.
type Backup struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Trigger     Trigger    `json:"trigger"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Duration    int64      `json:"duration_ms"`

	// FilePath is the archive location on disk, relative to nothing:
	// it is stored absolute so the index survives working-directory
	// changes.
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`

	// Checksum is the SHA-256 of the archive file, recorded after the
	// final byte is flushed.
	Checksum string `json:"checksum"`

	// CollectionIDs lists what the archive holds, in snapshot order.
	CollectionIDs []string `json:"collection_ids"`

	// SongCount is the total number of songs across all collections.
	SongCount int `json:"song_count"`

	Notes string `json:"notes,omitempty"`
	Error string `json:"error,omitempty"`
}

// RestoreOptions configures a restore run.
type RestoreOptions struct {
	// ValidateOnly verifies the archive without writing anything.
	ValidateOnly bool `json:"validate_only"`

	// CreatePreRestoreBackup snapshots the live contents of the
	// affected collections first, so a bad restore can itself be
	// rolled back.
	CreatePreRestoreBackup bool `json:"create_pre_restore_backup"`

	// Collections restricts the restore to a subset of the archive.
	// Empty restores everything the archive holds.
	Collections []string `json:"collections,omitempty"`
}

// RestoreResult reports what a restore run actually did.
type RestoreResult struct {
	Success            bool   `json:"success"`
	BackupID           string `json:"backup_id"`
	PreRestoreBackupID string `json:"pre_restore_backup_id,omitempty"`

	// Restored collections were fully written back. Skipped were in
	// scope but never attempted because the run stopped first. Failed
	// names the collection whose write failed; it is untouched on the
	// remote because a collection restores in a single write.
	Restored []string `json:"restored"`
	Skipped  []string `json:"skipped,omitempty"`
	Failed   string   `json:"failed,omitempty"`

	SongsRestored int      `json:"songs_restored"`
	Duration      int64    `json:"duration_ms"`
	Warnings      []string `json:"warnings,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// ValidationResult reports archive integrity.
type ValidationResult struct {
	Valid            bool     `json:"valid"`
	ChecksumValid    bool     `json:"checksum_valid"`
	ExpectedChecksum string   `json:"expected_checksum"`
	ActualChecksum   string   `json:"actual_checksum"`
	ArchiveReadable  bool     `json:"archive_readable"`
	Collections      int      `json:"collections"`
	Errors           []string `json:"errors,omitempty"`
}
