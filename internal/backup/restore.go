// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package backup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
)

// Validate verifies a backup archive without touching the remote:
// checksum against the recorded value, then a full decode. A backup
// that fails validation is marked corrupted in the index so it is
// never offered for restore again.
func (m *Manager) Validate(ctx context.Context, id string) (*ValidationResult, error) {
	if err := m.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer m.mu.unlock()

	b, ok := m.backups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	return m.validateLocked(b), nil
}

func (m *Manager) validateLocked(b *Backup) *ValidationResult {
	result := &ValidationResult{ExpectedChecksum: b.Checksum}

	actual, err := fileChecksum(b.FilePath)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		m.markCorrupted(b)
		return result
	}
	result.ActualChecksum = actual
	result.ChecksumValid = actual == b.Checksum
	if !result.ChecksumValid {
		result.Errors = append(result.Errors, "checksum mismatch: archive modified or truncated")
		m.markCorrupted(b)
		return result
	}

	doc, err := readArchive(b.FilePath)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		m.markCorrupted(b)
		return result
	}
	result.ArchiveReadable = true
	result.Collections = len(doc.Collections)
	result.Valid = true
	return result
}

func (m *Manager) markCorrupted(b *Backup) {
	if b.Status == StatusCorrupted {
		return
	}
	b.Status = StatusCorrupted
	if err := m.saveIndex(); err != nil {
		logging.Error().Err(err).Str("backup_id", b.ID).Msg("Failed to record corrupted backup")
	}
	logging.Warn().Str("backup_id", b.ID).Msg("Backup archive failed validation, marked corrupted")
}

// Restore writes a backup's contents back over the live collections.
//
// The run validates the archive first and refuses to start from a
// corrupt one. Collections restore one at a time, each in a single
// remote write, so any one collection is either fully restored or
// untouched. The first write failure stops the run: already-written
// collections stay restored (reported in Restored), the failing one is
// untouched on the remote, and the remainder is reported Skipped. The
// returned error wraps ErrRestoreFailed in that case; this failure is
// deliberately loud because silently continuing would leave the data
// half-restored with no record of it.
func (m *Manager) Restore(ctx context.Context, id string, opts RestoreOptions) (*RestoreResult, error) {
	if err := m.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer m.mu.unlock()

	start := time.Now()
	result := &RestoreResult{BackupID: id}

	b, ok := m.backups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}

	validation := m.validateLocked(b)
	if !validation.Valid {
		result.Error = fmt.Sprintf("archive validation failed: %v", validation.Errors)
		metrics.RestoreRuns.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("%w: %s", ErrRestoreFailed, result.Error)
	}
	if opts.ValidateOnly {
		result.Success = true
		result.Duration = time.Since(start).Milliseconds()
		metrics.RestoreRuns.WithLabelValues("validate_only").Inc()
		return result, nil
	}

	doc, err := readArchive(b.FilePath)
	if err != nil {
		result.Error = err.Error()
		metrics.RestoreRuns.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}

	targets, err := restoreTargets(doc, opts.Collections)
	if err != nil {
		result.Error = err.Error()
		metrics.RestoreRuns.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
	}

	if opts.CreatePreRestoreBackup {
		pre, err := m.createBackupLocked(ctx, targets, TriggerPreRestore,
			fmt.Sprintf("before restore of %s", id))
		if err != nil {
			// A collection absent from the live remote cannot be
			// snapshotted; that is exactly the situation a restore
			// fixes, so continue with a warning instead of refusing.
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("pre-restore backup failed: %v", err))
			logging.Warn().Err(err).Str("backup_id", id).Msg("Pre-restore backup failed, continuing")
		} else {
			result.PreRestoreBackupID = pre.ID
		}
	}

	logging.Info().
		Str("backup_id", id).
		Int("collections", len(targets)).
		Msg("Restore starting")

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			result.Failed = target
			result.Skipped = targets[i+1:]
			result.Error = err.Error()
			result.Duration = time.Since(start).Milliseconds()
			metrics.RestoreRuns.WithLabelValues("failed").Inc()
			return result, fmt.Errorf("%w: %v", ErrRestoreFailed, err)
		}
		export := doc.Collections[target]
		if err := m.remote.WriteCollection(ctx, target, export); err != nil {
			result.Failed = target
			result.Skipped = targets[i+1:]
			result.Error = fmt.Sprintf("writing collection %s: %v", target, err)
			result.Duration = time.Since(start).Milliseconds()
			metrics.RestoreRuns.WithLabelValues("failed").Inc()
			logging.Error().Err(err).
				Str("backup_id", id).
				Str("collection_id", target).
				Strs("restored", result.Restored).
				Msg("Restore aborted mid-run")
			return result, fmt.Errorf("%w: %s", ErrRestoreFailed, result.Error)
		}
		result.Restored = append(result.Restored, target)
		result.SongsRestored += len(export.Songs)
	}

	result.Success = true
	result.Duration = time.Since(start).Milliseconds()
	metrics.RestoreRuns.WithLabelValues("ok").Inc()
	logging.Info().
		Str("backup_id", id).
		Strs("restored", result.Restored).
		Int("songs", result.SongsRestored).
		Dur("duration", time.Since(start)).
		Msg("Restore completed")
	return result, nil
}

// restoreTargets resolves the collection set to restore, in sorted
// order for a deterministic run. Requesting a collection the archive
// does not hold is an error, not a silent skip.
func restoreTargets(doc *archiveDocument, requested []string) ([]string, error) {
	if len(requested) == 0 {
		targets := make([]string, 0, len(doc.Collections))
		for id := range doc.Collections {
			targets = append(targets, id)
		}
		sort.Strings(targets)
		return targets, nil
	}

	targets := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := doc.Collections[id]; !ok {
			return nil, fmt.Errorf("archive does not contain collection %s", id)
		}
		targets = append(targets, id)
	}
	sort.Strings(targets)
	return targets, nil
}
