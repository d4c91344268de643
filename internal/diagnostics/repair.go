// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package diagnostics

import (
	"context"

	"github.com/heary-aldy/lpmi40-sub009/internal/backup"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
)

// BackupRunner is the slice of the backup manager the repair path uses.
type BackupRunner interface {
	CreateBackup(ctx context.Context, ids []string, trigger backup.Trigger, notes string) (*backup.Backup, error)
	Restore(ctx context.Context, id string, opts backup.RestoreOptions) (*backup.RestoreResult, error)
}

// Backup snapshots the given collections (all of them when ids is empty)
// after checking operator authorization.
func (t *Tool) Backup(ctx context.Context, ids []string, notes string) (*backup.Backup, error) {
	if !t.authorize(ctx) {
		logging.Warn().Msg("Backup refused: caller is not an operator")
		return nil, ErrNotAuthorized
	}
	return t.backups.CreateBackup(ctx, ids, backup.TriggerManual, notes)
}

// Restore writes a prior backup back over the live collections after
// checking operator authorization. Restores are all-or-nothing per
// collection; see the backup package for the exact failure contract.
func (t *Tool) Restore(ctx context.Context, handle string, opts backup.RestoreOptions) (*backup.RestoreResult, error) {
	if !t.authorize(ctx) {
		logging.Warn().Str("backup_id", handle).Msg("Restore refused: caller is not an operator")
		return nil, ErrNotAuthorized
	}
	return t.backups.Restore(ctx, handle, opts)
}
