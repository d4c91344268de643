// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package services

import (
	"context"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/backup"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
)

// BackupRunner matches the slice of backup.Manager the scheduler
// drives.
type BackupRunner interface {
	CreateBackup(ctx context.Context, ids []string, trigger backup.Trigger, notes string) (*backup.Backup, error)
	ApplyRetention(ctx context.Context) (int, error)
}

// BackupSchedulerService snapshots all collections on a fixed interval
// and prunes old archives afterwards. A single failed snapshot is
// logged and retried on the next tick rather than crashing the
// service: the remote being down for one tick is routine, not fatal.
type BackupSchedulerService struct {
	backups  BackupRunner
	interval time.Duration
	name     string
}

// NewBackupSchedulerService creates a new backup scheduler. An interval
// of zero or less disables scheduled backups: the service stays idle
// until shutdown so the supervisor tree shape is the same either way.
func NewBackupSchedulerService(backups BackupRunner, interval time.Duration) *BackupSchedulerService {
	return &BackupSchedulerService{
		backups:  backups,
		interval: interval,
		name:     "backup-scheduler",
	}
}

// Serve implements suture.Service.
func (s *BackupSchedulerService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		logging.Info().Msg("Scheduled backups disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	logging.Info().Dur("interval", s.interval).Msg("Backup scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BackupSchedulerService) runOnce(ctx context.Context) {
	b, err := s.backups.CreateBackup(ctx, nil, backup.TriggerScheduled, "")
	if err != nil {
		logging.Warn().Err(err).Msg("Scheduled backup failed, will retry next tick")
		return
	}
	logging.Info().
		Str("backup_id", b.ID).
		Int("collections", len(b.CollectionIDs)).
		Msg("Scheduled backup completed")

	removed, err := s.backups.ApplyRetention(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Backup retention pass failed")
		return
	}
	if removed > 0 {
		logging.Info().Int("removed", removed).Msg("Pruned old backups")
	}
}

// String implements fmt.Stringer for supervisor log messages.
func (s *BackupSchedulerService) String() string {
	return s.name
}
