// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package backup

import (
	"context"
	"sort"

	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
)

// ApplyRetention prunes old archives down to the configured count,
// newest first. Only completed backups count toward the cap; failed
// and corrupted records are always removed along the way since their
// archives are useless. Pre-restore safety snapshots are exempt from
// the count-based prune so a retention sweep can never delete the
// rollback point of a recent restore.
//
// Returns how many records were removed. A zero or negative retention
// disables pruning entirely.
func (m *Manager) ApplyRetention(ctx context.Context) (int, error) {
	if m.retention <= 0 {
		return 0, nil
	}
	if err := m.mu.lock(ctx); err != nil {
		return 0, err
	}
	defer m.mu.unlock()

	var completed []*Backup
	var dead []*Backup
	for _, b := range m.backups {
		switch b.Status {
		case StatusCompleted:
			if b.Trigger != TriggerPreRestore {
				completed = append(completed, b)
			}
		case StatusFailed, StatusCorrupted:
			dead = append(dead, b)
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		return completed[i].CreatedAt.After(completed[j].CreatedAt)
	})

	removed := 0
	for _, b := range dead {
		if err := m.deleteLocked(b.ID); err != nil {
			logging.Warn().Err(err).Str("backup_id", b.ID).Msg("Retention could not remove dead backup")
			continue
		}
		removed++
	}
	for _, b := range completed[min(m.retention, len(completed)):] {
		if err := m.deleteLocked(b.ID); err != nil {
			logging.Warn().Err(err).Str("backup_id", b.ID).Msg("Retention could not remove old backup")
			continue
		}
		removed++
	}

	if removed > 0 {
		logging.Info().
			Int("removed", removed).
			Int("kept", len(m.backups)).
			Msg("Backup retention applied")
	}
	return removed, nil
}
