// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package cache

import (
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// Stats derives a point-in-time summary from the resident entry set.
// Pure over current state, no I/O; the result cannot drift from the
// entries it summarizes because it is never stored.
func (m *Manager) Stats() models.CacheStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := models.CacheStats{
		Collections:   len(m.entries),
		BySource:      make(map[models.Source]int),
		ValidityHours: m.validity.Hours(),
	}
	for _, entry := range m.entries {
		stats.TotalSongs += len(entry.Songs)
		stats.BySource[entry.Source]++
		if entry.FreshWithin(m.validity, now) {
			stats.FreshEntries++
		} else {
			stats.StaleEntries++
		}
		if entry.FetchedAt.After(stats.LastSyncAt) {
			stats.LastSyncAt = entry.FetchedAt
		}
	}
	return stats
}
