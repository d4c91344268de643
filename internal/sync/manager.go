// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package sync runs the periodic background refresh that keeps the local
// cache warm: every pass walks the full collection listing through the
// service, which re-fetches anything past its validity window.
package sync

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// Refresher is the slice of the collection service a refresh pass uses.
type Refresher interface {
	GetAll(ctx context.Context, forceRefresh bool) ([]models.CollectionData, []models.OmittedCollection, error)
}

// Manager owns the background refresh loop.
type Manager struct {
	service Refresher
	cfg     config.SyncConfig

	mu       sync.RWMutex
	passMu   sync.Mutex // prevents concurrent refresh passes
	running  bool
	lastSync time.Time
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a refresh manager. Start must be called before any
// passes run.
func NewManager(service Refresher, cfg config.SyncConfig) *Manager {
	logging.Info().
		Bool("enabled", cfg.Enabled).
		Dur("interval", cfg.Interval).
		Bool("on_start", cfg.OnStart).
		Msg("Refresh manager config loaded")

	return &Manager{
		service:  service,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic refresh loop. When OnStart is set, one pass
// runs immediately in the background so startup is not blocked; later
// passes are spaced by the configured interval with a small jitter so a
// fleet restarted together does not hammer the remote in lockstep.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("refresh manager is already running")
	}
	if !m.cfg.Enabled {
		m.mu.Unlock()
		logging.Info().Msg("Background refresh disabled")
		return nil
	}
	m.running = true
	m.mu.Unlock()

	logging.Info().Msg("Starting refresh manager...")

	if m.cfg.OnStart {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.runPass(ctx); err != nil {
				logging.Warn().Err(err).Msg("Initial refresh pass failed (will retry on schedule)")
			}
		}()
	}

	m.wg.Add(1)
	go m.refreshLoop(ctx)
	return nil
}

// Stop halts the loop and waits for any in-flight pass to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("refresh manager is not running")
	}
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Stopping refresh manager...")
	close(m.stopChan)
	m.wg.Wait()
	logging.Info().Msg("Refresh manager stopped")
	return nil
}

// LastSyncTime returns when the last successful pass finished. Zero when
// no pass has completed yet.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// TriggerRefresh runs one pass immediately, serialized against the
// periodic loop.
func (m *Manager) TriggerRefresh(ctx context.Context) error {
	return m.runPass(ctx)
}

func (m *Manager) refreshLoop(ctx context.Context) {
	defer m.wg.Done()

	timer := time.NewTimer(jittered(m.cfg.Interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-timer.C:
			if err := m.runPass(ctx); err != nil {
				logging.Error().Err(err).Msg("Refresh pass failed")
			}
			timer.Reset(jittered(m.cfg.Interval))
		}
	}
}

// runPass walks the listing once without forcing: entries still inside
// their validity window are served from cache, so a pass only costs
// remote round trips for what actually went stale.
func (m *Manager) runPass(ctx context.Context) error {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	start := time.Now()
	collections, omitted, err := m.service.GetAll(ctx, false)
	metrics.RecordSyncPass(time.Since(start), len(collections), err)
	if err != nil {
		return fmt.Errorf("refresh pass: %w", err)
	}

	m.mu.Lock()
	m.lastSync = time.Now()
	m.mu.Unlock()

	logging.Info().
		Int("collections", len(collections)).
		Int("omitted", len(omitted)).
		Dur("duration", time.Since(start)).
		Msg("Refresh pass completed")
	return nil
}

// jittered spreads an interval by up to 10% either way.
func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	spread := int64(d) / 10
	return d + time.Duration(rand.Int63n(2*spread+1)-spread)
}
