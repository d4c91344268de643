// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package services

import (
	"context"
	"fmt"

	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
)

// RefreshManager matches sync.Manager's lifecycle methods.
type RefreshManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// RefreshService wraps the background refresh manager as a supervised
// service, translating its Start/Stop lifecycle into suture's Serve
// pattern.
type RefreshService struct {
	manager RefreshManager
	name    string
}

// NewRefreshService creates a new refresh service wrapper.
func NewRefreshService(manager RefreshManager) *RefreshService {
	return &RefreshService{
		manager: manager,
		name:    "refresh-manager",
	}
}

// Serve implements suture.Service. Start failures are returned so the
// supervisor restarts the service; Stop failures during shutdown are
// logged but not propagated (the shutdown is already underway).
func (s *RefreshService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("refresh manager start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		logging.Warn().Err(err).Msg("Refresh manager stop reported error during shutdown")
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor log messages.
func (s *RefreshService) String() string {
	return s.name
}
