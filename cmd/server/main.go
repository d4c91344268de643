// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package main is the entry point for the LPMI40 server.
//
// LPMI40 keeps a local, always-available mirror of remote hymnal
// collections: a BadgerDB store fed by a TTL cache over the remote
// source, with bundled assets as the offline floor. The HTTP API serves
// prioritized collection listings, song search, and the operator
// tooling for schema migration, diagnostics, and backup/restore.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered sources (defaults, config.yaml,
//     LPMI40_* environment variables)
//  2. Logging: zerolog, configured from the logging section
//  3. Store: BadgerDB local store plus its value log GC routine
//  4. Remote: HTTP client wrapped in a gobreaker circuit breaker
//  5. Cache: TTL cache hydrated from the store before serving
//  6. Migration: pending schema migrations run here when auto is set
//  7. Supervisor tree: refresh manager, backup scheduler, HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests within the configured shutdown timeout, the
// refresh manager finishes or abandons its current pass, and the store
// closes last.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/heary-aldy/lpmi40-sub009/internal/api"
	"github.com/heary-aldy/lpmi40-sub009/internal/assets"
	"github.com/heary-aldy/lpmi40-sub009/internal/backup"
	"github.com/heary-aldy/lpmi40-sub009/internal/cache"
	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/diagnostics"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/middleware"
	"github.com/heary-aldy/lpmi40-sub009/internal/migration"
	"github.com/heary-aldy/lpmi40-sub009/internal/persistent"
	"github.com/heary-aldy/lpmi40-sub009/internal/remote"
	"github.com/heary-aldy/lpmi40-sub009/internal/service"
	"github.com/heary-aldy/lpmi40-sub009/internal/store"
	"github.com/heary-aldy/lpmi40-sub009/internal/supervisor"
	"github.com/heary-aldy/lpmi40-sub009/internal/supervisor/services"
	syncmgr "github.com/heary-aldy/lpmi40-sub009/internal/sync"
)

const version = "1.0.0"

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting LPMI40 engine")

	if cfg.Remote.Enabled {
		logging.Info().
			Str("remote_url", cfg.Remote.BaseURL).
			Str("store_path", cfg.Store.Path).
			Int("cache_validity_hours", cfg.Cache.ValidityHours).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Bool("remote_enabled", false).
			Str("store_path", cfg.Store.Path).
			Msg("Configuration loaded (offline mode: local store and bundled assets only)")
	}

	// Local store opens before anything that reads cached collections.
	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open local store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing local store")
		}
	}()
	logging.Info().Msg("Local store opened")

	// Context for everything that outlives startup.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st.StartGCRoutine(ctx, cfg.Store.GCInterval)

	// Remote client with circuit breaker: a dead remote fails fast
	// instead of timing out once per collection during bulk refreshes.
	// With the remote disabled the client still exists but every call
	// fails, so the cache's fallback chain serves the local tiers.
	remoteClient := remote.NewBreakerClient(cfg.Remote)
	if remoteClient.ConnectionStatus(ctx) {
		logging.Info().Msg("Connected to remote source")
	} else {
		logging.Warn().Msg("Remote source unreachable at startup, serving from local tiers")
	}

	bundled, err := assets.New()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load bundled collections")
	}

	cacheMgr := cache.NewManager(remoteClient, st, bundled, cfg.Cache)
	cacheMgr.Hydrate(ctx)

	registry := persistent.NewRegistry(st, cfg.Persistent)

	// Schema migration before the first serve: song numbers must be in
	// the target key format before listings are cached against them.
	migrationMgr := migration.NewManager(remoteClient, st, cfg.Migration)
	if cfg.Migration.Auto {
		if ran, err := migrationMgr.RunIfNeeded(ctx); err != nil {
			// Not fatal: the engine serves the old key format until an
			// operator retries or skips via the API.
			logging.Error().Err(err).Msg("Automatic migration failed, data unchanged")
		} else if ran {
			logging.Info().Msg("Schema migration completed")
		}
	}

	svc := service.New(cacheMgr, registry)

	backupMgr, err := backup.NewManager(remoteClient, cfg.Backup)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize backup manager")
	}
	logging.Info().Str("dir", cfg.Backup.Dir).Int("retention", cfg.Backup.Retention).Msg("Backup manager initialized")

	// Diagnostics: read path is open, repair path requires the operator
	// token checked by the HTTP middleware.
	diagTool := diagnostics.NewTool(
		remoteClient, st, bundled, registry, backupMgr,
		cfg.Persistent.SeasonalSynonyms, middleware.IsOperator,
	)

	syncManager := syncmgr.NewManager(svc, cfg.Sync)

	perf := middleware.NewPerformanceMonitor(1000)
	router := api.NewRouter(api.Deps{
		Service:         svc,
		Registry:        registry,
		Migration:       migrationMgr,
		Diagnostics:     diagTool,
		Backups:         backupMgr,
		Refresh:         syncManager,
		StoreConnected:  func() bool { return !st.DB().IsClosed() },
		RemoteConnected: remoteClient.ConnectionStatus,
		Version:         version,
	}, *cfg, perf)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Supervisor tree: sutureslog bridges supervisor events onto the
	// zerolog backend.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewBackupSchedulerService(backupMgr, cfg.Backup.Interval))
	tree.AddSyncService(services.NewRefreshService(syncManager))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel so shutdown errors are not silently lost.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, usvc := range unstopped {
		logging.Warn().Str("service", usvc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Engine stopped gracefully")
}
