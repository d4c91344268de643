// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heary-aldy/lpmi40-sub009/internal/backup"
	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/middleware"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/service"
)

// CollectionService is the slice of the collection service the handlers
// consume.
type CollectionService interface {
	GetAll(ctx context.Context, forceRefresh bool) ([]models.CollectionData, []models.OmittedCollection, error)
	GetCollection(ctx context.Context, id string, forceRefresh bool) ([]models.Song, error)
	ForceRefreshAll(ctx context.Context) (int, error)
	ClearCacheAndRefresh(ctx context.Context) (int, error)
	MarkPersistent(ctx context.Context, id string) error
	UnmarkPersistent(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.ServiceStats, error)
	Search(ctx context.Context, query string, opts service.SearchOptions) ([]models.SearchResult, error)
}

// PersistentRegistry exposes the pinned id set for the persistent
// endpoints.
type PersistentRegistry interface {
	PersistentIDs(ctx context.Context) ([]string, error)
	DetectCandidates(allIDs []string) []string
}

// MigrationManager drives the schema migration endpoints.
type MigrationManager interface {
	CheckStatus(ctx context.Context) (*models.MigrationState, error)
	RunIfNeeded(ctx context.Context) (bool, error)
	Skip(ctx context.Context) error
}

// DiagnosticsTool backs the investigation, health, and repair endpoints.
type DiagnosticsTool interface {
	Investigate(ctx context.Context, id string) (*models.InvestigationReport, error)
	HealthCheck(ctx context.Context) (*models.HealthReport, error)
	Backup(ctx context.Context, ids []string, notes string) (*backup.Backup, error)
	Restore(ctx context.Context, handle string, opts backup.RestoreOptions) (*backup.RestoreResult, error)
}

// BackupStore is the read/delete slice of the backup manager.
type BackupStore interface {
	List(ctx context.Context) ([]*backup.Backup, error)
	Get(ctx context.Context, id string) (*backup.Backup, error)
	Delete(ctx context.Context, id string) error
	Validate(ctx context.Context, id string) (*backup.ValidationResult, error)
}

// RefreshState reports background refresh progress for readiness and
// health payloads.
type RefreshState interface {
	LastSyncTime() time.Time
}

// Deps bundles everything the router serves.
type Deps struct {
	Service     CollectionService
	Registry    PersistentRegistry
	Migration   MigrationManager
	Diagnostics DiagnosticsTool
	Backups     BackupStore
	Refresh     RefreshState

	// StoreConnected and RemoteConnected feed the health payload; either
	// may be nil when the corresponding tier is absent.
	StoreConnected  func() bool
	RemoteConnected func(ctx context.Context) bool

	Version string
}

// Router wires the HTTP routes over the engine components.
type Router struct {
	deps    Deps
	cfg     config.Config
	chimw   *ChiMiddleware
	perf    *middleware.PerformanceMonitor
	started time.Time
}

// NewRouter creates the router. perf may be nil to disable the sliding
// window endpoint stats.
func NewRouter(deps Deps, cfg config.Config, perf *middleware.PerformanceMonitor) *Router {
	chimw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins:   cfg.Security.CORSOrigins,
		CORSAllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization", "X-Operator-Token"},
		CORSExposedHeaders:   []string{"X-Request-ID"},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,

		RateLimitRequests: cfg.Security.RateLimitRequests,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
	})

	return &Router{
		deps:    deps,
		cfg:     cfg,
		chimw:   chimw,
		perf:    perf,
		started: time.Now(),
	}
}

// Handler builds the chi route tree.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chimw.CORS()) // CORS must be global to handle OPTIONS preflight
	if router.perf != nil {
		r.Use(router.perf.Middleware)
	}

	operatorGate := chiMiddleware(middleware.OperatorGate(router.cfg.Security.OperatorToken))

	// Health endpoints: permissive rate limit for monitoring probes.
	r.Group(func(r chi.Router) {
		r.Use(router.chimw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/health", router.handleHealth)
		r.Get("/health/live", router.handleLive)
		r.Get("/health/ready", router.handleReady)
	})

	// Read endpoints.
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(router.chimw.RateLimit())
			r.Use(APISecurityHeaders())
			r.Use(chiMiddleware(middleware.PrometheusMetrics))
			r.Use(chiMiddleware(middleware.Compression))

			r.Get("/collections", router.handleListCollections)
			r.Get("/collections/{id}", router.handleGetCollection)
			r.Get("/stats", router.handleStats)
			r.Get("/persistent", router.handleListPersistent)
			r.Get("/persistent/candidates", router.handleCandidates)
			r.Get("/migration/status", router.handleMigrationStatus)
			r.Get("/diagnostics/investigate/{id}", router.handleInvestigate)
			r.Get("/diagnostics/health", router.handleDiagnosticsHealth)
			r.Get("/backups", router.handleListBackups)
			r.Get("/backups/{id}", router.handleGetBackup)
			r.Get("/backups/{id}/validate", router.handleValidateBackup)
		})

		// Search: its own limit for interactive typing.
		r.Group(func(r chi.Router) {
			r.Use(router.chimw.RateLimitSearch())
			r.Use(APISecurityHeaders())
			r.Use(chiMiddleware(middleware.PrometheusMetrics))
			r.Get("/search", router.handleSearch)
		})

		// Persistent set mutations: open (marking a collection persistent
		// is reversible and non-destructive), but write-rate limited.
		r.Group(func(r chi.Router) {
			r.Use(router.chimw.RateLimitWrite())
			r.Use(APISecurityHeaders())
			r.Use(chiMiddleware(middleware.PrometheusMetrics))
			r.Post("/persistent/{id}", router.handleAddPersistent)
			r.Delete("/persistent/{id}", router.handleRemovePersistent)
		})

		// Destructive operations: operator token required.
		r.Group(func(r chi.Router) {
			r.Use(router.chimw.RateLimitWrite())
			r.Use(APISecurityHeaders())
			r.Use(chiMiddleware(middleware.PrometheusMetrics))
			r.Use(operatorGate)

			r.Post("/collections/refresh", router.handleForceRefresh)
			r.Post("/collections/clear", router.handleClearCache)
			r.Post("/migration/run", router.handleMigrationRun)
			r.Post("/migration/skip", router.handleMigrationSkip)
			r.Post("/backups", router.handleCreateBackup)
			r.Post("/backups/{id}/restore", router.handleRestoreBackup)
			r.Delete("/backups/{id}", router.handleDeleteBackup)
		})
	})

	if router.cfg.Metrics.Enabled {
		path := router.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	return r
}
