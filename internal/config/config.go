// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables
// and an optional YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via LPMI40_* environment variables
//
// Configuration Categories:
//
//  1. Data Sources:
//     - Remote: Firebase-style remote collection source (base URL, auth, limits)
//     - Store: Local BadgerDB store for durable cache and settings
//
//  2. Engine:
//     - Cache: Validity window and fetch concurrency for the collection cache
//     - Persistent: Seasonal synonym table for auto-detecting pinnable collections
//     - Migration: Target schema version for the song re-keying migration
//     - Sync: Periodic background refresh settings
//     - Backup: Archive directory, retention, and scheduling
//
//  3. Surface:
//     - Server: HTTP server configuration (host, port, timeouts)
//     - Security: Operator token, CORS origins, rate limiting
//
//  4. Observability:
//     - Logging: Log levels and output formats
//     - Metrics: Prometheus exposition endpoint
//
// Example - Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	// cfg.Remote.BaseURL, cfg.Store.Path, etc. are now populated
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from
// multiple goroutines.
type Config struct {
	Remote     RemoteConfig     `koanf:"remote"`
	Store      StoreConfig      `koanf:"store"`
	Cache      CacheConfig      `koanf:"cache"`
	Persistent PersistentConfig `koanf:"persistent"`
	Migration  MigrationConfig  `koanf:"migration"`
	Sync       SyncConfig       `koanf:"sync"`
	Backup     BackupConfig     `koanf:"backup"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// RemoteConfig holds connection settings for the remote collection source.
// The remote source is OPTIONAL: when disabled the engine serves from the
// local store and bundled assets only.
//
// Environment Variables:
//   - LPMI40_REMOTE_ENABLED: Enable the remote source (default: true)
//   - LPMI40_REMOTE_BASE_URL: Base URL of the remote database (e.g. https://lpmi40.firebaseio.com)
//   - LPMI40_REMOTE_AUTH_TOKEN: Optional bearer token appended to requests
type RemoteConfig struct {
	Enabled   bool   `koanf:"enabled"`
	BaseURL   string `koanf:"base_url"`
	AuthToken string `koanf:"auth_token"`

	// Timeout bounds each remote HTTP request.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the retry budget for transient failures (429, 5xx).
	MaxRetries int `koanf:"max_retries"`

	// RequestsPerSecond and Burst feed the client-side token bucket.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// Circuit breaker tuning. The breaker opens when the failure ratio over
	// the observation window exceeds BreakerFailureRatio with at least
	// BreakerMinRequests observed.
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `koanf:"breaker_open_timeout"`
}

// StoreConfig holds local BadgerDB store settings.
type StoreConfig struct {
	// Path is the BadgerDB directory. Created if missing.
	Path string `koanf:"path"`

	// InMemory runs the store without disk persistence. Used by tests.
	InMemory bool `koanf:"in_memory"`

	// GCInterval controls how often the value log garbage collector runs.
	// Zero disables periodic GC.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// CacheConfig tunes the collection cache.
type CacheConfig struct {
	// ValidityHours is the freshness window for cached collections.
	// Entries older than this are re-fetched on access.
	ValidityHours int `koanf:"validity_hours"`

	// MaxConcurrentFetches caps parallel remote fetches during bulk loads.
	MaxConcurrentFetches int `koanf:"max_concurrent_fetches"`

	// MustInclude lists collection ids that bulk loads always attempt,
	// even when the remote listing omits them.
	MustInclude []string `koanf:"must_include"`
}

// PersistentConfig holds the pinned-collection settings.
type PersistentConfig struct {
	// SeasonalSynonyms are the case-insensitive substrings that mark a
	// collection as a seasonal pin candidate. Kept here so operators can
	// extend the table without a code change.
	SeasonalSynonyms []string `koanf:"seasonal_synonyms"`
}

// MigrationConfig holds schema migration settings.
type MigrationConfig struct {
	// TargetVersion is the schema version the migration manager drives
	// collections toward.
	TargetVersion int `koanf:"target_version"`

	// Auto runs pending migrations during startup.
	Auto bool `koanf:"auto"`
}

// SyncConfig holds periodic background refresh settings.
type SyncConfig struct {
	Enabled bool `koanf:"enabled"`

	// Interval between refresh passes.
	Interval time.Duration `koanf:"interval"`

	// OnStart triggers a full refresh immediately after startup.
	OnStart bool `koanf:"on_start"`
}

// BackupConfig holds backup archive settings.
type BackupConfig struct {
	// Dir is the directory where backup archives are written.
	Dir string `koanf:"dir"`

	// Retention is the number of archives kept; older ones are pruned.
	Retention int `koanf:"retention"`

	// Interval between scheduled backups. Zero disables the scheduler.
	Interval time.Duration `koanf:"interval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds API security settings.
//
// OperatorToken gates the destructive admin endpoints (migration, restore,
// cache clear). When empty those endpoints reject every request, which is
// the safe default for a read-mostly deployment.
type SecurityConfig struct {
	OperatorToken     string        `koanf:"operator_token"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`

	// Caller adds file:line to each event.
	Caller bool `koanf:"caller"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Addr returns the host:port the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Validity returns the cache freshness window as a duration.
func (c CacheConfig) Validity() time.Duration {
	return time.Duration(c.ValidityHours) * time.Hour
}
