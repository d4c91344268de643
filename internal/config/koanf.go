// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path when set.
const ConfigPathEnvVar = "LPMI40_CONFIG_PATH"

// DefaultConfigPaths are searched in order for a config file.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lpmi40/config.yaml",
}

// defaultConfig returns the built-in defaults for all settings.
// Every field here can be overridden by the config file or environment.
func defaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Enabled:             true,
			BaseURL:             "",
			AuthToken:           "",
			Timeout:             10 * time.Second,
			MaxRetries:          3,
			RequestsPerSecond:   5,
			Burst:               10,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
			BreakerOpenTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Path:       "./data/lpmi40",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		Cache: CacheConfig{
			ValidityHours:        24, // collections change rarely; a day is plenty
			MaxConcurrentFetches: 4,
			MustInclude:          []string{},
		},
		Persistent: PersistentConfig{
			SeasonalSynonyms: []string{"christmas", "krismas", "natal"},
		},
		Migration: MigrationConfig{
			TargetVersion: 2,
			Auto:          false,
		},
		Sync: SyncConfig{
			Enabled:  true,
			Interval: 6 * time.Hour,
			OnStart:  true,
		},
		Backup: BackupConfig{
			Dir:       "./backups",
			Retention: 5,
			Interval:  24 * time.Hour,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8180,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			OperatorToken:     "",
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load builds configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// LPMI40_REMOTE_BASE_URL -> remote.base_url
	// LPMI40_CACHE_VALIDITY_HOURS -> cache.validity_hours
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names to koanf config paths.
// Only variables listed here are consumed; everything else in the process
// environment is ignored so unrelated variables cannot leak into config.
var envMappings = map[string]string{
	// Remote source
	"LPMI40_REMOTE_ENABLED":               "remote.enabled",
	"LPMI40_REMOTE_BASE_URL":              "remote.base_url",
	"LPMI40_REMOTE_AUTH_TOKEN":            "remote.auth_token",
	"LPMI40_REMOTE_TIMEOUT":               "remote.timeout",
	"LPMI40_REMOTE_MAX_RETRIES":           "remote.max_retries",
	"LPMI40_REMOTE_REQUESTS_PER_SECOND":   "remote.requests_per_second",
	"LPMI40_REMOTE_BURST":                 "remote.burst",
	"LPMI40_REMOTE_BREAKER_MIN_REQUESTS":  "remote.breaker_min_requests",
	"LPMI40_REMOTE_BREAKER_FAILURE_RATIO": "remote.breaker_failure_ratio",
	"LPMI40_REMOTE_BREAKER_OPEN_TIMEOUT":  "remote.breaker_open_timeout",

	// Local store
	"LPMI40_STORE_PATH":        "store.path",
	"LPMI40_STORE_IN_MEMORY":   "store.in_memory",
	"LPMI40_STORE_GC_INTERVAL": "store.gc_interval",

	// Cache engine
	"LPMI40_CACHE_VALIDITY_HOURS":         "cache.validity_hours",
	"LPMI40_CACHE_MAX_CONCURRENT_FETCHES": "cache.max_concurrent_fetches",
	"LPMI40_CACHE_MUST_INCLUDE":           "cache.must_include",

	// Persistent collections
	"LPMI40_PERSISTENT_SEASONAL_SYNONYMS": "persistent.seasonal_synonyms",

	// Migration
	"LPMI40_MIGRATION_TARGET_VERSION": "migration.target_version",
	"LPMI40_MIGRATION_AUTO":           "migration.auto",

	// Background sync
	"LPMI40_SYNC_ENABLED":  "sync.enabled",
	"LPMI40_SYNC_INTERVAL": "sync.interval",
	"LPMI40_SYNC_ON_START": "sync.on_start",

	// Backups
	"LPMI40_BACKUP_DIR":       "backup.dir",
	"LPMI40_BACKUP_RETENTION": "backup.retention",
	"LPMI40_BACKUP_INTERVAL":  "backup.interval",

	// HTTP server
	"LPMI40_SERVER_HOST":             "server.host",
	"LPMI40_SERVER_PORT":             "server.port",
	"LPMI40_SERVER_READ_TIMEOUT":     "server.read_timeout",
	"LPMI40_SERVER_WRITE_TIMEOUT":    "server.write_timeout",
	"LPMI40_SERVER_IDLE_TIMEOUT":     "server.idle_timeout",
	"LPMI40_SERVER_SHUTDOWN_TIMEOUT": "server.shutdown_timeout",

	// Security
	"LPMI40_OPERATOR_TOKEN":      "security.operator_token",
	"LPMI40_CORS_ORIGINS":        "security.cors_origins",
	"LPMI40_RATE_LIMIT_REQUESTS": "security.rate_limit_requests",
	"LPMI40_RATE_LIMIT_WINDOW":   "security.rate_limit_window",

	// Logging
	"LPMI40_LOG_LEVEL":  "logging.level",
	"LPMI40_LOG_FORMAT": "logging.format",
	"LPMI40_LOG_CALLER": "logging.caller",

	// Metrics
	"LPMI40_METRICS_ENABLED": "metrics.enabled",
	"LPMI40_METRICS_PATH":    "metrics.path",
}

// envTransformFunc maps environment variable names to koanf paths.
// Returns empty string for unmapped variables, which tells koanf to skip them.
func envTransformFunc(s string) string {
	if path, ok := envMappings[s]; ok {
		return path
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"cache.must_include",
	"persistent.seasonal_synonyms",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects
// slices; YAML-sourced values are already slices and pass through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}

		var parts []string
		if strVal != "" {
			for _, p := range strings.Split(strVal, ",") {
				if trimmed := strings.TrimSpace(p); trimmed != "" {
					parts = append(parts, trimmed)
				}
			}
		}

		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set slice field %s: %w", path, err)
		}
	}

	return nil
}

// GetKoanfInstance returns a new Koanf instance for advanced usage such as
// testing with custom providers.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The caller is responsible for mutex protection when swapping configuration
// during reloads.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
