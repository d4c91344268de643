// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Remote defaults (enabled but URL must come from environment)
	if cfg.Remote.Enabled != true {
		t.Errorf("Remote.Enabled should be true by default")
	}
	if cfg.Remote.BaseURL != "" {
		t.Errorf("Remote.BaseURL should be empty by default, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote.Timeout = %v, want 10s", cfg.Remote.Timeout)
	}
	if cfg.Remote.MaxRetries != 3 {
		t.Errorf("Remote.MaxRetries = %d, want 3", cfg.Remote.MaxRetries)
	}

	// Store defaults
	if cfg.Store.Path != "./data/lpmi40" {
		t.Errorf("Store.Path = %q, want ./data/lpmi40", cfg.Store.Path)
	}
	if cfg.Store.InMemory {
		t.Errorf("Store.InMemory should be false by default")
	}

	// Cache defaults
	if cfg.Cache.ValidityHours != 24 {
		t.Errorf("Cache.ValidityHours = %d, want 24", cfg.Cache.ValidityHours)
	}
	if cfg.Cache.MaxConcurrentFetches != 4 {
		t.Errorf("Cache.MaxConcurrentFetches = %d, want 4", cfg.Cache.MaxConcurrentFetches)
	}
	if cfg.Cache.Validity() != 24*time.Hour {
		t.Errorf("Cache.Validity() = %v, want 24h", cfg.Cache.Validity())
	}

	// Persistent defaults carry the seasonal synonym table
	if len(cfg.Persistent.SeasonalSynonyms) != 3 {
		t.Fatalf("Persistent.SeasonalSynonyms = %v, want 3 entries", cfg.Persistent.SeasonalSynonyms)
	}
	for i, want := range []string{"christmas", "krismas", "natal"} {
		if cfg.Persistent.SeasonalSynonyms[i] != want {
			t.Errorf("Persistent.SeasonalSynonyms[%d] = %q, want %q", i, cfg.Persistent.SeasonalSynonyms[i], want)
		}
	}

	// Migration defaults
	if cfg.Migration.TargetVersion != 2 {
		t.Errorf("Migration.TargetVersion = %d, want 2", cfg.Migration.TargetVersion)
	}
	if cfg.Migration.Auto {
		t.Errorf("Migration.Auto should be false by default")
	}

	// Sync defaults
	if cfg.Sync.Interval != 6*time.Hour {
		t.Errorf("Sync.Interval = %v, want 6h", cfg.Sync.Interval)
	}
	if !cfg.Sync.OnStart {
		t.Errorf("Sync.OnStart should be true by default")
	}

	// Backup defaults
	if cfg.Backup.Retention != 5 {
		t.Errorf("Backup.Retention = %d, want 5", cfg.Backup.Retention)
	}

	// Server defaults
	if cfg.Server.Port != 8180 {
		t.Errorf("Server.Port = %d, want 8180", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8180" {
		t.Errorf("Server.Addr() = %q, want 0.0.0.0:8180", got)
	}

	// Security defaults
	if cfg.Security.OperatorToken != "" {
		t.Errorf("Security.OperatorToken should be empty by default")
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}
	if cfg.Security.RateLimitRequests != 100 {
		t.Errorf("Security.RateLimitRequests = %d, want 100", cfg.Security.RateLimitRequests)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Remote
		{"LPMI40_REMOTE_ENABLED", "remote.enabled"},
		{"LPMI40_REMOTE_BASE_URL", "remote.base_url"},
		{"LPMI40_REMOTE_AUTH_TOKEN", "remote.auth_token"},
		{"LPMI40_REMOTE_TIMEOUT", "remote.timeout"},

		// Store
		{"LPMI40_STORE_PATH", "store.path"},
		{"LPMI40_STORE_IN_MEMORY", "store.in_memory"},

		// Cache
		{"LPMI40_CACHE_VALIDITY_HOURS", "cache.validity_hours"},
		{"LPMI40_CACHE_MAX_CONCURRENT_FETCHES", "cache.max_concurrent_fetches"},
		{"LPMI40_CACHE_MUST_INCLUDE", "cache.must_include"},

		// Persistent
		{"LPMI40_PERSISTENT_SEASONAL_SYNONYMS", "persistent.seasonal_synonyms"},

		// Migration
		{"LPMI40_MIGRATION_TARGET_VERSION", "migration.target_version"},

		// Sync
		{"LPMI40_SYNC_INTERVAL", "sync.interval"},

		// Backup
		{"LPMI40_BACKUP_DIR", "backup.dir"},
		{"LPMI40_BACKUP_RETENTION", "backup.retention"},

		// Server
		{"LPMI40_SERVER_PORT", "server.port"},
		{"LPMI40_SERVER_HOST", "server.host"},

		// Security
		{"LPMI40_OPERATOR_TOKEN", "security.operator_token"},
		{"LPMI40_CORS_ORIGINS", "security.cors_origins"},
		{"LPMI40_RATE_LIMIT_REQUESTS", "security.rate_limit_requests"},

		// Logging
		{"LPMI40_LOG_LEVEL", "logging.level"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := envTransformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	defer func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	}()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Run("no config file exists", func(t *testing.T) {
		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("logging:\n  level: debug\n"), 0644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		os.Unsetenv(ConfigPathEnvVar)
		result := findConfigFile()
		if result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("LPMI40_CONFIG_PATH takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom_config.yaml")
		if err := os.WriteFile(customPath, []byte("logging:\n  level: debug\n"), 0644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		defer os.Remove(customPath)

		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("LPMI40_CONFIG_PATH with non-existent file falls through", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, filepath.Join(tmpDir, "does_not_exist.yaml"))
		defer os.Unsetenv(ConfigPathEnvVar)

		result := findConfigFile()
		if result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadEnvOverrides verifies that environment variables override defaults
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LPMI40_REMOTE_ENABLED", "false")
	t.Setenv("LPMI40_CACHE_VALIDITY_HOURS", "48")
	t.Setenv("LPMI40_SERVER_PORT", "9999")
	t.Setenv("LPMI40_PERSISTENT_SEASONAL_SYNONYMS", "advent, natal ,christmas")
	t.Setenv("LPMI40_STORE_IN_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Remote.Enabled {
		t.Errorf("Remote.Enabled = true, want false from env")
	}
	if cfg.Cache.ValidityHours != 48 {
		t.Errorf("Cache.ValidityHours = %d, want 48 from env", cfg.Cache.ValidityHours)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 from env", cfg.Server.Port)
	}
	if !cfg.Store.InMemory {
		t.Errorf("Store.InMemory = false, want true from env")
	}

	want := []string{"advent", "natal", "christmas"}
	if len(cfg.Persistent.SeasonalSynonyms) != len(want) {
		t.Fatalf("SeasonalSynonyms = %v, want %v", cfg.Persistent.SeasonalSynonyms, want)
	}
	for i := range want {
		if cfg.Persistent.SeasonalSynonyms[i] != want[i] {
			t.Errorf("SeasonalSynonyms[%d] = %q, want %q", i, cfg.Persistent.SeasonalSynonyms[i], want[i])
		}
	}
}

// TestProcessSliceFields verifies comma-separated env values become slices
func TestProcessSliceFields(t *testing.T) {
	k := GetKoanfInstance()

	if err := k.Set("security.cors_origins", "https://a.example, https://b.example"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := k.Set("cache.must_include", ""); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := processSliceFields(k); err != nil {
		t.Fatalf("processSliceFields failed: %v", err)
	}

	origins := k.Strings("security.cors_origins")
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Errorf("cors_origins = %v, want two trimmed entries", origins)
	}

	if got := k.Strings("cache.must_include"); len(got) != 0 {
		t.Errorf("must_include = %v, want empty slice", got)
	}
}
