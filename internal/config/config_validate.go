// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateMigration(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateBackup(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateRemote validates remote source configuration (only if enabled).
// The remote source is optional; the engine can run from the local store
// and bundled assets alone.
func (c *Config) validateRemote() error {
	if !c.Remote.Enabled {
		return nil
	}

	if c.Remote.BaseURL == "" {
		return fmt.Errorf("LPMI40_REMOTE_BASE_URL is required when LPMI40_REMOTE_ENABLED=true")
	}
	if err := validateHTTPURL(c.Remote.BaseURL, "LPMI40_REMOTE_BASE_URL"); err != nil {
		return fmt.Errorf("LPMI40_REMOTE_BASE_URL is invalid: %w", err)
	}

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("LPMI40_REMOTE_TIMEOUT must be positive, got: %s", c.Remote.Timeout)
	}
	if c.Remote.MaxRetries < 0 {
		return fmt.Errorf("LPMI40_REMOTE_MAX_RETRIES must be non-negative, got: %d", c.Remote.MaxRetries)
	}
	if c.Remote.RequestsPerSecond <= 0 {
		return fmt.Errorf("LPMI40_REMOTE_REQUESTS_PER_SECOND must be positive, got: %g", c.Remote.RequestsPerSecond)
	}
	if c.Remote.Burst < 1 {
		return fmt.Errorf("LPMI40_REMOTE_BURST must be at least 1, got: %d", c.Remote.Burst)
	}
	if c.Remote.BreakerFailureRatio <= 0 || c.Remote.BreakerFailureRatio > 1 {
		return fmt.Errorf("LPMI40_REMOTE_BREAKER_FAILURE_RATIO must be in (0, 1], got: %g", c.Remote.BreakerFailureRatio)
	}

	return nil
}

func (c *Config) validateStore() error {
	if c.Store.InMemory {
		return nil
	}
	if c.Store.Path == "" {
		return fmt.Errorf("LPMI40_STORE_PATH is required when the store is not in-memory")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.ValidityHours < 1 {
		return fmt.Errorf("LPMI40_CACHE_VALIDITY_HOURS must be at least 1, got: %d", c.Cache.ValidityHours)
	}
	if c.Cache.MaxConcurrentFetches < 1 {
		return fmt.Errorf("LPMI40_CACHE_MAX_CONCURRENT_FETCHES must be at least 1, got: %d", c.Cache.MaxConcurrentFetches)
	}
	return nil
}

func (c *Config) validateMigration() error {
	if c.Migration.TargetVersion < 1 {
		return fmt.Errorf("LPMI40_MIGRATION_TARGET_VERSION must be at least 1, got: %d", c.Migration.TargetVersion)
	}
	return nil
}

func (c *Config) validateSync() error {
	if !c.Sync.Enabled {
		return nil
	}
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("LPMI40_SYNC_INTERVAL must be at least 1m, got: %s", c.Sync.Interval)
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.Dir == "" {
		return fmt.Errorf("LPMI40_BACKUP_DIR must not be empty")
	}
	if c.Backup.Retention < 1 {
		return fmt.Errorf("LPMI40_BACKUP_RETENTION must be at least 1, got: %d", c.Backup.Retention)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("LPMI40_SERVER_PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("LPMI40_SERVER_READ_TIMEOUT must be positive, got: %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("LPMI40_SERVER_WRITE_TIMEOUT must be positive, got: %s", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("LPMI40_SERVER_SHUTDOWN_TIMEOUT must be positive, got: %s", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitRequests < 1 {
		return fmt.Errorf("LPMI40_RATE_LIMIT_REQUESTS must be at least 1, got: %d", c.Security.RateLimitRequests)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("LPMI40_RATE_LIMIT_WINDOW must be positive, got: %s", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LPMI40_LOG_LEVEL must be one of trace, debug, info, warn, error, got: %s", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LPMI40_LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}

	return nil
}

// validateHTTPURL validates that a URL is properly formatted for HTTP/HTTPS services.
// Validates: scheme (http/https), host present, no paths or query params.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	// Allow trailing slash but no other paths
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}
