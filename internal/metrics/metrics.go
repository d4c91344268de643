// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Collection Fetch Metrics
	CollectionFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_fetches_total",
			Help: "Total number of collection fetches by source and outcome",
		},
		[]string{"source", "outcome"}, // source: "remote", "local", "bundled"; outcome: "ok", "error"
	)

	CollectionFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collection_fetch_duration_seconds",
			Help:    "Duration of collection fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	CollectionsOmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collections_omitted_total",
			Help: "Total number of collections omitted from results",
		},
		[]string{"reason"}, // "remote_unavailable", "not_found"
	)

	// Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of fresh cache hits that avoided a fetch",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses or stale entries requiring a fetch",
		},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached collections by source",
		},
		[]string{"source"},
	)

	CacheFetchesShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_fetches_shared_total",
			Help: "Total number of callers that piggybacked on an in-flight fetch",
		},
	)

	// Remote Source Metrics
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_requests_total",
			Help: "Total number of remote database requests",
		},
		[]string{"operation", "status_code"},
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_request_duration_seconds",
			Help:    "Remote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RemoteRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remote_retries_total",
			Help: "Total number of remote request retries",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Local Store Metrics (BadgerDB)
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of local store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total number of local store operation errors",
		},
		[]string{"operation", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Search Metrics
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Duration of song searches in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_results",
			Help:    "Number of results returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	// Sync Operation Metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of refresh passes in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SyncCollectionsRefreshed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_collections_refreshed_total",
			Help: "Total number of collections refreshed during sync passes",
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors",
		},
		[]string{"error_type"}, // "remote", "store", "other"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of last successful sync",
		},
	)

	// Migration Metrics
	MigrationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_runs_total",
			Help: "Total number of migration runs by outcome",
		},
		[]string{"outcome"}, // "completed", "failed", "skipped", "noop"
	)

	MigrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "migration_duration_seconds",
			Help:    "Duration of migration runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	MigrationSongsRekeyed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "migration_songs_rekeyed_total",
			Help: "Total number of songs re-keyed by migrations",
		},
	)

	// Backup Metrics
	BackupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_runs_total",
			Help: "Total number of backup runs by outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Duration of backup runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	BackupArchiveBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_archive_bytes",
			Help: "Size of the most recent backup archive in bytes",
		},
	)

	RestoreRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restore_runs_total",
			Help: "Total number of restore runs by outcome",
		},
		[]string{"outcome"}, // "ok", "failed", "validate_only"
	)
)

// RecordFetch records a collection fetch against its source.
func RecordFetch(source string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CollectionFetches.WithLabelValues(source, outcome).Inc()
	CollectionFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordStoreOp records a local store operation metric
func RecordStoreOp(operation string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		StoreOpErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRemoteRequest records a remote database request metric
func RecordRemoteRequest(operation, statusCode string, duration time.Duration) {
	RemoteRequests.WithLabelValues(operation, statusCode).Inc()
	RemoteRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSearch records a search pass
func RecordSearch(duration time.Duration, results int) {
	SearchDuration.Observe(duration.Seconds())
	SearchResults.Observe(float64(results))
}

// RecordSyncPass records a refresh pass metric
func RecordSyncPass(duration time.Duration, refreshed int, err error) {
	SyncDuration.Observe(duration.Seconds())
	SyncCollectionsRefreshed.Add(float64(refreshed))
	if err != nil {
		errorType := "other"
		errorMsg := err.Error()
		switch {
		case contains(errorMsg, "remote"):
			errorType = "remote"
		case contains(errorMsg, "store"):
			errorType = "store"
		}
		SyncErrors.WithLabelValues(errorType).Inc()
	} else {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetBreakerState publishes a circuit breaker state transition.
// closed=0, half-open=1, open=2.
func SetBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// Helper function to check if string contains substring
func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
