// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package models

import "time"

// APIResponse represents a standardized API response wrapper used by all HTTP
// endpoints. It provides consistent structure for both successful and error
// responses, with metadata for observability.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"collections": [...]},
//	  "metadata": {"timestamp": "2026-08-21T12:00:00Z"}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "collection not found"},
//	  "metadata": {"timestamp": "2026-08-21T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// QueryTimeMS is the server-side execution time for the request; Cached is
// set when the response was served entirely from the in-memory cache with
// no remote I/O.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError carries a machine-readable code alongside the human-readable
// message. Codes are stable; messages are not.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the payload of the main health endpoint.
type HealthStatus struct {
	Status          string     `json:"status"`
	Version         string     `json:"version"`
	StoreConnected  bool       `json:"store_connected"`
	RemoteConnected bool       `json:"remote_connected"`
	LastRefreshAt   *time.Time `json:"last_refresh_at,omitempty"`
	Uptime          float64    `json:"uptime_seconds"`
}
