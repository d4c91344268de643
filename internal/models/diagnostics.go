// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package models

import "time"

// ProbeLocation is a storage tier a diagnostic probe can target.
type ProbeLocation string

// Probe locations.
const (
	ProbeRemote  ProbeLocation = "remote"
	ProbeLocal   ProbeLocation = "local"
	ProbeBundled ProbeLocation = "bundled"
)

// ProbeResult is the outcome of checking one candidate id against one
// storage tier.
type ProbeResult struct {
	ProbedID    string        `json:"probed_id"`
	Location    ProbeLocation `json:"location"`
	Exists      bool          `json:"exists"`
	SongCount   int           `json:"song_count"`
	SampleTitle string        `json:"sample_title,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// InvestigationReport is the full read-only picture of where data for a
// target collection id (and its known aliases) does or does not exist.
// Produced when root-causing a "collection X is missing" incident.
type InvestigationReport struct {
	TargetID   string        `json:"target_id"`
	Aliases    []string      `json:"aliases"`
	Probes     []ProbeResult `json:"probes"`
	Resolvable bool          `json:"resolvable"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// HealthState classifies overall persistent-collection health.
type HealthState string

// Health states.
const (
	// HealthHealthy: every persistent collection resolves from some source.
	HealthHealthy HealthState = "healthy"

	// HealthDegraded: at least one persistent collection is unresolvable,
	// but not all of them.
	HealthDegraded HealthState = "degraded"

	// HealthCritical: zero persistent collections resolve from any source.
	HealthCritical HealthState = "critical"
)

// CollectionHealth is the per-collection detail inside a HealthReport.
type CollectionHealth struct {
	CollectionID string   `json:"collection_id"`
	Resolvable   bool     `json:"resolvable"`
	Sources      []Source `json:"sources,omitempty"`
	SongCount    int      `json:"song_count"`
}

// HealthReport summarizes whether the collections the system has promised
// to keep visible are actually reachable right now.
type HealthReport struct {
	Status        HealthState        `json:"status"`
	PerCollection []CollectionHealth `json:"per_collection"`
	CheckedAt     time.Time          `json:"checked_at"`
}
