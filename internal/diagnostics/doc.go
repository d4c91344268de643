// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package diagnostics root-causes missing-collection incidents and runs
// operator-confirmed repairs.
//
// The read path (Investigate, HealthCheck) probes every storage tier
// without mutating anything, so it is safe to call from monitoring. The
// repair path (Backup, Restore) writes to the remote source and is gated
// behind an operator capability check; it is never triggered
// automatically.
package diagnostics
