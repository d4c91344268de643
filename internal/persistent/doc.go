// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package persistent manages the durable ordered set of pinned
// collection ids and the heuristic that proposes new pins.
//
// Pinned collections are guaranteed to surface in listings whenever any
// source has data for them, even when the latest remote listing omits
// them. The set is mutated only through explicit Add and Remove calls;
// cache invalidation never touches it.
//
// Candidate detection is a separate, pure scan: DetectCandidates matches
// ids against the configured seasonal synonyms and proposes pins without
// ever writing. Callers decide whether a proposal becomes a pin, which
// keeps the fuzzy heuristic testable apart from the guarantee it feeds.
package persistent
