// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

// Package config loads and validates application configuration using
// Koanf v2 with layered sources: built-in defaults, an optional YAML
// config file, and environment variables (highest precedence).
//
// Every setting can be overridden through an LPMI40_-prefixed
// environment variable; see envMappings in koanf.go for the full list.
// The loaded Config is immutable and safe for concurrent reads.
package config
