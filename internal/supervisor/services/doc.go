// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

/*
Package services provides suture.Service wrappers for the engine's
long-running components.

Each wrapper adapts a component's native lifecycle to suture's
context-aware Serve pattern and implements fmt.Stringer so supervisor
logs name the service.

HTTPServerService wraps *http.Server: ListenAndServe runs in a
goroutine, context cancellation triggers a graceful Shutdown with a
bounded drain timeout, and http.ErrServerClosed is treated as a clean
stop.

RefreshService wraps sync.Manager's Start/Stop lifecycle. A Start
failure is returned so the supervisor restarts the refresh loop; a
Stop error during shutdown is only logged.

BackupSchedulerService ticks on the configured interval, snapshots all
remote collections, and applies the retention policy. Individual
failed snapshots are retried on the next tick rather than treated as
crashes.

Return values from Serve drive supervisor behavior: nil means a clean
stop (no restart), a non-nil error triggers a restart with backoff,
and ctx.Err() signals normal shutdown.
*/
package services
