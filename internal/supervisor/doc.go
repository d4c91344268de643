// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

/*
Package supervisor provides the suture v4 supervision tree for the
engine's long-running components.

The tree has three child supervisors under a single root:

	lpmi40
	├── data-layer    store GC, backup scheduler
	├── sync-layer    background refresh manager
	└── api-layer     HTTP server

Layers isolate failures: a crashing refresh pass restarts inside the
sync layer while the API layer keeps serving whatever is cached.
Supervisor events are logged through sutureslog, bridged onto the
zerolog backend via logging.NewSlogHandler.

Typical wiring:

	slogger := slog.New(logging.NewSlogHandler())
	tree, err := supervisor.NewSupervisorTree(slogger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddSyncService(services.NewRefreshService(syncManager))
	tree.AddDataService(services.NewBackupSchedulerService(backups, cfg.Backup.Interval))
	return tree.Serve(ctx)

Serve blocks until the context is canceled, then shuts the layers down
within TreeConfig.ShutdownTimeout.
*/
package supervisor
