// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// indexFileName is the on-disk metadata index next to the archives.
const indexFileName = "metadata.json"

// RemoteSource is the slice of the remote client backups consume.
type RemoteSource interface {
	ListCollectionIDs(ctx context.Context) ([]string, error)
	ReadCollection(ctx context.Context, id string) (*models.CollectionExport, error)
	WriteCollection(ctx context.Context, id string, export *models.CollectionExport) error
}

// Manager creates, lists, validates, restores, and prunes collection
// backups. All metadata mutations serialize on an internal mutex; the
// archives themselves are written once and never modified.
type Manager struct {
	remote    RemoteSource
	dir       string
	retention int

	mu      chanMutex
	backups map[string]*Backup
}

// chanMutex is a context-aware mutex: restores can take long enough
// that callers deserve cancellation while waiting for their turn.
type chanMutex chan struct{}

func (m chanMutex) lock(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) unlock() { <-m }

// NewManager creates a backup manager over the given directory,
// creating it if missing and loading any existing metadata index.
func NewManager(remote RemoteSource, cfg config.BackupConfig) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup directory not configured")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving backup directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	m := &Manager{
		remote:    remote,
		dir:       dir,
		retention: cfg.Retention,
		mu:        make(chanMutex, 1),
		backups:   make(map[string]*Backup),
	}
	if err := m.loadIndex(); err != nil {
		return nil, err
	}

	logging.Info().
		Str("dir", dir).
		Int("archives", len(m.backups)).
		Int("retention", cfg.Retention).
		Msg("Backup manager ready")
	return m, nil
}

// CreateBackup snapshots the given collection ids (all remote
// collections when ids is empty) into a new archive and returns its
// metadata record. A collection that cannot be read fails the whole
// backup; a partial snapshot would be worse than none when it is later
// trusted for a restore.
func (m *Manager) CreateBackup(ctx context.Context, ids []string, trigger Trigger, notes string) (*Backup, error) {
	if err := m.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer m.mu.unlock()
	return m.createBackupLocked(ctx, ids, trigger, notes)
}

// createBackupLocked is CreateBackup without the lock, for the
// pre-restore snapshot taken while a restore already holds it.
func (m *Manager) createBackupLocked(ctx context.Context, ids []string, trigger Trigger, notes string) (*Backup, error) {
	start := time.Now()

	if len(ids) == 0 {
		listed, err := m.remote.ListCollectionIDs(ctx)
		if err != nil {
			metrics.BackupRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("listing collections for backup: %w", err)
		}
		ids = listed
	}
	if len(ids) == 0 {
		metrics.BackupRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("nothing to back up: no collections")
	}

	b := &Backup{
		ID:            uuid.New().String(),
		Status:        StatusInProgress,
		Trigger:       trigger,
		CreatedAt:     start,
		CollectionIDs: append([]string(nil), ids...),
		Notes:         notes,
	}
	b.FilePath = filepath.Join(m.dir, fmt.Sprintf("backup-%s-%s.json.gz",
		start.UTC().Format("20060102T150405Z"), b.ID[:8]))

	doc := &archiveDocument{
		FormatVersion: archiveFormatVersion,
		CreatedAt:     start,
		Collections:   make(map[string]*models.CollectionExport, len(ids)),
	}
	for _, id := range ids {
		export, err := m.remote.ReadCollection(ctx, id)
		if err != nil {
			metrics.BackupRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("reading collection %s for backup: %w", id, err)
		}
		doc.Collections[id] = export
		b.SongCount += len(export.Songs)
	}

	size, checksum, err := writeArchive(b.FilePath, doc)
	if err != nil {
		metrics.BackupRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	completed := time.Now()
	b.Status = StatusCompleted
	b.CompletedAt = &completed
	b.Duration = completed.Sub(start).Milliseconds()
	b.FileSize = size
	b.Checksum = checksum

	m.backups[b.ID] = b
	if err := m.saveIndex(); err != nil {
		// The archive exists but the index write failed; keep the
		// record in memory and surface the problem.
		logging.Error().Err(err).Str("backup_id", b.ID).Msg("Failed to persist backup index")
	}

	metrics.BackupRuns.WithLabelValues("ok").Inc()
	metrics.BackupDuration.Observe(completed.Sub(start).Seconds())
	metrics.BackupArchiveBytes.Set(float64(size))
	logging.Info().
		Str("backup_id", b.ID).
		Str("trigger", string(trigger)).
		Int("collections", len(ids)).
		Int("songs", b.SongCount).
		Int64("bytes", size).
		Dur("duration", completed.Sub(start)).
		Msg("Backup created")
	return b.clone(), nil
}

// List returns all backup records, newest first.
func (m *Manager) List(ctx context.Context) ([]*Backup, error) {
	if err := m.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer m.mu.unlock()

	out := make([]*Backup, 0, len(m.backups))
	for _, b := range m.backups {
		out = append(out, b.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Get returns one backup record by handle.
func (m *Manager) Get(ctx context.Context, id string) (*Backup, error) {
	if err := m.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer m.mu.unlock()

	b, ok := m.backups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	return b.clone(), nil
}

// Delete removes a backup record and its archive file.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.mu.lock(ctx); err != nil {
		return err
	}
	defer m.mu.unlock()
	return m.deleteLocked(id)
}

func (m *Manager) deleteLocked(id string) error {
	b, ok := m.backups[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	if err := os.Remove(b.FilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing archive: %w", err)
	}
	delete(m.backups, id)
	if err := m.saveIndex(); err != nil {
		return err
	}
	logging.Info().Str("backup_id", id).Msg("Backup deleted")
	return nil
}

// loadIndex reads the metadata index from disk. A missing index means
// a fresh directory; a corrupt one is an error rather than silently
// orphaning archives.
func (m *Manager) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(m.dir, indexFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading backup index: %w", err)
	}

	var records []*Backup
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decoding backup index: %w", err)
	}
	for _, b := range records {
		m.backups[b.ID] = b
	}
	return nil
}

// saveIndex writes the metadata index atomically.
func (m *Manager) saveIndex() error {
	records := make([]*Backup, 0, len(m.backups))
	for _, b := range m.backups {
		records = append(records, b)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding backup index: %w", err)
	}

	path := filepath.Join(m.dir, indexFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("writing backup index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("placing backup index: %w", err)
	}
	return nil
}

// clone returns a copy so callers cannot mutate manager state.
func (b *Backup) clone() *Backup {
	copied := *b
	copied.CollectionIDs = append([]string(nil), b.CollectionIDs...)
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		copied.CompletedAt = &t
	}
	return &copied
}
