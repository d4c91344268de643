// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package diagnostics

import (
	"context"
	"errors"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/remote"
	"github.com/heary-aldy/lpmi40-sub009/internal/store"
)

// ErrNotAuthorized is returned when a repair operation is invoked
// without operator authorization.
var ErrNotAuthorized = errors.New("operator authorization required")

// RemoteProbe is the slice of the remote client diagnostics reads from.
type RemoteProbe interface {
	ReadCollection(ctx context.Context, id string) (*models.CollectionExport, error)
}

// LocalProbe is the slice of the local store diagnostics reads from.
type LocalProbe interface {
	GetEntry(ctx context.Context, id string) (*models.CacheEntry, error)
}

// BundledProbe is the slice of the bundled asset source diagnostics
// reads from.
type BundledProbe interface {
	ReadBundled(id string) ([]models.Song, bool)
}

// PinnedSource supplies the persistent id set and explains which
// synonyms fired for an id.
type PinnedSource interface {
	PersistentIDs(ctx context.Context) ([]string, error)
	MatchedSynonyms(id string) []string
}

// Tool probes the storage tiers for investigation and health reports and
// fronts the operator-only backup and restore operations.
type Tool struct {
	remote    RemoteProbe
	local     LocalProbe
	bundled   BundledProbe
	pinned    PinnedSource
	backups   BackupRunner
	synonyms  []string
	authorize func(ctx context.Context) bool
}

// NewTool wires a diagnostics tool. The synonym list is the same
// data-driven table the candidate detector uses; investigations probe it
// as the alias set for the target id. authorize gates the repair path
// and must not be nil.
func NewTool(remote RemoteProbe, local LocalProbe, bundled BundledProbe, pinned PinnedSource,
	backups BackupRunner, synonyms []string, authorize func(ctx context.Context) bool) *Tool {
	return &Tool{
		remote:    remote,
		local:     local,
		bundled:   bundled,
		pinned:    pinned,
		backups:   backups,
		synonyms:  append([]string(nil), synonyms...),
		authorize: authorize,
	}
}

// Investigate probes the target id and its synonym aliases against the
// remote source, the local cache, and the bundled assets, reporting what
// exists where. Read-only: nothing is written to any tier.
//
// Resolvable reflects the exact target id only. An alias hit is reported
// as evidence for the operator but does not make the target resolvable,
// because the fetch path looks up collections by exact id.
func (t *Tool) Investigate(ctx context.Context, id string) (*models.InvestigationReport, error) {
	report := &models.InvestigationReport{
		TargetID:  id,
		Aliases:   t.pinned.MatchedSynonyms(id),
		CheckedAt: time.Now(),
	}

	probeIDs := []string{id}
	for _, alias := range t.synonyms {
		if alias != id {
			probeIDs = append(probeIDs, alias)
		}
	}

	for _, probeID := range probeIDs {
		probes := t.probeAll(ctx, probeID)
		report.Probes = append(report.Probes, probes...)
		if probeID == id {
			for _, p := range probes {
				if p.Exists {
					report.Resolvable = true
				}
			}
		}
	}

	logging.Info().
		Str("collection_id", id).
		Int("probes", len(report.Probes)).
		Bool("resolvable", report.Resolvable).
		Msg("Investigation completed")
	return report, nil
}

// probeAll checks one id against all three tiers in fallback order.
func (t *Tool) probeAll(ctx context.Context, id string) []models.ProbeResult {
	return []models.ProbeResult{
		t.probeRemote(ctx, id),
		t.probeLocal(ctx, id),
		t.probeBundled(id),
	}
}

func (t *Tool) probeRemote(ctx context.Context, id string) models.ProbeResult {
	p := models.ProbeResult{ProbedID: id, Location: models.ProbeRemote}
	if t.remote == nil {
		p.Error = "remote source not configured"
		return p
	}
	export, err := t.remote.ReadCollection(ctx, id)
	switch {
	case errors.Is(err, remote.ErrNotFound):
	case err != nil:
		p.Error = err.Error()
	default:
		p.Exists = true
		p.SongCount = len(export.Songs)
		p.SampleTitle = sampleTitle(export.SongList(id))
	}
	return p
}

func (t *Tool) probeLocal(ctx context.Context, id string) models.ProbeResult {
	p := models.ProbeResult{ProbedID: id, Location: models.ProbeLocal}
	entry, err := t.local.GetEntry(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		p.Error = err.Error()
	default:
		p.Exists = true
		p.SongCount = len(entry.Songs)
		p.SampleTitle = sampleTitle(entry.Songs)
	}
	return p
}

func (t *Tool) probeBundled(id string) models.ProbeResult {
	p := models.ProbeResult{ProbedID: id, Location: models.ProbeBundled}
	songs, ok := t.bundled.ReadBundled(id)
	if ok {
		p.Exists = true
		p.SongCount = len(songs)
		p.SampleTitle = sampleTitle(songs)
	}
	return p
}

func sampleTitle(songs []models.Song) string {
	if len(songs) == 0 {
		return ""
	}
	return songs[0].Title
}

// HealthCheck reports whether the persistent collections are actually
// reachable right now. critical means zero persistent ids resolve from
// any tier; degraded means at least one is missing but not all; healthy
// otherwise. An empty persistent set is healthy: nothing promised,
// nothing broken.
func (t *Tool) HealthCheck(ctx context.Context) (*models.HealthReport, error) {
	ids, err := t.pinned.PersistentIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.HealthReport{
		Status:    models.HealthHealthy,
		CheckedAt: time.Now(),
	}
	resolvable := 0
	for _, id := range ids {
		ch := models.CollectionHealth{CollectionID: id}
		for _, p := range t.probeAll(ctx, id) {
			if !p.Exists {
				continue
			}
			ch.Resolvable = true
			ch.Sources = append(ch.Sources, probeSource(p.Location))
			// Fallback order means the first hit is the one the
			// fetch path would serve.
			if ch.SongCount == 0 {
				ch.SongCount = p.SongCount
			}
		}
		if ch.Resolvable {
			resolvable++
		}
		report.PerCollection = append(report.PerCollection, ch)
	}

	switch {
	case len(ids) == 0 || resolvable == len(ids):
	case resolvable == 0:
		report.Status = models.HealthCritical
	default:
		report.Status = models.HealthDegraded
	}

	if report.Status != models.HealthHealthy {
		logging.Warn().
			Str("status", string(report.Status)).
			Int("persistent", len(ids)).
			Int("resolvable", resolvable).
			Msg("Persistent collection health check not healthy")
	}
	return report, nil
}

func probeSource(loc models.ProbeLocation) models.Source {
	switch loc {
	case models.ProbeRemote:
		return models.SourceRemote
	case models.ProbeLocal:
		return models.SourceLocal
	default:
		return models.SourceBundled
	}
}
