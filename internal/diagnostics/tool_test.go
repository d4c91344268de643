// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package diagnostics

import (
	"context"
	"errors"
	"testing"

	"github.com/heary-aldy/lpmi40-sub009/internal/backup"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/remote"
	"github.com/heary-aldy/lpmi40-sub009/internal/store"
)

type fakeRemoteProbe struct {
	exports map[string]*models.CollectionExport
	errs    map[string]error
}

func (f *fakeRemoteProbe) ReadCollection(ctx context.Context, id string) (*models.CollectionExport, error) {
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	export, ok := f.exports[id]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return export, nil
}

type fakeLocalProbe struct {
	entries map[string]*models.CacheEntry
	errs    map[string]error
}

func (f *fakeLocalProbe) GetEntry(ctx context.Context, id string) (*models.CacheEntry, error) {
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	entry, ok := f.entries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return entry, nil
}

type fakeBundledProbe struct {
	collections map[string][]models.Song
}

func (f *fakeBundledProbe) ReadBundled(id string) ([]models.Song, bool) {
	songs, ok := f.collections[id]
	return songs, ok
}

type fakePinned struct {
	ids    []string
	getErr error
}

func (f *fakePinned) PersistentIDs(ctx context.Context) ([]string, error) {
	return f.ids, f.getErr
}

func (f *fakePinned) MatchedSynonyms(id string) []string {
	var out []string
	for _, syn := range []string{"christmas", "krismas", "natal"} {
		if len(id) >= len(syn) && containsFold(id, syn) {
			out = append(out, syn)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

type fakeBackups struct {
	created    []string
	restored   []string
	createErr  error
	restoreErr error
}

func (f *fakeBackups) CreateBackup(ctx context.Context, ids []string, trigger backup.Trigger, notes string) (*backup.Backup, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, notes)
	return &backup.Backup{ID: "bk-1", Status: backup.StatusCompleted, Trigger: trigger}, nil
}

func (f *fakeBackups) Restore(ctx context.Context, id string, opts backup.RestoreOptions) (*backup.RestoreResult, error) {
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	f.restored = append(f.restored, id)
	return &backup.RestoreResult{Success: true, BackupID: id}, nil
}

func export(titles ...string) *models.CollectionExport {
	songs := make(map[string]models.SongExport, len(titles))
	for i, title := range titles {
		songs[string(rune('1'+i))] = models.SongExport{Title: title}
	}
	return &models.CollectionExport{Songs: songs}
}

func entry(id string, n int) *models.CacheEntry {
	songs := make([]models.Song, n)
	for i := range songs {
		songs[i] = models.Song{Number: string(rune('1' + i)), Title: "Lagu", CollectionID: id}
	}
	return &models.CacheEntry{CollectionID: id, Songs: songs, Source: models.SourceLocal}
}

func allowAll(context.Context) bool { return true }
func denyAll(context.Context) bool  { return false }

func newTestTool(remote *fakeRemoteProbe, local *fakeLocalProbe, bundled *fakeBundledProbe,
	pinned *fakePinned, backups *fakeBackups, synonyms []string, authorize func(context.Context) bool) *Tool {
	if remote == nil {
		remote = &fakeRemoteProbe{}
	}
	if local == nil {
		local = &fakeLocalProbe{}
	}
	if bundled == nil {
		bundled = &fakeBundledProbe{}
	}
	if pinned == nil {
		pinned = &fakePinned{}
	}
	if backups == nil {
		backups = &fakeBackups{}
	}
	return NewTool(remote, local, bundled, pinned, backups, synonyms, authorize)
}

func TestInvestigateProbesAllTiersAndAliases(t *testing.T) {
	rp := &fakeRemoteProbe{exports: map[string]*models.CollectionExport{
		"lagu_krismas": export("Malam Kudus"),
	}}
	lp := &fakeLocalProbe{entries: map[string]*models.CacheEntry{}}
	bp := &fakeBundledProbe{collections: map[string][]models.Song{}}

	tool := newTestTool(rp, lp, bp, &fakePinned{}, nil, []string{"krismas", "lagu_krismas"}, allowAll)

	report, err := tool.Investigate(context.Background(), "christmas")
	if err != nil {
		t.Fatalf("Investigate() error = %v", err)
	}
	// Target plus two aliases, three tiers each.
	if len(report.Probes) != 9 {
		t.Fatalf("len(Probes) = %d, want 9", len(report.Probes))
	}
	// The exact id resolves nowhere, so the target is unresolvable even
	// though an alias exists remotely.
	if report.Resolvable {
		t.Error("Resolvable = true for id with only alias data")
	}

	var aliasHit bool
	for _, p := range report.Probes {
		if p.ProbedID == "lagu_krismas" && p.Location == models.ProbeRemote {
			aliasHit = p.Exists
			if p.SongCount != 1 || p.SampleTitle != "Malam Kudus" {
				t.Errorf("alias probe = %+v", p)
			}
		}
	}
	if !aliasHit {
		t.Error("remote alias probe did not report existing data")
	}
}

func TestInvestigateResolvableFromLocalOnly(t *testing.T) {
	lp := &fakeLocalProbe{entries: map[string]*models.CacheEntry{
		"christmas": entry("christmas", 3),
	}}
	tool := newTestTool(nil, lp, nil, &fakePinned{}, nil, nil, allowAll)

	report, err := tool.Investigate(context.Background(), "christmas")
	if err != nil {
		t.Fatalf("Investigate() error = %v", err)
	}
	if !report.Resolvable {
		t.Error("Resolvable = false with a local cache entry present")
	}
}

func TestInvestigateRecordsTierErrors(t *testing.T) {
	rp := &fakeRemoteProbe{errs: map[string]error{"lpmi": errors.New("connection refused")}}
	lp := &fakeLocalProbe{errs: map[string]error{"lpmi": store.ErrCorrupt}}
	tool := newTestTool(rp, lp, nil, &fakePinned{}, nil, nil, allowAll)

	report, _ := tool.Investigate(context.Background(), "lpmi")
	for _, p := range report.Probes {
		if p.Exists {
			t.Errorf("probe %+v reported existence despite errors", p)
		}
		if p.Location != models.ProbeBundled && p.Error == "" {
			t.Errorf("probe %v has no error recorded", p.Location)
		}
	}
}

func TestInvestigateReportsMatchedSynonyms(t *testing.T) {
	tool := newTestTool(nil, nil, nil, &fakePinned{}, nil, nil, allowAll)

	report, _ := tool.Investigate(context.Background(), "lagu_natal")
	if len(report.Aliases) != 1 || report.Aliases[0] != "natal" {
		t.Errorf("Aliases = %v, want [natal]", report.Aliases)
	}
}

func TestHealthCheckHealthy(t *testing.T) {
	bp := &fakeBundledProbe{collections: map[string][]models.Song{
		"lpmi": {{Number: "001", Title: "Pujian"}},
	}}
	rp := &fakeRemoteProbe{exports: map[string]*models.CollectionExport{
		"srd": export("A", "B"),
	}}
	tool := newTestTool(rp, nil, bp, &fakePinned{ids: []string{"lpmi", "srd"}}, nil, nil, allowAll)

	report, err := tool.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if report.Status != models.HealthHealthy {
		t.Errorf("Status = %q, want healthy", report.Status)
	}
	if len(report.PerCollection) != 2 {
		t.Fatalf("PerCollection = %d entries, want 2", len(report.PerCollection))
	}
	for _, ch := range report.PerCollection {
		if !ch.Resolvable || len(ch.Sources) == 0 {
			t.Errorf("collection %s not resolvable: %+v", ch.CollectionID, ch)
		}
	}
}

func TestHealthCheckDegraded(t *testing.T) {
	bp := &fakeBundledProbe{collections: map[string][]models.Song{
		"lpmi": {{Number: "001"}},
	}}
	tool := newTestTool(nil, nil, bp, &fakePinned{ids: []string{"lpmi", "christmas"}}, nil, nil, allowAll)

	report, err := tool.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if report.Status != models.HealthDegraded {
		t.Errorf("Status = %q, want degraded", report.Status)
	}
}

func TestHealthCheckCritical(t *testing.T) {
	tool := newTestTool(nil, nil, nil, &fakePinned{ids: []string{"lpmi", "srd"}}, nil, nil, allowAll)

	report, err := tool.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if report.Status != models.HealthCritical {
		t.Errorf("Status = %q, want critical", report.Status)
	}
}

func TestHealthCheckEmptyPersistentSetIsHealthy(t *testing.T) {
	tool := newTestTool(nil, nil, nil, &fakePinned{}, nil, nil, allowAll)

	report, err := tool.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if report.Status != models.HealthHealthy {
		t.Errorf("Status = %q, want healthy for empty set", report.Status)
	}
}

func TestHealthCheckPrefersFallbackOrderSongCount(t *testing.T) {
	rp := &fakeRemoteProbe{exports: map[string]*models.CollectionExport{
		"lpmi": export("A", "B", "C"),
	}}
	bp := &fakeBundledProbe{collections: map[string][]models.Song{
		"lpmi": {{Number: "001"}},
	}}
	tool := newTestTool(rp, nil, bp, &fakePinned{ids: []string{"lpmi"}}, nil, nil, allowAll)

	report, _ := tool.HealthCheck(context.Background())
	ch := report.PerCollection[0]
	if ch.SongCount != 3 {
		t.Errorf("SongCount = %d, want 3 (remote tier wins)", ch.SongCount)
	}
	if len(ch.Sources) != 2 {
		t.Errorf("Sources = %v, want remote and bundled", ch.Sources)
	}
}

func TestBackupRequiresOperator(t *testing.T) {
	backups := &fakeBackups{}
	tool := newTestTool(nil, nil, nil, nil, backups, nil, denyAll)

	if _, err := tool.Backup(context.Background(), nil, ""); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Backup() error = %v, want ErrNotAuthorized", err)
	}
	if len(backups.created) != 0 {
		t.Error("unauthorized backup reached the manager")
	}
}

func TestBackupDelegates(t *testing.T) {
	backups := &fakeBackups{}
	tool := newTestTool(nil, nil, nil, nil, backups, nil, allowAll)

	b, err := tool.Backup(context.Background(), []string{"lpmi"}, "pre-change")
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if b.Trigger != backup.TriggerManual {
		t.Errorf("Trigger = %q, want manual", b.Trigger)
	}
	if len(backups.created) != 1 || backups.created[0] != "pre-change" {
		t.Errorf("created = %v", backups.created)
	}
}

func TestRestoreRequiresOperator(t *testing.T) {
	backups := &fakeBackups{}
	tool := newTestTool(nil, nil, nil, nil, backups, nil, denyAll)

	if _, err := tool.Restore(context.Background(), "bk-1", backup.RestoreOptions{}); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Restore() error = %v, want ErrNotAuthorized", err)
	}
	if len(backups.restored) != 0 {
		t.Error("unauthorized restore reached the manager")
	}
}

func TestRestoreDelegates(t *testing.T) {
	backups := &fakeBackups{}
	tool := newTestTool(nil, nil, nil, nil, backups, nil, allowAll)

	result, err := tool.Restore(context.Background(), "bk-1", backup.RestoreOptions{})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !result.Success || len(backups.restored) != 1 {
		t.Errorf("restore did not delegate: %+v, %v", result, backups.restored)
	}
}

func TestRestorePropagatesFailure(t *testing.T) {
	backups := &fakeBackups{restoreErr: backup.ErrRestoreFailed}
	tool := newTestTool(nil, nil, nil, nil, backups, nil, allowAll)

	if _, err := tool.Restore(context.Background(), "bk-1", backup.RestoreOptions{}); !errors.Is(err, backup.ErrRestoreFailed) {
		t.Errorf("Restore() error = %v, want ErrRestoreFailed", err)
	}
}
