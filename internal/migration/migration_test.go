// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package migration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
	"github.com/heary-aldy/lpmi40-sub009/internal/store"
)

// fakeRemote implements RemoteSource with scriptable failures.
type fakeRemote struct {
	mu         sync.Mutex
	exports    map[string]*models.CollectionExport
	listErr    error
	readErrs   map[string]error
	writeErrs  map[string]error
	writeCalls map[string][]models.Song
}

func newFakeRemote(exports map[string]*models.CollectionExport) *fakeRemote {
	return &fakeRemote{
		exports:    exports,
		readErrs:   make(map[string]error),
		writeErrs:  make(map[string]error),
		writeCalls: make(map[string][]models.Song),
	}
}

func (f *fakeRemote) ListCollectionIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]string, 0, len(f.exports))
	for id := range f.exports {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRemote) ReadCollection(ctx context.Context, id string) (*models.CollectionExport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErrs[id]; err != nil {
		return nil, err
	}
	return f.exports[id], nil
}

func (f *fakeRemote) WriteSongs(ctx context.Context, id string, songs []models.Song) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeErrs[id]; err != nil {
		return err
	}
	f.writeCalls[id] = songs
	f.exports[id] = &models.CollectionExport{
		Metadata: f.exports[id].Metadata,
		Songs:    models.ExportSongs(songs),
	}
	return nil
}

// fakeStateStore keeps the migration record in memory.
type fakeStateStore struct {
	mu     sync.Mutex
	state  *models.MigrationState
	getErr error
	setErr error
}

func (f *fakeStateStore) GetMigrationState(ctx context.Context) (*models.MigrationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.state == nil {
		return nil, store.ErrNotFound
	}
	copied := *f.state
	return &copied, nil
}

func (f *fakeStateStore) SetMigrationState(ctx context.Context, state *models.MigrationState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	copied := *state
	f.state = &copied
	return nil
}

func exportWith(numbers ...string) *models.CollectionExport {
	songs := make(map[string]models.SongExport, len(numbers))
	for _, n := range numbers {
		songs[n] = models.SongExport{Title: "Song " + n}
	}
	return &models.CollectionExport{
		Metadata: models.CollectionMeta{Name: "Test"},
		Songs:    songs,
	}
}

func newTestManager(remote *fakeRemote, states *fakeStateStore, target int) *Manager {
	return NewManager(remote, states, config.MigrationConfig{TargetVersion: target})
}

func TestMaxSongNumber(t *testing.T) {
	tests := []struct {
		name        string
		collections map[string][]models.Song
		want        int
	}{
		{
			name:        "empty",
			collections: map[string][]models.Song{},
			want:        0,
		},
		{
			name: "numeric max across collections",
			collections: map[string][]models.Song{
				"a": {{Number: "3"}, {Number: "120"}},
				"b": {{Number: "45"}},
			},
			want: 120,
		},
		{
			name: "non numeric ignored",
			collections: map[string][]models.Song{
				"a": {{Number: "A1"}, {Number: "7"}, {Number: ""}},
			},
			want: 7,
		},
		{
			name: "padded numbers parse",
			collections: map[string][]models.Song{
				"a": {{Number: "007"}, {Number: "042"}},
			},
			want: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxSongNumber(tt.collections); got != tt.want {
				t.Errorf("maxSongNumber() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPadWidth(t *testing.T) {
	tests := []struct {
		max  int
		want int
	}{
		{0, 0},
		{-5, 0},
		{9, 1},
		{40, 2},
		{100, 3},
		{999, 3},
		{1000, 4},
	}

	for _, tt := range tests {
		if got := padWidth(tt.max); got != tt.want {
			t.Errorf("padWidth(%d) = %d, want %d", tt.max, got, tt.want)
		}
	}
}

func TestRekeySongs(t *testing.T) {
	songs := []models.Song{
		{Number: "12", Title: "Twelve"},
		{Number: "1", Title: "One"},
		{Number: "Korus", Title: "Chorus"},
		{Number: "003", Title: "Three"},
	}

	out, changed := rekeySongs(songs, 3)

	if changed != 2 {
		t.Errorf("changed = %d, want 2 (only 12 and 1 need padding)", changed)
	}
	// Natural order after re-keying: 001, 003, 012, then Korus.
	wantNumbers := []string{"001", "003", "012", "Korus"}
	for i, want := range wantNumbers {
		if out[i].Number != want {
			t.Errorf("out[%d].Number = %q, want %q", i, out[i].Number, want)
		}
	}
	// Input untouched.
	if songs[0].Number != "12" {
		t.Errorf("input slice mutated: %q", songs[0].Number)
	}
}

func TestRekeySongsIdempotent(t *testing.T) {
	songs := []models.Song{{Number: "001"}, {Number: "040"}}
	_, changed := rekeySongs(songs, 3)
	if changed != 0 {
		t.Errorf("re-keying already-padded songs changed %d keys, want 0", changed)
	}
}

func TestCheckStatusInitial(t *testing.T) {
	m := newTestManager(newFakeRemote(nil), &fakeStateStore{}, 2)

	state, err := m.CheckStatus(context.Background())
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if state.CurrentVersion != 1 || state.TargetVersion != 2 {
		t.Errorf("initial state = v%d->v%d, want v1->v2", state.CurrentVersion, state.TargetVersion)
	}
	if state.UpToDate() {
		t.Error("initial state should report pending migration")
	}
}

func TestRunIfNeededNoopWhenUpToDate(t *testing.T) {
	states := &fakeStateStore{state: &models.MigrationState{CurrentVersion: 2, TargetVersion: 2, Status: models.MigrationUpToDate}}
	remote := newFakeRemote(map[string]*models.CollectionExport{"lpmi": exportWith("1")})
	m := newTestManager(remote, states, 2)

	didMigrate, err := m.RunIfNeeded(context.Background())
	if err != nil {
		t.Fatalf("RunIfNeeded() error = %v", err)
	}
	if didMigrate {
		t.Error("RunIfNeeded() migrated an up-to-date store")
	}
	if len(remote.writeCalls) != 0 {
		t.Errorf("up-to-date run wrote %d collections, want 0", len(remote.writeCalls))
	}
}

func TestRunIfNeededMigrates(t *testing.T) {
	remote := newFakeRemote(map[string]*models.CollectionExport{
		"lpmi": exportWith("1", "12", "120"),
		"srd":  exportWith("2", "45"),
	})
	states := &fakeStateStore{}
	m := newTestManager(remote, states, 2)

	didMigrate, err := m.RunIfNeeded(context.Background())
	if err != nil {
		t.Fatalf("RunIfNeeded() error = %v", err)
	}
	if !didMigrate {
		t.Fatal("RunIfNeeded() = false, want migration")
	}

	// Max number 120 -> width 3.
	lpmi := remote.writeCalls["lpmi"]
	if len(lpmi) != 3 {
		t.Fatalf("lpmi write carried %d songs, want 3", len(lpmi))
	}
	if lpmi[0].Number != "001" || lpmi[2].Number != "120" {
		t.Errorf("lpmi keys = %q..%q, want 001..120", lpmi[0].Number, lpmi[2].Number)
	}
	srd := remote.writeCalls["srd"]
	if srd[0].Number != "002" || srd[1].Number != "045" {
		t.Errorf("srd keys = %q,%q, want 002,045", srd[0].Number, srd[1].Number)
	}

	state, _ := states.GetMigrationState(context.Background())
	if state.CurrentVersion != 2 {
		t.Errorf("CurrentVersion = %d, want 2", state.CurrentVersion)
	}
	if state.Status != models.MigrationUpToDate {
		t.Errorf("Status = %q, want %q", state.Status, models.MigrationUpToDate)
	}
	if state.LastMigrationAt.IsZero() {
		t.Error("LastMigrationAt not stamped")
	}
}

func TestRunIfNeededIdempotent(t *testing.T) {
	remote := newFakeRemote(map[string]*models.CollectionExport{"lpmi": exportWith("1", "40")})
	states := &fakeStateStore{}
	m := newTestManager(remote, states, 2)

	if _, err := m.RunIfNeeded(context.Background()); err != nil {
		t.Fatalf("first RunIfNeeded() error = %v", err)
	}
	firstWrites := len(remote.writeCalls)

	didMigrate, err := m.RunIfNeeded(context.Background())
	if err != nil {
		t.Fatalf("second RunIfNeeded() error = %v", err)
	}
	if didMigrate {
		t.Error("second RunIfNeeded() migrated again")
	}
	if len(remote.writeCalls) != firstWrites {
		t.Error("second run issued additional writes")
	}

	state, _ := states.GetMigrationState(context.Background())
	if state.CurrentVersion != 2 {
		t.Errorf("CurrentVersion after both runs = %d, want 2", state.CurrentVersion)
	}
}

func TestRunIfNeededFailureLeavesVersionUntouched(t *testing.T) {
	remote := newFakeRemote(map[string]*models.CollectionExport{
		"lpmi": exportWith("1", "40"),
		"srd":  exportWith("2"),
	})
	remote.writeErrs["srd"] = errors.New("permission denied")
	states := &fakeStateStore{}
	m := newTestManager(remote, states, 2)

	didMigrate, err := m.RunIfNeeded(context.Background())
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("RunIfNeeded() error = %v, want ErrMigrationFailed", err)
	}
	if didMigrate {
		t.Error("failed run reported didMigrate = true")
	}

	state, _ := states.GetMigrationState(context.Background())
	if state.CurrentVersion != 1 {
		t.Errorf("CurrentVersion after failure = %d, want 1 (unchanged)", state.CurrentVersion)
	}
	if state.Status != models.MigrationFailed {
		t.Errorf("Status = %q, want %q", state.Status, models.MigrationFailed)
	}
	if state.LastError == "" {
		t.Error("LastError not recorded")
	}
}

func TestRunIfNeededReadFailureAborts(t *testing.T) {
	remote := newFakeRemote(map[string]*models.CollectionExport{"lpmi": exportWith("1")})
	remote.readErrs["lpmi"] = errors.New("timeout")
	states := &fakeStateStore{}
	m := newTestManager(remote, states, 2)

	if _, err := m.RunIfNeeded(context.Background()); !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("RunIfNeeded() error = %v, want ErrMigrationFailed", err)
	}
	if len(remote.writeCalls) != 0 {
		t.Error("a failed read still produced writes")
	}
}

func TestRunIfNeededRetryAfterFailure(t *testing.T) {
	remote := newFakeRemote(map[string]*models.CollectionExport{"lpmi": exportWith("1", "40")})
	remote.writeErrs["lpmi"] = errors.New("transient")
	states := &fakeStateStore{}
	m := newTestManager(remote, states, 2)

	if _, err := m.RunIfNeeded(context.Background()); err == nil {
		t.Fatal("expected first run to fail")
	}

	remote.mu.Lock()
	delete(remote.writeErrs, "lpmi")
	remote.mu.Unlock()

	didMigrate, err := m.RunIfNeeded(context.Background())
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if !didMigrate {
		t.Error("retry did not migrate")
	}
	state, _ := states.GetMigrationState(context.Background())
	if state.CurrentVersion != 2 || state.Status != models.MigrationUpToDate {
		t.Errorf("state after retry = v%d/%s, want v2/up_to_date", state.CurrentVersion, state.Status)
	}
}

func TestSkip(t *testing.T) {
	remote := newFakeRemote(map[string]*models.CollectionExport{"lpmi": exportWith("1")})
	states := &fakeStateStore{state: &models.MigrationState{
		CurrentVersion: 1,
		TargetVersion:  2,
		Status:         models.MigrationFailed,
		LastError:      "permission denied",
	}}
	m := newTestManager(remote, states, 2)

	if err := m.Skip(context.Background()); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}

	state, _ := states.GetMigrationState(context.Background())
	if state.CurrentVersion != 2 {
		t.Errorf("CurrentVersion after skip = %d, want 2", state.CurrentVersion)
	}
	if state.Status != models.MigrationUpToDate {
		t.Errorf("Status = %q, want %q", state.Status, models.MigrationUpToDate)
	}
	if state.LastError != "" {
		t.Error("LastError not cleared by skip")
	}
	if len(remote.writeCalls) != 0 {
		t.Error("Skip transformed data")
	}
}

func TestNoNumericSongsSkipsWrites(t *testing.T) {
	remote := newFakeRemote(map[string]*models.CollectionExport{"chants": exportWith("Korus", "Intro")})
	states := &fakeStateStore{}
	m := newTestManager(remote, states, 2)

	didMigrate, err := m.RunIfNeeded(context.Background())
	if err != nil {
		t.Fatalf("RunIfNeeded() error = %v", err)
	}
	if !didMigrate {
		t.Error("version should still advance when nothing needs re-keying")
	}
	if len(remote.writeCalls) != 0 {
		t.Error("non-numeric collections were rewritten")
	}
}
