// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/heary-aldy/lpmi40-sub009/internal/backup"
)

type fakeBackupRunner struct {
	mu         sync.Mutex
	creates    int
	retentions int
	triggers   []backup.Trigger
	createErr  error
}

func (f *fakeBackupRunner) CreateBackup(ctx context.Context, ids []string, trigger backup.Trigger, notes string) (*backup.Backup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.triggers = append(f.triggers, trigger)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &backup.Backup{ID: "bk", Status: backup.StatusCompleted}, nil
}

func (f *fakeBackupRunner) ApplyRetention(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retentions++
	return 1, nil
}

func (f *fakeBackupRunner) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.retentions
}

func TestBackupSchedulerRunsOnInterval(t *testing.T) {
	runner := &fakeBackupRunner{}
	svc := NewBackupSchedulerService(runner, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		creates, retentions := runner.counts()
		if creates >= 2 && retentions >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scheduler ran %d backups, %d retention passes", creates, retentions)
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	for _, trigger := range runner.triggers {
		if trigger != backup.TriggerScheduled {
			t.Errorf("trigger = %q, want scheduled", trigger)
		}
	}
}

func TestBackupSchedulerSurvivesFailedSnapshot(t *testing.T) {
	runner := &fakeBackupRunner{createErr: errors.New("remote down")}
	svc := NewBackupSchedulerService(runner, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		creates, _ := runner.counts()
		if creates >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduler stopped retrying after failure")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	<-done

	_, retentions := runner.counts()
	if retentions != 0 {
		t.Errorf("retention ran %d times after failed snapshots, want 0", retentions)
	}
}

func TestBackupSchedulerDisabled(t *testing.T) {
	runner := &fakeBackupRunner{}
	svc := NewBackupSchedulerService(runner, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}

	creates, _ := runner.counts()
	if creates != 0 {
		t.Errorf("disabled scheduler created %d backups", creates)
	}
}

func TestBackupSchedulerString(t *testing.T) {
	svc := NewBackupSchedulerService(&fakeBackupRunner{}, time.Hour)
	if svc.String() != "backup-scheduler" {
		t.Errorf("String() = %q", svc.String())
	}
}
