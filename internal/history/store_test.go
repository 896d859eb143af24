package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:              id,
		SourcePath:      "/audio/talk.mp3",
		DurationMinutes: 140,
		SegmentCount:    3,
		Language:        "ja",
		TimestampMode:   true,
		Outcome:         "completed",
		OutputPath:      "/audio/talk_20260314_150926.txt",
		StartedAt:       started,
		FinishedAt:      started.Add(20 * time.Minute),
	}
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	if err := store.Record(ctx, sampleRun("run-1", started)); err != nil {
		t.Fatalf("record: %v", err)
	}

	run, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run == nil {
		t.Fatal("expected run to exist")
	}
	if run.SourcePath != "/audio/talk.mp3" || run.SegmentCount != 3 || !run.TimestampMode {
		t.Fatalf("unexpected run %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Fatalf("expected started %v, got %v", started, run.StartedAt)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)
	run, err := store.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil for missing run, got %+v", run)
	}
}

func TestListMostRecentFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := sampleRun(id, base.Add(time.Duration(i)*time.Hour))
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-3" || runs[2].ID != "run-1" {
		t.Fatalf("expected most recent first, got %s..%s", runs[0].ID, runs[2].ID)
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "run-3" {
		t.Fatalf("unexpected limited result %+v", limited)
	}
}

func TestRecordRequiresID(t *testing.T) {
	store := openTestStore(t)
	if err := store.Record(context.Background(), Run{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.Record(ctx, sampleRun("run-1", time.Now().UTC())); err != nil {
		t.Fatalf("record: %v", err)
	}
	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty history, got %d rows", len(runs))
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Record(context.Background(), sampleRun("run-1", time.Now().UTC())); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected persisted run after reopen, got %d", len(runs))
	}
}

func TestSchemaMismatchSurfaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
