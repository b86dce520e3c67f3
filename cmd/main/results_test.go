package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/CTAG07/Nepenthes/pkg/evaluation"
)

// setupTestStore opens a results store on a fresh database file.
func setupTestStore(t *testing.T) *ResultsStore {
	t.Helper()
	db, err := initDB(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = SetupResultsSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}
	// A second call must be a no-op.
	if err = SetupResultsSchema(db); err != nil {
		t.Fatalf("SetupResultsSchema() is not idempotent: %v", err)
	}

	store, err := NewResultsStore(db)
	if err != nil {
		t.Fatalf("NewResultsStore() error = %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func testReport() *evaluation.Report {
	return &evaluation.Report{
		Suite:  "animals",
		Config: evaluation.Config{MinOrder: 1, MaxOrder: 2, Smoothed: true},
		Results: []evaluation.Result{
			{Sequence: "cat", Order: 1, Probability: 0.25, LogProbability: -1.3862943611198906},
			{Sequence: "cat", Order: 2, Probability: 0.5, LogProbability: -0.6931471805599453},
		},
		Best: map[string]int{"cat": 2},
	}
}

func TestResultsStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	runID, err := store.RecordRun(ctx, "corpus.txt", testReport())
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if runID == "" {
		t.Fatal("RecordRun() returned an empty run ID")
	}

	results, err := store.RunResults(ctx, runID)
	if err != nil {
		t.Fatalf("RunResults() error = %v", err)
	}
	want := testReport().Results
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result %d got = %+v, want %+v", i, results[i], want[i])
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != runID || got.Corpus != "corpus.txt" || got.Suite != "animals" {
		t.Errorf("unexpected run %+v", got)
	}
	if got.Config != testReport().Config {
		t.Errorf("Config got = %+v, want %+v", got.Config, testReport().Config)
	}
}

func TestResultsStoreListOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return base }
	older, err := store.RecordRun(ctx, "a.txt", testReport())
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	store.now = func() time.Time { return base.Add(time.Hour) }
	newer, err := store.RecordRun(ctx, "b.txt", testReport())
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != newer || runs[1].ID != older {
		t.Errorf("expected newest run first, got %+v", runs)
	}
	if !runs[1].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt got = %v, want %v", runs[1].CreatedAt, base)
	}
}

func TestResultsStoreUnknownRun(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.RunResults(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestResultsStoreDeleteRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	runID, err := store.RecordRun(ctx, "corpus.txt", testReport())
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err = store.DeleteRun(ctx, runID); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}

	if _, err = store.RunResults(ctx, runID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound after delete, got %v", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs after delete, got %d", len(runs))
	}

	if err = store.DeleteRun(ctx, runID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound deleting twice, got %v", err)
	}
}
