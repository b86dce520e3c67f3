package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CTAG07/Nepenthes/pkg/evaluation"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID is not in the results store.
var ErrRunNotFound = errors.New("evaluation run not found")

// SetupResultsSchema creates the evaluation results tables. It is idempotent
// and safe to call on an already-initialized database.
func SetupResultsSchema(db *sql.DB) error {

	const (
		schemaRuns = `
CREATE TABLE IF NOT EXISTS eval_runs (
    run_id TEXT PRIMARY KEY,
    corpus TEXT NOT NULL,
    suite TEXT NOT NULL,
    min_order INTEGER NOT NULL,
    max_order INTEGER NOT NULL,
    smoothed INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
`
		schemaResults = `
CREATE TABLE IF NOT EXISTS eval_results (
    run_id TEXT NOT NULL,
    sequence_name TEXT NOT NULL,
    ngram_order INTEGER NOT NULL,
    probability REAL NOT NULL,
    log_probability REAL NOT NULL,
    PRIMARY KEY (run_id, sequence_name, ngram_order)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaRuns); err != nil {
		return fmt.Errorf("could not create runs schema: %w", err)
	}
	if _, err = tx.Exec(schemaResults); err != nil {
		return fmt.Errorf("could not create results schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// RunInfo describes a recorded evaluation run.
type RunInfo struct {
	ID        string
	Corpus    string
	Suite     string
	Config    evaluation.Config
	CreatedAt time.Time
}

// ResultsStore records evaluation reports in SQLite. It holds prepared
// statements for the read paths; writes happen inside a transaction.
type ResultsStore struct {
	db             *sql.DB
	stmtListRuns   *sql.Stmt
	stmtGetRun     *sql.Stmt
	stmtRunResults *sql.Stmt
	now            func() time.Time
	logger         *slog.Logger
}

// NewResultsStore prepares the store's statements. The schema must already
// exist, see SetupResultsSchema.
func NewResultsStore(db *sql.DB) (*ResultsStore, error) {
	stmtListRuns, err := db.Prepare(`SELECT run_id, corpus, suite, min_order, max_order, smoothed, created_at FROM eval_runs ORDER BY created_at DESC, run_id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement stmtListRuns: %w", err)
	}
	stmtGetRun, err := db.Prepare(`SELECT COUNT(*) FROM eval_runs WHERE run_id = ?;`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement stmtGetRun: %w", err)
	}
	stmtRunResults, err := db.Prepare(`SELECT sequence_name, ngram_order, probability, log_probability FROM eval_results WHERE run_id = ? ORDER BY rowid;`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement stmtRunResults: %w", err)
	}

	return &ResultsStore{
		db:             db,
		stmtListRuns:   stmtListRuns,
		stmtGetRun:     stmtGetRun,
		stmtRunResults: stmtRunResults,
		now:            time.Now,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases the prepared statements.
func (s *ResultsStore) Close() {
	_ = s.stmtListRuns.Close()
	_ = s.stmtGetRun.Close()
	_ = s.stmtRunResults.Close()
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *ResultsStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// RecordRun stores report under a fresh run ID and returns the ID. The run
// and all of its results are written in a single transaction.
func (s *ResultsStore) RecordRun(ctx context.Context, corpus string, report *evaluation.Report) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	smoothed := 0
	if report.Config.Smoothed {
		smoothed = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO eval_runs (run_id, corpus, suite, min_order, max_order, smoothed, created_at) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		runID, corpus, report.Suite, report.Config.MinOrder, report.Config.MaxOrder, smoothed, s.now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmtInsertResult, err := tx.PrepareContext(ctx, `INSERT INTO eval_results (run_id, sequence_name, ngram_order, probability, log_probability) VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare result insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertResult)

	for _, res := range report.Results {
		if _, err = stmtInsertResult.ExecContext(ctx, runID, res.Sequence, res.Order, res.Probability, res.LogProbability); err != nil {
			return "", fmt.Errorf("failed to insert result for %q at order %d: %w", res.Sequence, res.Order, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("could not commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Evaluation run recorded",
		slog.String("run_id", runID),
		slog.String("suite", report.Suite),
		slog.Int("results", len(report.Results)),
	)
	return runID, nil
}

// ListRuns returns every recorded run, newest first.
func (s *ResultsStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.stmtListRuns.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var runs []RunInfo
	for rows.Next() {
		var run RunInfo
		var smoothed int
		var createdAt int64
		if err = rows.Scan(&run.ID, &run.Corpus, &run.Suite, &run.Config.MinOrder, &run.Config.MaxOrder, &smoothed, &createdAt); err != nil {
			return nil, err
		}
		run.Config.Smoothed = smoothed != 0
		run.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and all of its results.
func (s *ResultsStore) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM eval_runs WHERE run_id = ?;`, runID)
	if err != nil {
		return fmt.Errorf("could not delete run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	res, err = tx.ExecContext(ctx, `DELETE FROM eval_results WHERE run_id = ?;`, runID)
	if err != nil {
		return fmt.Errorf("could not delete results of run %s: %w", runID, err)
	}
	resultsRemoved, _ := res.RowsAffected()

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Evaluation run deleted",
		slog.String("run_id", runID),
		slog.Int64("results_removed", resultsRemoved),
	)
	return nil
}

// RunResults returns the results of a run in the order they were recorded.
func (s *ResultsStore) RunResults(ctx context.Context, runID string) ([]evaluation.Result, error) {
	var count int
	if err := s.stmtGetRun.QueryRowContext(ctx, runID).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.stmtRunResults.QueryContext(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var results []evaluation.Result
	for rows.Next() {
		var res evaluation.Result
		if err = rows.Scan(&res.Sequence, &res.Order, &res.Probability, &res.LogProbability); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
