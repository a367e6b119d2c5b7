package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Run log tables, created in the target schema.
const (
	RunsTable      = "dvdrent_runs"
	ModelRunsTable = "dvdrent_model_runs"
)

// Run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunError   = "error"
)

// Run is one build invocation.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Selected   int
	Succeeded  int
	Failed     int
	Skipped    int
	Error      string
}

// ModelRun is the outcome of one model within a run.
type ModelRun struct {
	RunID           int64
	Model           string
	Status          string
	Materialization string
	Rows            int64
	DurationMS      int64
	SQLFingerprint  string
	Error           string
}

// RunLog writes build history to the target schema.
type RunLog struct {
	q      Querier
	schema string
}

// NewRunLog returns a run log writing to schema.
func NewRunLog(q Querier, schema string) *RunLog {
	return &RunLog{q: q, schema: schema}
}

func (l *RunLog) runs() string      { return QualifiedName(l.schema, RunsTable) }
func (l *RunLog) modelRuns() string { return QualifiedName(l.schema, ModelRunsTable) }

// Ensure creates the run log tables if they do not exist.
func (l *RunLog) Ensure(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id          BIGSERIAL PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    finished_at TIMESTAMPTZ,
    status      TEXT NOT NULL,
    selected    INTEGER NOT NULL DEFAULT 0,
    succeeded   INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT ''
)`, l.runs()),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    run_id          BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
    model           TEXT NOT NULL,
    status          TEXT NOT NULL,
    materialization TEXT NOT NULL,
    rows            BIGINT NOT NULL DEFAULT 0,
    duration_ms     BIGINT NOT NULL DEFAULT 0,
    sql_fingerprint TEXT NOT NULL DEFAULT '',
    error           TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, model)
)`, l.modelRuns(), l.runs()),
	}
	for _, stmt := range stmts {
		if _, err := l.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create run log: %w", err)
		}
	}
	return nil
}

// Start records a new run and returns its id.
func (l *RunLog) Start(ctx context.Context, selected int) (int64, error) {
	var id int64
	err := l.q.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (status, selected) VALUES ($1, $2) RETURNING id`, l.runs()),
		RunRunning, selected,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// RecordModel stores the outcome of one model.
func (l *RunLog) RecordModel(ctx context.Context, mr ModelRun) error {
	_, err := l.q.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (run_id, model, status, materialization, rows, duration_ms, sql_fingerprint, error)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (run_id, model) DO UPDATE SET
            status = EXCLUDED.status,
            rows = EXCLUDED.rows,
            duration_ms = EXCLUDED.duration_ms,
            sql_fingerprint = EXCLUDED.sql_fingerprint,
            error = EXCLUDED.error
    `, l.modelRuns()),
		mr.RunID, mr.Model, mr.Status, mr.Materialization, mr.Rows, mr.DurationMS,
		mr.SQLFingerprint, mr.Error)
	if err != nil {
		return fmt.Errorf("failed to record model run %s: %w", mr.Model, err)
	}
	return nil
}

// Finish closes a run with its final counts.
func (l *RunLog) Finish(ctx context.Context, r Run) error {
	_, err := l.q.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET finished_at = now(), status = $2,
            succeeded = $3, failed = $4, skipped = $5, error = $6
        WHERE id = $1
    `, l.runs()), r.ID, r.Status, r.Succeeded, r.Failed, r.Skipped, r.Error)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", r.ID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.q.Query(ctx, fmt.Sprintf(`
        SELECT id, started_at, finished_at, status, selected, succeeded, failed, skipped, error
        FROM %s ORDER BY id DESC LIMIT $1
    `, l.runs()), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Run, error) {
		var r Run
		err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.Selected, &r.Succeeded, &r.Failed, &r.Skipped, &r.Error)
		return r, err
	})
}

// ModelRuns returns the per-model outcomes of a run ordered by model name.
func (l *RunLog) ModelRuns(ctx context.Context, runID int64) ([]ModelRun, error) {
	rows, err := l.q.Query(ctx, fmt.Sprintf(`
        SELECT run_id, model, status, materialization, rows, duration_ms, sql_fingerprint, error
        FROM %s WHERE run_id = $1 ORDER BY model
    `, l.modelRuns()), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list model runs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ModelRun, error) {
		var mr ModelRun
		err := row.Scan(&mr.RunID, &mr.Model, &mr.Status, &mr.Materialization,
			&mr.Rows, &mr.DurationMS, &mr.SQLFingerprint, &mr.Error)
		return mr, err
	})
}
