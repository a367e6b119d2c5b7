//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package materialize persists compiled models as views or tables.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
)

// Kind is the kind of relation currently at a target name.
type Kind string

// Relation kinds, from pg_class.relkind.
const (
	KindNone  Kind = ""
	KindView  Kind = "v"
	KindTable Kind = "r"
)

// Existing describes the relation a materialization replaces.
type Existing struct {
	Kind    Kind
	Columns []string
}

// Job is one model ready to be materialized.
type Job struct {
	Model           models.Model
	Materialization models.Materialization
	SQL             string
}

// Render returns the statements that replace existing with a relation of
// the requested materialization. Statements are meant to run in a single
// transaction.
//
// A view whose column list equals columns is replaced in place. Anything
// else drops the old relation first; the drop cascades to dependent views,
// which are rebuilt when they are part of the same selection.
func Render(schema, name string, kind models.Materialization, existing Existing, columns []string, sql string) ([]string, error) {
	target := db.QualifiedName(schema, name)
	sql = strings.TrimRight(strings.TrimSpace(sql), ";")

	var stmts []string
	switch existing.Kind {
	case KindNone:
	case KindView:
		if kind != models.View || !slices.Equal(existing.Columns, columns) {
			stmts = append(stmts, "DROP VIEW IF EXISTS "+target+" CASCADE")
		}
	case KindTable:
		stmts = append(stmts, "DROP TABLE IF EXISTS "+target+" CASCADE")
	default:
		return nil, fmt.Errorf("%s exists with unsupported relation kind %q", target, existing.Kind)
	}

	switch kind {
	case models.View:
		stmts = append(stmts, "CREATE OR REPLACE VIEW "+target+" AS\n"+sql)
	case models.Table:
		stmts = append(stmts, "CREATE TABLE "+target+" AS\n"+sql)
	default:
		return nil, fmt.Errorf("unsupported materialization %q for %s", kind, name)
	}
	return stmts, nil
}

// RenderJob renders a job against its model's declared columns.
func RenderJob(schema string, job Job, existing Existing) ([]string, error) {
	return Render(schema, job.Model.Name(), job.Materialization, existing, job.Model.Columns(), job.SQL)
}

// Script joins rendered statements into a runnable script.
func Script(stmts []string) string {
	return "BEGIN;\n" + strings.Join(stmts, ";\n") + ";\nCOMMIT;"
}

// Drops reports whether the statements drop a relation.
func Drops(stmts []string) bool {
	return slices.ContainsFunc(stmts, func(s string) bool {
		return strings.HasPrefix(s, "DROP ")
	})
}

// Materializer runs materializations against a target schema.
type Materializer struct {
	pool   *pgxpool.Pool
	schema string
}

// New creates a materializer writing to schema.
func New(pool *pgxpool.Pool, schema string) *Materializer {
	return &Materializer{pool: pool, schema: schema}
}

// Inspect returns the kind and columns of the relation named name.
func (m *Materializer) Inspect(ctx context.Context, q db.Querier, name string) (Existing, error) {
	var relkind string
	err := q.QueryRow(ctx, `
        SELECT c.relkind::text
        FROM pg_class c
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE n.nspname = $1 AND c.relname = $2
    `, m.schema, name).Scan(&relkind)
	if errors.Is(err, pgx.ErrNoRows) {
		return Existing{}, nil
	}
	if err != nil {
		return Existing{}, fmt.Errorf("failed to inspect %s: %w", name, err)
	}

	cols, err := Columns(ctx, q, m.schema, name)
	if err != nil {
		return Existing{}, err
	}
	return Existing{Kind: Kind(relkind), Columns: cols}, nil
}

// Columns returns the ordered column names of a relation.
func Columns(ctx context.Context, q db.Querier, schema, name string) ([]string, error) {
	rows, err := q.Query(ctx, `
        SELECT a.attname
        FROM pg_attribute a
        JOIN pg_class c ON c.oid = a.attrelid
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE n.nspname = $1 AND c.relname = $2
          AND a.attnum > 0 AND NOT a.attisdropped
        ORDER BY a.attnum
    `, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Materialize replaces the job's relation inside one transaction, checks
// the resulting columns against the model's declared columns and returns
// the relation's row count.
func (m *Materializer) Materialize(ctx context.Context, job Job) (int64, error) {
	name := job.Model.Name()
	log := logging.ForModel(name, string(job.Model.Layer()))

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := m.Inspect(ctx, tx, name)
	if err != nil {
		return 0, err
	}

	stmts, err := RenderJob(m.schema, job, existing)
	if err != nil {
		return 0, err
	}

	if err := m.lock(ctx, tx, Drops(stmts)); err != nil {
		return 0, err
	}

	for _, stmt := range stmts {
		log.Debug().Str("sql", stmt).Msg("Executing statement")
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to materialize %s as %s: %w", name, job.Materialization, err)
		}
	}

	got, err := Columns(ctx, tx, m.schema, name)
	if err != nil {
		return 0, err
	}
	if want := job.Model.Columns(); !slices.Equal(got, want) {
		return 0, fmt.Errorf("%s produced columns %v, declared %v", name, got, want)
	}

	var rows int64
	if err := tx.QueryRow(ctx, "SELECT count(*) FROM "+db.QualifiedName(m.schema, name)).Scan(&rows); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return rows, nil
}

// lock takes a transaction-scoped advisory lock on the target schema.
// Jobs that drop take it exclusively; all others share it.
func (m *Materializer) lock(ctx context.Context, tx pgx.Tx, exclusive bool) error {
	fn := "pg_advisory_xact_lock_shared"
	if exclusive {
		fn = "pg_advisory_xact_lock"
	}
	if _, err := tx.Exec(ctx, "SELECT "+fn+"(hashtext($1))", m.schema); err != nil {
		return fmt.Errorf("failed to lock schema %s: %w", m.schema, err)
	}
	return nil
}
