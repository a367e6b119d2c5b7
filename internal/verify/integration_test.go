//go:build integration

// Integration tests for the full pipeline.
// Run with: go test -tags=integration ./internal/verify/...
// Requires PostgreSQL to be available.
// Set DVDRENT_TEST_CONN environment variable to override connection string.

package verify_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-dvdrent/internal/dag"
	"github.com/pgEdge/pgedge-dvdrent/internal/datagen"
	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/materialize"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
	"github.com/pgEdge/pgedge-dvdrent/internal/pipeline"
	"github.com/pgEdge/pgedge-dvdrent/internal/runner"
	"github.com/pgEdge/pgedge-dvdrent/internal/seed"
	"github.com/pgEdge/pgedge-dvdrent/internal/testutil"
	"github.com/pgEdge/pgedge-dvdrent/internal/verify"
	"github.com/pgEdge/pgedge-dvdrent/internal/warehouse"

	_ "github.com/pgEdge/pgedge-dvdrent/internal/models/all"
)

const (
	sourceSchema = "dvdrent"
	targetSchema = "analytics"
)

func buildAll(t *testing.T, ctx context.Context, pool *pgxpool.Pool, mats map[models.Layer]models.Materialization, vars map[string]any) *runner.Runner {
	t.Helper()

	graph, err := dag.Build(models.All())
	if err != nil {
		t.Fatalf("Failed to build graph: %v", err)
	}
	if err := db.EnsureSchema(ctx, pool, targetSchema); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	r, err := runner.New(runner.Config{
		Graph:    graph,
		Selected: graph.TopoSort(),
		Threads:  4,
		Resolver: models.SchemaResolver{
			SourceName:   "DvdRent",
			SourceSchema: sourceSchema,
			TargetSchema: targetSchema,
		},
		Vars:             vars,
		Materializations: mats,
		Materializer:     materialize.New(pool, targetSchema),
	})
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}
	r.Run(ctx)
	if err := r.Err(); err != nil {
		for _, res := range r.Results() {
			if res.Err != nil {
				t.Logf("%s: %v", res.Model, res.Err)
			}
		}
		t.Fatalf("Build failed: %v", err)
	}
	return r
}

var defaultMats = map[models.Layer]models.Materialization{
	models.LayerStaging:      models.View,
	models.LayerIntermediate: models.View,
	models.LayerMarts:        models.Table,
}

func TestPipelineIntegration(t *testing.T) {
	_, pool := testutil.NewTestDB(t, "pipeline")
	ctx := context.Background()

	t.Run("Seed", func(t *testing.T) {
		summary, err := seed.New(pool, sourceSchema).Run(ctx, seed.Options{Size: "1MB", Seed: 42})
		if err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
		if summary.Rows["rental"] == 0 || summary.Rows["payment"] == 0 {
			t.Errorf("Expected rows, got %v", summary.Rows)
		}
		got, err := db.GetMetadataValue(ctx, pool, sourceSchema, "seed")
		if err != nil || got != "42" {
			t.Errorf("Expected seed metadata 42, got %q (%v)", got, err)
		}
	})

	t.Run("SeedRefusesNonEmpty", func(t *testing.T) {
		_, err := seed.New(pool, sourceSchema).Run(ctx, seed.Options{Size: "1MB", Seed: 42})
		if err == nil {
			t.Fatal("Expected seeding into populated tables to fail")
		}
	})

	t.Run("SourcesRoundTrip", func(t *testing.T) {
		loaded, err := warehouse.LoadSources(ctx, pool, sourceSchema)
		if err != nil {
			t.Fatalf("LoadSources failed: %v", err)
		}
		want := seed.Generate(datagen.NewFakerWithSeed(42), seed.RowCounts(datagen.MB)).Sources()
		a := pipeline.Run(loaded, pipeline.Options{})
		b := pipeline.Run(want, pipeline.Options{})
		if failed := verify.Failed(verify.Compare(b, a)); len(failed) != 0 {
			t.Errorf("Loaded sources differ from generated data: %+v", failed)
		}
	})

	t.Run("BuildAndVerify", func(t *testing.T) {
		buildAll(t, ctx, pool, defaultMats, map[string]any{"coalesce_revenue": false})

		checks, err := verify.Warehouse(ctx, pool, sourceSchema, targetSchema, pipeline.Options{})
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		for _, c := range verify.Failed(checks) {
			t.Errorf("%s: expected %s (%d rows), got %s (%d rows)",
				c.Relation, c.Expected, c.ExpectedRows, c.Actual, c.ActualRows)
		}
	})

	t.Run("RevenueOrder", func(t *testing.T) {
		rows, err := warehouse.LoadRevenue(ctx, pool, targetSchema)
		if err != nil {
			t.Fatalf("LoadRevenue failed: %v", err)
		}
		if len(rows) == 0 {
			t.Fatal("Expected revenue rows")
		}
		for i := 1; i < len(rows); i++ {
			if pipeline.CompareRevenue(rows[i-1], rows[i]) > 0 {
				t.Errorf("Revenue rows %d and %d out of order", i-1, i)
			}
		}
	})

	t.Run("Idempotence", func(t *testing.T) {
		before, err := verify.Take(ctx, pool, targetSchema, models.All())
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		buildAll(t, ctx, pool, defaultMats, map[string]any{"coalesce_revenue": false})
		after, err := verify.Take(ctx, pool, targetSchema, models.All())
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		checks, err := verify.Diff(before, after, models.List())
		if err != nil {
			t.Fatalf("Diff failed: %v", err)
		}
		for _, c := range verify.Failed(checks) {
			t.Errorf("%s changed on rebuild", c.Relation)
		}
	})

	t.Run("SwitchMaterialization", func(t *testing.T) {
		tables := map[models.Layer]models.Materialization{
			models.LayerStaging:      models.Table,
			models.LayerIntermediate: models.Table,
			models.LayerMarts:        models.View,
		}
		buildAll(t, ctx, pool, tables, map[string]any{"coalesce_revenue": true})

		checks, err := verify.Warehouse(ctx, pool, sourceSchema, targetSchema, pipeline.Options{CoalesceRevenue: true})
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if failed := verify.Failed(checks); len(failed) != 0 {
			t.Errorf("Verification failed after switching materializations: %+v", failed)
		}
	})

	t.Run("RunLog", func(t *testing.T) {
		runLog := db.NewRunLog(pool, targetSchema)
		if err := runLog.Ensure(ctx); err != nil {
			t.Fatalf("Ensure failed: %v", err)
		}
		id, err := runLog.Start(ctx, 1)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := runLog.RecordModel(ctx, db.ModelRun{RunID: id, Model: "stg_rental", Status: "success", Materialization: "view", Rows: 3}); err != nil {
			t.Fatalf("RecordModel failed: %v", err)
		}
		if err := runLog.Finish(ctx, db.Run{ID: id, Status: db.RunSuccess, Succeeded: 1}); err != nil {
			t.Fatalf("Finish failed: %v", err)
		}

		runs, err := runLog.Recent(ctx, 1)
		if err != nil || len(runs) != 1 || runs[0].ID != id || runs[0].FinishedAt == nil {
			t.Fatalf("Unexpected recent runs %+v (%v)", runs, err)
		}
		mrs, err := runLog.ModelRuns(ctx, id)
		if err != nil || len(mrs) != 1 || mrs[0].Rows != 3 {
			t.Fatalf("Unexpected model runs %+v (%v)", mrs, err)
		}
	})

	t.Run("DropExisting", func(t *testing.T) {
		_, err := seed.New(pool, sourceSchema).Run(ctx, seed.Options{Size: "1MB", Seed: 7, DropExisting: true})
		if err != nil {
			t.Fatalf("Reseed failed: %v", err)
		}
		got, err := db.GetMetadataValue(ctx, pool, sourceSchema, "seed")
		if err != nil || got != "7" {
			t.Errorf("Expected seed metadata 7, got %q (%v)", got, err)
		}
	})
}
