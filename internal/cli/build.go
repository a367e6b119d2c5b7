package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
	"github.com/pgEdge/pgedge-dvdrent/internal/materialize"
	"github.com/pgEdge/pgedge-dvdrent/internal/runner"
)

var (
	buildSelect  []string
	buildThreads int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Materialize the selected models",
	Long: `Compile the selected models and materialize them in dependency order.
Models in the same dependency level run concurrently. A failed model skips
everything downstream of it; independent models still run. Every build is
recorded in the run log in the target schema.

Selectors:
  *              every model (default)
  name           one model
  +name          the model and everything it depends on
  name+          the model and everything that depends on it
  layer:marts    every model of a layer

Example:
  pgedge-dvdrent build --threads 8
  pgedge-dvdrent build --select +mart_revenue`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringSliceVar(&buildSelect, "select", nil,
		"model selectors (name, +name, name+, layer:x, *)")
	buildCmd.Flags().IntVar(&buildThreads, "threads", 0,
		"maximum number of models built concurrently")
}

func runBuild(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if len(buildSelect) > 0 {
		cfg.Build.Select = buildSelect
	}
	if buildThreads > 0 {
		cfg.Build.Threads = buildThreads
	}

	if err := cfg.ValidateBuild(); err != nil {
		return err
	}

	p, err := newProject(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := connect(ctx, cfg.Build.Threads+1)
	if err != nil {
		return err
	}
	defer pool.Close()

	return build(ctx, p, pool, cfg.Build.Select, cfg.Build.Threads)
}

// build runs one build of the selection and records it in the run log.
func build(ctx context.Context, p *project, pool *pgxpool.Pool, selectors []string, threads int) error {
	selected, err := p.graph.Select(selectors)
	if err != nil {
		return err
	}

	if err := db.EnsureSchema(ctx, pool, cfg.Target.Schema); err != nil {
		return err
	}
	runLog := db.NewRunLog(pool, cfg.Target.Schema)
	if err := runLog.Ensure(ctx); err != nil {
		return err
	}

	var runID int64
	r, err := runner.New(runner.Config{
		Graph:            p.graph,
		Selected:         selected,
		Threads:          threads,
		Resolver:         p.resolver,
		Vars:             p.vars,
		Materializations: p.materializations,
		Materializer:     materialize.New(pool, cfg.Target.Schema),
		OnResult: func(res runner.Result) {
			mr := db.ModelRun{
				RunID:           runID,
				Model:           res.Model,
				Status:          string(res.Status),
				Materialization: string(res.Materialization),
				Rows:            res.Rows,
				DurationMS:      res.Duration.Milliseconds(),
				SQLFingerprint:  res.Fingerprint,
			}
			if res.Err != nil {
				mr.Error = res.Err.Error()
			}
			// The run log must not fail the build.
			if err := runLog.RecordModel(context.WithoutCancel(ctx), mr); err != nil {
				logging.Warn().Err(err).Str("model", res.Model).Msg("Failed to record model run")
			}
		},
	})
	if err != nil {
		return err
	}

	runID, err = runLog.Start(ctx, len(selected))
	if err != nil {
		return err
	}

	r.Run(ctx)
	r.PrintSummary()

	buildErr := r.Err()
	if buildErr == nil && ctx.Err() != nil {
		buildErr = ctx.Err()
	}

	run := db.Run{
		ID:        runID,
		Status:    db.RunSuccess,
		Succeeded: r.Succeeded(),
		Failed:    r.Failed(),
		Skipped:   r.Skipped(),
	}
	if buildErr != nil {
		run.Status = db.RunError
		run.Error = buildErr.Error()
	}
	if err := runLog.Finish(context.WithoutCancel(ctx), run); err != nil {
		logging.Warn().Err(err).Int64("run_id", runID).Msg("Failed to finish run log")
	}

	if buildErr != nil {
		return fmt.Errorf("run %d: %w", runID, buildErr)
	}
	logging.Info().Int64("run_id", runID).Msg("Build complete")
	return nil
}
