//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package runner executes selected models level by level.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-dvdrent/internal/dag"
	"github.com/pgEdge/pgedge-dvdrent/internal/fingerprint"
	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
	"github.com/pgEdge/pgedge-dvdrent/internal/materialize"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
)

// Status is the outcome of a model.
type Status string

// Model outcomes.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Materializer persists one compiled model and returns its row count.
type Materializer interface {
	Materialize(ctx context.Context, job materialize.Job) (int64, error)
}

// Result is the outcome of one model.
type Result struct {
	Model           string
	Layer           models.Layer
	Materialization models.Materialization
	Status          Status
	Duration        time.Duration
	Rows            int64
	Fingerprint     string
	Err             error
}

// Config holds configuration for the runner.
type Config struct {
	Graph    *dag.Graph
	Selected []string // model names, in topological order
	Threads  int

	Resolver models.Resolver
	Vars     map[string]any

	// Materializations maps each layer to how its models are persisted.
	Materializations map[models.Layer]models.Materialization

	Materializer Materializer

	// OnResult, when set, is called once per model as it finishes.
	OnResult func(Result)
}

// Runner builds a selection of models.
type Runner struct {
	cfg  Config
	jobs map[string]materialize.Job

	succeeded       atomic.Int64
	failed          atomic.Int64
	skipped         atomic.Int64
	rows            atomic.Int64
	totalDurationNs atomic.Int64
	startTime       time.Time
	elapsed         time.Duration

	results sync.Map // map[string]Result

	mu        sync.Mutex
	blockedBy map[string]string // skipped model -> failed upstream
}

// New compiles every selected model. Any compile error aborts here, before
// anything is executed.
func New(cfg Config) (*Runner, error) {
	if cfg.Graph == nil {
		return nil, errors.New("runner requires a dependency graph")
	}
	if cfg.Materializer == nil {
		return nil, errors.New("runner requires a materializer")
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}

	jobs := make(map[string]materialize.Job, len(cfg.Selected))
	for _, name := range cfg.Selected {
		m, ok := cfg.Graph.Model(name)
		if !ok {
			return nil, fmt.Errorf("selected model %s is not in the graph", name)
		}
		sql, err := models.Compile(m, models.CompileOptions{Resolver: cfg.Resolver, Vars: cfg.Vars})
		if err != nil {
			return nil, err
		}
		kind, ok := cfg.Materializations[m.Layer()]
		if !ok {
			return nil, fmt.Errorf("no materialization configured for layer %s", m.Layer())
		}
		jobs[name] = materialize.Job{Model: m, Materialization: kind, SQL: sql}
	}

	return &Runner{
		cfg:       cfg,
		jobs:      jobs,
		blockedBy: make(map[string]string),
	}, nil
}

// Job returns the compiled job of a selected model.
func (r *Runner) Job(name string) (materialize.Job, bool) {
	j, ok := r.jobs[name]
	return j, ok
}

// Run builds the selection. Models in one level run concurrently, at most
// Threads at a time. A failed model skips everything downstream of it while
// independent branches continue. Cancelling ctx stops scheduling; models not
// yet started are skipped.
func (r *Runner) Run(ctx context.Context) []Result {
	r.startTime = time.Now()
	levels := r.cfg.Graph.Levels(r.cfg.Selected...)

	logging.Info().
		Int("models", len(r.cfg.Selected)).
		Int("levels", len(levels)).
		Int("threads", r.cfg.Threads).
		Msg("Starting build")

	for i, level := range levels {
		logging.Debug().Int("level", i).Strs("models", level).Msg("Running level")

		var g errgroup.Group
		g.SetLimit(r.cfg.Threads)
		for _, name := range level {
			g.Go(func() error {
				r.runModel(ctx, name)
				return nil
			})
		}
		_ = g.Wait()
	}

	r.elapsed = time.Since(r.startTime)
	return r.Results()
}

func (r *Runner) runModel(ctx context.Context, name string) {
	job := r.jobs[name]
	res := Result{
		Model:           name,
		Layer:           job.Model.Layer(),
		Materialization: job.Materialization,
		Fingerprint:     fingerprint.SQL(job.SQL),
	}
	log := logging.ForModel(name, string(res.Layer))

	if upstream, blocked := r.blocker(name); blocked {
		res.Status = StatusSkipped
		res.Err = fmt.Errorf("upstream model %s failed", upstream)
		log.Warn().Str("upstream", upstream).Msg("Skipped")
		r.finish(res)
		return
	}
	if err := ctx.Err(); err != nil {
		res.Status = StatusSkipped
		res.Err = err
		r.finish(res)
		return
	}

	start := time.Now()
	rows, err := r.cfg.Materializer.Materialize(ctx, job)
	res.Duration = time.Since(start)

	if err != nil {
		res.Status = StatusError
		res.Err = err
		r.block(name)
		log.Error().Err(err).Dur("duration", res.Duration).Msg("Model failed")
	} else {
		res.Status = StatusSuccess
		res.Rows = rows
		log.Info().
			Str("materialization", string(job.Materialization)).
			Int64("rows", rows).
			Dur("duration", res.Duration).
			Msg("Model built")
	}
	r.finish(res)
}

func (r *Runner) blocker(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	up, ok := r.blockedBy[name]
	return up, ok
}

// block marks every downstream model of a failed model as skipped.
func (r *Runner) block(failed string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, down := range r.cfg.Graph.Downstream(failed) {
		if _, ok := r.blockedBy[down]; !ok {
			r.blockedBy[down] = failed
		}
	}
}

func (r *Runner) finish(res Result) {
	switch res.Status {
	case StatusSuccess:
		r.succeeded.Add(1)
		r.rows.Add(res.Rows)
	case StatusError:
		r.failed.Add(1)
	case StatusSkipped:
		r.skipped.Add(1)
	}
	r.totalDurationNs.Add(int64(res.Duration))
	r.results.Store(res.Model, res)

	if r.cfg.OnResult != nil {
		r.cfg.OnResult(res)
	}
}

// Results returns the results recorded so far in selection order.
func (r *Runner) Results() []Result {
	out := make([]Result, 0, len(r.cfg.Selected))
	for _, name := range r.cfg.Selected {
		if v, ok := r.results.Load(name); ok {
			out = append(out, v.(Result))
		}
	}
	return out
}

// Succeeded returns the number of models built.
func (r *Runner) Succeeded() int { return int(r.succeeded.Load()) }

// Failed returns the number of models that errored.
func (r *Runner) Failed() int { return int(r.failed.Load()) }

// Skipped returns the number of models skipped.
func (r *Runner) Skipped() int { return int(r.skipped.Load()) }

// Err summarizes failures, or returns nil when every model succeeded.
func (r *Runner) Err() error {
	failed, skipped := r.Failed(), r.Skipped()
	if failed == 0 && skipped == 0 {
		return nil
	}
	return fmt.Errorf("build finished with %d failed and %d skipped models", failed, skipped)
}

// PrintSummary prints a final summary of the build.
func (r *Runner) PrintSummary() {
	logging.Info().
		Dur("duration", r.elapsed).
		Int("selected", len(r.cfg.Selected)).
		Int64("succeeded", r.succeeded.Load()).
		Int64("failed", r.failed.Load()).
		Int64("skipped", r.skipped.Load()).
		Int64("rows", r.rows.Load()).
		Float64("model_time_ms", float64(r.totalDurationNs.Load())/1e6).
		Msg("Final summary")

	logging.Info().Msg("Per-model statistics:")
	for _, res := range r.Results() {
		ev := logging.Info()
		if res.Status != StatusSuccess {
			ev = logging.Warn()
		}
		if res.Err != nil {
			ev = ev.Err(res.Err)
		}
		ev.Str("model", res.Model).
			Str("layer", string(res.Layer)).
			Str("status", string(res.Status)).
			Int64("rows", res.Rows).
			Float64("duration_ms", float64(res.Duration)/1e6).
			Msg("")
	}
}
