package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-dvdrent/internal/dag"
	"github.com/pgEdge/pgedge-dvdrent/internal/materialize"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
	_ "github.com/pgEdge/pgedge-dvdrent/internal/models/all"
	"github.com/pgEdge/pgedge-dvdrent/internal/runner"
)

type fakeMaterializer struct {
	mu      sync.Mutex
	order   []string
	fail    map[string]bool
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeMaterializer) Materialize(ctx context.Context, job materialize.Job) (int64, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.order = append(f.order, job.Model.Name())
	f.mu.Unlock()

	if f.fail[job.Model.Name()] {
		return 0, errors.New("relation does not exist")
	}
	return 10, nil
}

func newRunner(t *testing.T, fake *fakeMaterializer, selectors []string, threads int) *runner.Runner {
	t.Helper()
	g, err := dag.Build(models.All())
	if err != nil {
		t.Fatal(err)
	}
	selected, err := g.Select(selectors)
	if err != nil {
		t.Fatal(err)
	}
	r, err := runner.New(runner.Config{
		Graph:    g,
		Selected: selected,
		Threads:  threads,
		Resolver: models.SchemaResolver{SourceName: "DvdRent", SourceSchema: "public", TargetSchema: "analytics"},
		Materializations: map[models.Layer]models.Materialization{
			models.LayerStaging:      models.View,
			models.LayerIntermediate: models.View,
			models.LayerMarts:        models.Table,
		},
		Materializer: fake,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestRunAllSucceeds(t *testing.T) {
	fake := &fakeMaterializer{}
	r := newRunner(t, fake, nil, 4)
	results := r.Run(context.Background())

	if len(results) != 13 {
		t.Fatalf("Expected 13 results, got %d", len(results))
	}
	if r.Succeeded() != 13 || r.Failed() != 0 || r.Skipped() != 0 {
		t.Errorf("Unexpected counts: %d/%d/%d", r.Succeeded(), r.Failed(), r.Skipped())
	}
	if err := r.Err(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	pos := make(map[string]int)
	for i, n := range fake.order {
		pos[n] = i
	}
	if pos["mart_revenue"] < pos["intermediate_consumption"] ||
		pos["intermediate_consumption"] < pos["intermediate_transaction"] ||
		pos["intermediate_transaction"] < pos["stg_rental"] {
		t.Errorf("Models ran out of dependency order: %v", fake.order)
	}

	for _, res := range results {
		if res.Fingerprint == "" {
			t.Errorf("%s has no SQL fingerprint", res.Model)
		}
		if res.Layer == models.LayerMarts && res.Materialization != models.Table {
			t.Errorf("%s should be a table, got %s", res.Model, res.Materialization)
		}
	}
}

func TestRunFailFast(t *testing.T) {
	fake := &fakeMaterializer{fail: map[string]bool{"stg_payment": true}}
	r := newRunner(t, fake, nil, 2)
	results := r.Run(context.Background())

	status := make(map[string]runner.Status)
	for _, res := range results {
		status[res.Model] = res.Status
	}

	if status["stg_payment"] != runner.StatusError {
		t.Errorf("Expected stg_payment to fail, got %s", status["stg_payment"])
	}
	for _, name := range []string{"intermediate_transaction", "intermediate_consumption", "mart_revenue", "mart_consumption"} {
		if status[name] != runner.StatusSkipped {
			t.Errorf("Expected %s to be skipped, got %s", name, status[name])
		}
	}
	// Independent branch keeps going.
	if status["intermediate_film_detail"] != runner.StatusSuccess {
		t.Errorf("Expected intermediate_film_detail to succeed, got %s", status["intermediate_film_detail"])
	}

	for _, n := range fake.order {
		if n == "mart_revenue" {
			t.Error("Skipped model should not be materialized")
		}
	}
	if r.Failed() != 1 || r.Skipped() != 4 {
		t.Errorf("Expected 1 failed and 4 skipped, got %d and %d", r.Failed(), r.Skipped())
	}
	if r.Err() == nil {
		t.Error("Expected build error")
	}
}

func TestRunRespectsThreadLimit(t *testing.T) {
	fake := &fakeMaterializer{delay: 5 * time.Millisecond}
	r := newRunner(t, fake, []string{"layer:staging"}, 2)
	r.Run(context.Background())

	if peak := fake.peak.Load(); peak > 2 {
		t.Errorf("Expected at most 2 concurrent models, got %d", peak)
	}
	if r.Succeeded() != 8 {
		t.Errorf("Expected 8 staging models, got %d", r.Succeeded())
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeMaterializer{}
	r := newRunner(t, fake, nil, 4)
	r.Run(ctx)

	if len(fake.order) != 0 {
		t.Errorf("Expected nothing to run after cancellation, ran %v", fake.order)
	}
	if r.Skipped() != 13 {
		t.Errorf("Expected all models skipped, got %d", r.Skipped())
	}
}

func TestOnResult(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)

	g, _ := dag.Build(models.All())
	selected, _ := g.Select([]string{"+mart_revenue"})
	r, err := runner.New(runner.Config{
		Graph:    g,
		Selected: selected,
		Threads:  3,
		Resolver: models.SchemaResolver{SourceName: "DvdRent", SourceSchema: "public", TargetSchema: "analytics"},
		Materializations: map[models.Layer]models.Materialization{
			models.LayerStaging:      models.View,
			models.LayerIntermediate: models.View,
			models.LayerMarts:        models.Table,
		},
		Materializer: &fakeMaterializer{},
		OnResult: func(res runner.Result) {
			mu.Lock()
			seen[res.Model] = true
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	r.Run(context.Background())

	if len(seen) != len(selected) {
		t.Errorf("Expected %d callbacks, got %d", len(selected), len(seen))
	}
	if seen["mart_consumption"] {
		t.Error("Unselected model should not be reported")
	}
}

func TestNewCompileError(t *testing.T) {
	g, _ := dag.Build(models.All())
	_, err := runner.New(runner.Config{
		Graph:            g,
		Selected:         []string{"stg_rental"},
		Resolver:         models.SchemaResolver{SourceName: "Elsewhere"},
		Materializations: map[models.Layer]models.Materialization{models.LayerStaging: models.View},
		Materializer:     &fakeMaterializer{},
	})
	if err == nil {
		t.Error("Expected compile error for an unknown source")
	}
}

func TestNewMissingMaterialization(t *testing.T) {
	g, _ := dag.Build(models.All())
	_, err := runner.New(runner.Config{
		Graph:        g,
		Selected:     []string{"mart_revenue"},
		Resolver:     models.SchemaResolver{SourceName: "DvdRent", TargetSchema: "analytics"},
		Materializer: &fakeMaterializer{},
	})
	if err == nil {
		t.Error("Expected error when a layer has no materialization")
	}
}
