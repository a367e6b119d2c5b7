package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-dvdrent/internal/config"
	"github.com/pgEdge/pgedge-dvdrent/internal/dag"
	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
	"github.com/pgEdge/pgedge-dvdrent/internal/pipeline"
)

// project is the validated model graph together with the settings needed to
// compile it.
type project struct {
	cfg              *config.Config
	graph            *dag.Graph
	deps             map[string]models.Dependencies
	resolver         models.SchemaResolver
	vars             map[string]any
	materializations map[models.Layer]models.Materialization
}

func newProject(cfg *config.Config) (*project, error) {
	if err := models.ValidateAll(); err != nil {
		return nil, err
	}

	all := models.All()
	graph, err := dag.Build(all)
	if err != nil {
		return nil, err
	}

	deps := make(map[string]models.Dependencies, len(all))
	for _, m := range all {
		d, err := models.DependenciesOf(m)
		if err != nil {
			return nil, err
		}
		deps[m.Name()] = d
	}

	mats := make(map[models.Layer]models.Materialization, 3)
	for layer, name := range map[models.Layer]string{
		models.LayerStaging:      cfg.Materializations.Staging,
		models.LayerIntermediate: cfg.Materializations.Intermediate,
		models.LayerMarts:        cfg.Materializations.Marts,
	} {
		m, err := models.ParseMaterialization(name)
		if err != nil {
			return nil, fmt.Errorf("materializations.%s: %w", layer, err)
		}
		mats[layer] = m
	}

	return &project{
		cfg:   cfg,
		graph: graph,
		deps:  deps,
		resolver: models.SchemaResolver{
			SourceName:   cfg.Source.Name,
			SourceSchema: cfg.Source.Schema,
			TargetSchema: cfg.Target.Schema,
		},
		vars: map[string]any{
			"coalesce_revenue": cfg.Marts.CoalesceRevenue,
		},
		materializations: mats,
	}, nil
}

func (p *project) options() pipeline.Options {
	return pipeline.Options{CoalesceRevenue: p.cfg.Marts.CoalesceRevenue}
}

func (p *project) compile(name string) (string, error) {
	m, ok := p.graph.Model(name)
	if !ok {
		return "", fmt.Errorf("unknown model: %s", name)
	}
	return models.Compile(m, models.CompileOptions{Resolver: p.resolver, Vars: p.vars})
}

func connect(ctx context.Context, maxConns int) (*pgxpool.Pool, error) {
	pool, err := db.ConnectWithMaxConns(ctx, cfg.Connection, int32(maxConns))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
