package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
)

var (
	runsLimit int
	runsID    int64
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the build run log",
	Long: `List recent builds from the run log, newest first. With --id, list
the per-model outcomes of one build.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10,
		"number of runs to show")
	runsCmd.Flags().Int64Var(&runsID, "id", 0,
		"show the models of one run")
}

func runRuns(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := db.ConnectSingle(ctx, cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if err := db.EnsureSchema(ctx, conn, cfg.Target.Schema); err != nil {
		return err
	}
	runLog := db.NewRunLog(conn, cfg.Target.Schema)
	if err := runLog.Ensure(ctx); err != nil {
		return err
	}

	if runsID > 0 {
		mrs, err := runLog.ModelRuns(ctx, runsID)
		if err != nil {
			return err
		}
		for _, mr := range mrs {
			cmd.Printf("  %-26s %-8s %-6s rows %-8d %6dms  %s %s\n",
				mr.Model, mr.Status, mr.Materialization, mr.Rows, mr.DurationMS,
				mr.SQLFingerprint, mr.Error)
		}
		return nil
	}

	runs, err := runLog.Recent(ctx, runsLimit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		cmd.Printf("  #%-5d %s  %-8s %8s  selected %d  ok %d  failed %d  skipped %d  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, finished,
			r.Selected, r.Succeeded, r.Failed, r.Skipped, r.Error)
	}
	return nil
}
