package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
	"github.com/pgEdge/pgedge-dvdrent/internal/verify"
)

var verifyIdempotence bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check built models against the reference engine",
	Long: `Recompute the intermediate models and marts in memory from the source
tables and compare them with the relations built in the target schema.

With --idempotence, every model is also rebuilt and its contents must
fingerprint identically before and after the rebuild.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyIdempotence, "idempotence", false,
		"rebuild every model and compare fingerprints")
}

func runVerify(cmd *cobra.Command, args []string) error {
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

	if meta, err := db.GetAllMetadata(ctx, pool, cfg.Source.Schema); err == nil {
		logging.Info().
			Str("seeded_at", meta["seeded_at"]).
			Str("target_size", meta["target_size"]).
			Str("seed", meta["seed"]).
			Msg("Verifying against seeded source")
	}

	checks, err := verify.Warehouse(ctx, pool, cfg.Source.Schema, cfg.Target.Schema, p.options())
	if err != nil {
		return err
	}
	failed := report(cmd, "reference", checks)

	if verifyIdempotence {
		all := models.All()
		before, err := verify.Take(ctx, pool, cfg.Target.Schema, all)
		if err != nil {
			return err
		}
		if err := build(ctx, p, pool, []string{"*"}, cfg.Build.Threads); err != nil {
			return err
		}
		after, err := verify.Take(ctx, pool, cfg.Target.Schema, all)
		if err != nil {
			return err
		}
		diff, err := verify.Diff(before, after, models.List())
		if err != nil {
			return err
		}
		failed += report(cmd, "rebuild", diff)
	}

	if failed > 0 {
		return fmt.Errorf("verification failed for %d relations", failed)
	}
	logging.Info().Msg("Verification passed")
	return nil
}

func report(cmd *cobra.Command, against string, checks []verify.Check) int {
	for _, c := range checks {
		status := "ok"
		if !c.OK() {
			status = "MISMATCH"
		}
		cmd.Printf("  %-8s %-26s %-9s rows %d/%d  %s/%s\n",
			against, c.Relation, status, c.ActualRows, c.ExpectedRows, c.Actual, c.Expected)
	}
	return len(verify.Failed(checks))
}
