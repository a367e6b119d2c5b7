//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-dvdrent.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dvdrent/internal/config"
	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
	"github.com/pgEdge/pgedge-dvdrent/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	logLevel   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-dvdrent",
		Short: "Layered SQL transformations over the DVD rental database",
		Long: `pgedge-dvdrent builds a layered set of SQL models over a PostgreSQL
DVD rental database: staging models clean the raw tables, intermediate
models join them into a transaction fact, and marts aggregate that fact
into revenue and consumption reports.

Models are compiled from templates, ordered by their dependencies and
materialized as views or tables in a target schema.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-dvdrent.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	rootCmd.SetOut(os.Stdout)

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(runsCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.ConfigFor(cfg.LogLevel, cfg.LogFormat))

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long: `List every registered model grouped by layer, with the
materialization configured for its layer and the models and sources it
reads.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateCompile(); err != nil {
			return err
		}
		p, err := newProject(cfg)
		if err != nil {
			return err
		}

		for _, name := range p.graph.TopoSort() {
			m, _ := p.graph.Model(name)
			reads := p.graph.Upstream(name)
			for _, s := range p.deps[name].Sources {
				reads = append(reads, "source:"+s.String())
			}
			cmd.Printf("  %-26s %-13s %-6s %s\n",
				name, m.Layer(), p.materializations[m.Layer()], strings.Join(reads, ", "))
		}
		return nil
	},
}
