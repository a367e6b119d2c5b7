//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-dvdrent.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Materialization names accepted in the configuration.
const (
	MaterializeView  = "view"
	MaterializeTable = "table"
)

// Config holds all configuration for pgedge-dvdrent.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat selects console or json log output.
	LogFormat string `mapstructure:"log_format"`

	// Source describes where the raw DVD rental tables live.
	Source SourceConfig `mapstructure:"source"`

	// Target describes where models are materialized.
	Target TargetConfig `mapstructure:"target"`

	// Build holds configuration for the build subcommand.
	Build BuildConfig `mapstructure:"build"`

	// Materializations maps a layer name to "view" or "table".
	Materializations MaterializationConfig `mapstructure:"materializations"`

	// Marts holds options for the reporting layer.
	Marts MartsConfig `mapstructure:"marts"`

	// Seed holds configuration for the seed subcommand.
	Seed SeedConfig `mapstructure:"seed"`

	// Export holds configuration for the export subcommand.
	Export ExportConfig `mapstructure:"export"`
}

// SourceConfig names the source registry entry and its schema.
type SourceConfig struct {
	// Name is the logical source name models refer to (e.g., "DvdRent").
	Name string `mapstructure:"name"`

	// Schema is the PostgreSQL schema holding the raw tables.
	Schema string `mapstructure:"schema"`
}

// TargetConfig describes the schema models are built into.
type TargetConfig struct {
	Schema string `mapstructure:"schema"`
}

// BuildConfig holds configuration for model builds.
type BuildConfig struct {
	// Threads is the maximum number of models materialized concurrently.
	Threads int `mapstructure:"threads"`

	// Select lists model selectors (name, +name, name+, layer:x, *).
	Select []string `mapstructure:"select"`
}

// MaterializationConfig sets the default materialization per layer.
type MaterializationConfig struct {
	Staging      string `mapstructure:"staging"`
	Intermediate string `mapstructure:"intermediate"`
	Marts        string `mapstructure:"marts"`
}

// MartsConfig holds reporting options.
type MartsConfig struct {
	// CoalesceRevenue reports unpaid-only groups as 0 instead of NULL.
	CoalesceRevenue bool `mapstructure:"coalesce_revenue"`
}

// SeedConfig holds configuration for source data generation.
type SeedConfig struct {
	// Size is the target source data size (e.g., "10MB").
	Size string `mapstructure:"size"`

	// Seed makes generation deterministic when non-zero.
	Seed uint64 `mapstructure:"seed"`

	// DropExisting drops existing source tables before seeding.
	DropExisting bool `mapstructure:"drop_existing"`
}

// ExportConfig holds configuration for report export.
type ExportConfig struct {
	// Format is "json" or "csv".
	Format string `mapstructure:"format"`

	// Output is the directory exported files are written to.
	Output string `mapstructure:"output"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
		Source: SourceConfig{
			Name:   "DvdRent",
			Schema: "public",
		},
		Target: TargetConfig{
			Schema: "analytics",
		},
		Build: BuildConfig{
			Threads: 4,
			Select:  []string{"*"},
		},
		Materializations: MaterializationConfig{
			Staging:      MaterializeView,
			Intermediate: MaterializeView,
			Marts:        MaterializeTable,
		},
		Seed: SeedConfig{
			Size: "10MB",
		},
		Export: ExportConfig{
			Format: "json",
			Output: "reports",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-dvdrent.yaml
// 3. ~/.config/pgedge-dvdrent/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-dvdrent")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-dvdrent"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	if c.Source.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if c.Source.Schema == "" {
		return fmt.Errorf("source schema is required")
	}
	if c.Target.Schema == "" {
		return fmt.Errorf("target schema is required")
	}
	return nil
}

// ValidateCompile checks configuration required to compile models. Compiling
// never touches the database, so no connection string is needed.
func (c *Config) ValidateCompile() error {
	if c.Source.Name == "" || c.Source.Schema == "" {
		return fmt.Errorf("source name and schema are required")
	}
	if c.Target.Schema == "" {
		return fmt.Errorf("target schema is required")
	}
	for layer, m := range map[string]string{
		"staging":      c.Materializations.Staging,
		"intermediate": c.Materializations.Intermediate,
		"marts":        c.Materializations.Marts,
	} {
		if m != MaterializeView && m != MaterializeTable {
			return fmt.Errorf("materializations.%s must be 'view' or 'table', got '%s'", layer, m)
		}
	}
	return nil
}

// ValidateBuild checks configuration required for the build command.
func (c *Config) ValidateBuild() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateCompile(); err != nil {
		return err
	}
	if c.Build.Threads < 1 {
		return fmt.Errorf("threads must be at least 1")
	}
	if len(c.Build.Select) == 0 {
		return fmt.Errorf("at least one selector is required")
	}
	return nil
}

// ValidateSeed checks configuration required for the seed command.
func (c *Config) ValidateSeed() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Seed.Size == "" {
		return fmt.Errorf("target size is required for seed")
	}
	return nil
}

// ValidateExport checks configuration required for the export command.
func (c *Config) ValidateExport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Export.Format != "json" && c.Export.Format != "csv" {
		return fmt.Errorf("export format must be 'json' or 'csv'")
	}
	if c.Export.Output == "" {
		return fmt.Errorf("export output directory is required")
	}
	return nil
}
