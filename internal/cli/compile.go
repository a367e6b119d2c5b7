package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dvdrent/internal/materialize"
)

var (
	compileSelect []string
	compileDDL    bool
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Print compiled SQL for the selected models",
	Long: `Compile the selected models and print their SQL in dependency order.
Compiling resolves every ref and source against the configured schemas and
never connects to the database.

Example:
  pgedge-dvdrent compile --select +mart_revenue
  pgedge-dvdrent compile --select layer:staging --ddl`,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringSliceVar(&compileSelect, "select", nil,
		"model selectors (name, +name, name+, layer:x, *)")
	compileCmd.Flags().BoolVar(&compileDDL, "ddl", false,
		"print the statements that create each relation in an empty schema")
}

func runCompile(cmd *cobra.Command, args []string) error {
	if len(compileSelect) > 0 {
		cfg.Build.Select = compileSelect
	}
	if err := cfg.ValidateCompile(); err != nil {
		return err
	}

	p, err := newProject(cfg)
	if err != nil {
		return err
	}
	selected, err := p.graph.Select(cfg.Build.Select)
	if err != nil {
		return err
	}

	for _, name := range selected {
		m, _ := p.graph.Model(name)
		sql, err := p.compile(name)
		if err != nil {
			return err
		}

		cmd.Printf("-- %s (%s)\n", name, m.Layer())
		if !compileDDL {
			cmd.Printf("%s;\n\n", sql)
			continue
		}
		stmts, err := materialize.RenderJob(cfg.Target.Schema, materialize.Job{
			Model:           m,
			Materialization: p.materializations[m.Layer()],
			SQL:             sql,
		}, materialize.Existing{})
		if err != nil {
			return err
		}
		cmd.Printf("%s\n", materialize.Script(stmts))
	}
	return nil
}
