package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/export"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
	"github.com/pgEdge/pgedge-dvdrent/internal/warehouse"
)

var (
	showLimit    int
	exportFormat string
	exportOutput string
)

var showCmd = &cobra.Command{
	Use:   "show <model>",
	Short: "Print rows of a built model",
	Long: `Print the rows of a built model in the model's declared order.

Example:
  pgedge-dvdrent show mart_revenue --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var exportCmd = &cobra.Command{
	Use:   "export <model>",
	Short: "Export a built model to a JSON or CSV file",
	Long: `Export every row of a built model into a timestamped file
<output>/<model>_<YYYYMMDD_HHMMSS>.<format>.

Example:
  pgedge-dvdrent export mart_revenue --format csv --output reports`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 50,
		"maximum number of rows to print (0 = all)")

	exportCmd.Flags().StringVar(&exportFormat, "format", "",
		"export format: json or csv")
	exportCmd.Flags().StringVar(&exportOutput, "output", "",
		"directory to write the export to")
}

func readModel(ctx context.Context, name string, limit int) (*warehouse.Relation, error) {
	m, err := models.Get(name)
	if err != nil {
		return nil, err
	}

	conn, err := db.ConnectSingle(ctx, cfg.Connection)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	return warehouse.ReadRelation(ctx, conn, cfg.Target.Schema, m, limit)
}

func runShow(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	rel, err := readModel(context.Background(), args[0], showLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(rel.Columns, "\t"))
	for _, row := range rel.Rows {
		vals := make([]string, len(row))
		for i, c := range row {
			vals[i] = c.Value
			if c.Null {
				vals[i] = "NULL"
			}
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "(%d rows)\n", len(rel.Rows))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if exportFormat != "" {
		cfg.Export.Format = exportFormat
	}
	if exportOutput != "" {
		cfg.Export.Output = exportOutput
	}

	if err := cfg.ValidateExport(); err != nil {
		return err
	}
	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	rel, err := readModel(context.Background(), args[0], 0)
	if err != nil {
		return err
	}

	path, err := export.ToFile(cfg.Export.Output, rel, format, time.Now())
	if err != nil {
		return err
	}
	cmd.Println(path)
	return nil
}
