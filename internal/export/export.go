// Package export writes built relations to report files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pgEdge/pgedge-dvdrent/internal/fingerprint"
	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
	"github.com/pgEdge/pgedge-dvdrent/internal/warehouse"
)

// Format is a report file format.
type Format string

// Supported formats.
const (
	JSON Format = "json"
	CSV  Format = "csv"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case JSON, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or csv)", s)
	}
}

// TimestampLayout is the timestamp embedded in report file names.
const TimestampLayout = "20060102_150405"

// TimestampedFilename returns <dir>/<name>_<YYYYMMDD_HHMMSS>.<ext>.
func TimestampedFilename(dir, name string, f Format, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", name, now.Format(TimestampLayout), f))
}

// Write encodes rel to w. JSON is an array of objects keyed by column, in
// column order, with NULL as null. CSV has a header row and NULL as an
// empty field.
func Write(w io.Writer, rel *warehouse.Relation, f Format) error {
	switch f {
	case JSON:
		return writeJSON(w, rel)
	case CSV:
		return writeCSV(w, rel)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// ToFile writes rel into dir under a timestamped name and returns the path.
func ToFile(dir string, rel *warehouse.Relation, f Format, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	path := TimestampedFilename(dir, rel.Name, f, now)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := Write(file, rel, f); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	logging.Info().
		Str("model", rel.Name).
		Str("path", path).
		Int("rows", len(rel.Rows)).
		Msg("Exported report")
	return path, nil
}

// object marshals a row with keys in column order.
type object struct {
	columns []string
	cells   []fingerprint.Cell
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range o.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if o.cells[i].Null {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(o.cells[i].Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(w io.Writer, rel *warehouse.Relation) error {
	rows := make([]object, len(rel.Rows))
	for i, r := range rel.Rows {
		if len(r) != len(rel.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(rel.Columns))
		}
		rows[i] = object{columns: rel.Columns, cells: r}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeCSV(w io.Writer, rel *warehouse.Relation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rel.Columns); err != nil {
		return err
	}
	record := make([]string, len(rel.Columns))
	for i, r := range rel.Rows {
		if len(r) != len(rel.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(rel.Columns))
		}
		for j, c := range r {
			record[j] = c.Value
			if c.Null {
				record[j] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
