package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-dvdrent/internal/fingerprint"
	"github.com/pgEdge/pgedge-dvdrent/internal/warehouse"
)

func revenue() *warehouse.Relation {
	return &warehouse.Relation{
		Name:    "mart_revenue",
		Columns: []string{"Month", "StaffName", "Revenue"},
		Rows: [][]fingerprint.Cell{
			{fingerprint.Str("3"), fingerprint.Str("Mike"), fingerprint.Str("4.99")},
			{fingerprint.Str("3"), fingerprint.Str("Jon"), fingerprint.Null()},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", JSON, false},
		{"csv", CSV, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTimestampedFilename(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC)
	got := TimestampedFilename("reports", "mart_revenue", CSV, now)
	want := filepath.Join("reports", "mart_revenue_20240315_143005.csv")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, revenue(), JSON); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"Month": "3"`) && !strings.Contains(out, `"Month":"3"`) {
		t.Errorf("Missing Month in %s", out)
	}
	if strings.Index(out, "Month") > strings.Index(out, "StaffName") {
		t.Errorf("Columns out of order in %s", out)
	}

	var rows []map[string]*string
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[1]["Revenue"] != nil {
		t.Errorf("Expected null revenue, got %q", *rows[1]["Revenue"])
	}
	if *rows[0]["StaffName"] != "Mike" {
		t.Errorf("Expected Mike, got %q", *rows[0]["StaffName"])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, revenue(), CSV); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := "Month,StaffName,Revenue\n3,Mike,4.99\n3,Jon,\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestWriteRaggedRow(t *testing.T) {
	rel := revenue()
	rel.Rows = append(rel.Rows, []fingerprint.Cell{fingerprint.Str("4")})
	for _, f := range []Format{JSON, CSV} {
		if err := Write(&bytes.Buffer{}, rel, f); err == nil {
			t.Errorf("Expected error for ragged row in %s", f)
		}
	}
}

func TestWriteEmptyJSON(t *testing.T) {
	rel := revenue()
	rel.Rows = nil
	var buf bytes.Buffer
	if err := Write(&buf, rel, JSON); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("Expected [], got %q", buf.String())
	}
}

func TestToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := ToFile(dir, revenue(), CSV, now)
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	if !strings.HasPrefix(string(data), "Month,StaffName,Revenue") {
		t.Errorf("Unexpected file contents: %q", data)
	}
}
