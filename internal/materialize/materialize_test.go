package materialize

import (
	"reflect"
	"testing"

	"github.com/pgEdge/pgedge-dvdrent/internal/models"
)

func TestRender(t *testing.T) {
	cols := []string{"Month", "StaffName", "Revenue"}

	tests := []struct {
		name     string
		kind     models.Materialization
		existing Existing
		query    string
		want     []string
		wantErr  bool
	}{
		{
			name:  "new view",
			kind:  models.View,
			query: "SELECT 1",
			want:  []string{"CREATE OR REPLACE VIEW \"analytics\".\"mart_revenue\" AS\nSELECT 1"},
		},
		{
			name:     "view with same columns is replaced in place",
			kind:     models.View,
			existing: Existing{Kind: KindView, Columns: cols},
			query:    "SELECT 1",
			want:     []string{"CREATE OR REPLACE VIEW \"analytics\".\"mart_revenue\" AS\nSELECT 1"},
		},
		{
			name:     "view with changed columns is dropped first",
			kind:     models.View,
			existing: Existing{Kind: KindView, Columns: []string{"Month", "Revenue"}},
			query:    "SELECT 1",
			want: []string{
				`DROP VIEW IF EXISTS "analytics"."mart_revenue" CASCADE`,
				"CREATE OR REPLACE VIEW \"analytics\".\"mart_revenue\" AS\nSELECT 1",
			},
		},
		{
			name:     "table replacing a view",
			kind:     models.Table,
			existing: Existing{Kind: KindView, Columns: cols},
			query:    "SELECT 1",
			want: []string{
				`DROP VIEW IF EXISTS "analytics"."mart_revenue" CASCADE`,
				"CREATE TABLE \"analytics\".\"mart_revenue\" AS\nSELECT 1",
			},
		},
		{
			name:     "table rebuild",
			kind:     models.Table,
			existing: Existing{Kind: KindTable, Columns: cols},
			query:    "SELECT 1;\n",
			want: []string{
				`DROP TABLE IF EXISTS "analytics"."mart_revenue" CASCADE`,
				"CREATE TABLE \"analytics\".\"mart_revenue\" AS\nSELECT 1",
			},
		},
		{
			name:     "view replacing a table",
			kind:     models.View,
			existing: Existing{Kind: KindTable, Columns: cols},
			query:    "SELECT 1",
			want: []string{
				`DROP TABLE IF EXISTS "analytics"."mart_revenue" CASCADE`,
				"CREATE OR REPLACE VIEW \"analytics\".\"mart_revenue\" AS\nSELECT 1",
			},
		},
		{
			name:     "unsupported existing relation",
			kind:     models.Table,
			existing: Existing{Kind: "m"},
			query:    "SELECT 1",
			wantErr:  true,
		},
		{
			name:    "unsupported materialization",
			kind:    "incremental",
			query:   "SELECT 1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render("analytics", "mart_revenue", tt.kind, tt.existing, cols, tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Render() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Render() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestRenderJob(t *testing.T) {
	job := Job{
		Model: &models.Definition{
			ModelName:  "stg_staff",
			ModelLayer: models.LayerStaging,
			Cols:       []string{"staff_id", "StaffName"},
		},
		Materialization: models.View,
		SQL:             "SELECT 1",
	}
	got, err := RenderJob("analytics", job, Existing{Kind: KindView, Columns: []string{"staff_id", "StaffName"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("Expected an in-place replace, got %q", got)
	}
}

func TestScript(t *testing.T) {
	got := Script([]string{"DROP TABLE IF EXISTS x CASCADE", "CREATE TABLE x AS\nSELECT 1"})
	want := "BEGIN;\nDROP TABLE IF EXISTS x CASCADE;\nCREATE TABLE x AS\nSELECT 1;\nCOMMIT;"
	if got != want {
		t.Errorf("Script() =\n%s\nwant\n%s", got, want)
	}
}

func TestDrops(t *testing.T) {
	tests := []struct {
		stmts []string
		want  bool
	}{
		{[]string{"CREATE OR REPLACE VIEW x AS\nSELECT 1"}, false},
		{[]string{"DROP VIEW IF EXISTS x CASCADE", "CREATE TABLE x AS\nSELECT 1"}, true},
		{nil, false},
	}
	for _, tt := range tests {
		if got := Drops(tt.stmts); got != tt.want {
			t.Errorf("Drops(%q) = %v, want %v", tt.stmts, got, tt.want)
		}
	}
}
