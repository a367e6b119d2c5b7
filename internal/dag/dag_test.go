package dag_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pgEdge/pgedge-dvdrent/internal/dag"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
	_ "github.com/pgEdge/pgedge-dvdrent/internal/models/all"
)

func buildAll(t *testing.T) *dag.Graph {
	t.Helper()
	g, err := dag.Build(models.All())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return g
}

func def(name string, layer models.Layer, body string) models.Model {
	return &models.Definition{ModelName: name, ModelLayer: layer, Body: body}
}

func TestTopoSortRespectsRefs(t *testing.T) {
	g := buildAll(t)
	order := g.TopoSort()
	if len(order) != len(models.List()) {
		t.Fatalf("Expected %d models in order, got %d", len(models.List()), len(order))
	}

	pos := make(map[string]int)
	for i, n := range order {
		pos[n] = i
	}
	for _, n := range order {
		for _, up := range g.Upstream(n) {
			if pos[up] >= pos[n] {
				t.Errorf("%s runs before its reference %s", n, up)
			}
		}
	}

	if again := buildAll(t).TopoSort(); !reflect.DeepEqual(order, again) {
		t.Errorf("TopoSort is not deterministic:\n%v\n%v", order, again)
	}
}

func TestTopoSortTieBreak(t *testing.T) {
	g, err := dag.Build([]models.Model{
		def("c", models.LayerStaging, "SELECT 1"),
		def("a", models.LayerStaging, "SELECT 1"),
		def("d", models.LayerIntermediate, `SELECT * FROM {{ ref "c" }} JOIN {{ ref "a" }}`),
		def("b", models.LayerStaging, "SELECT 1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c", "d"}
	if got := g.TopoSort(); !reflect.DeepEqual(got, want) {
		t.Errorf("TopoSort() = %v, want %v", got, want)
	}
}

func TestLevels(t *testing.T) {
	g := buildAll(t)
	levels := g.Levels()
	want := [][]string{
		{"stg_category", "stg_customer", "stg_film", "stg_film_category",
			"stg_inventory", "stg_payment", "stg_rental", "stg_staff"},
		{"intermediate_film_detail", "intermediate_transaction"},
		{"intermediate_consumption"},
		{"mart_consumption", "mart_revenue"},
	}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("Levels() = %v, want %v", levels, want)
	}
}

func TestLevelsOfSubset(t *testing.T) {
	g := buildAll(t)
	levels := g.Levels("mart_revenue", "intermediate_consumption")
	want := [][]string{{"intermediate_consumption"}, {"mart_revenue"}}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("Levels() = %v, want %v", levels, want)
	}
}

func TestDownstream(t *testing.T) {
	g := buildAll(t)
	got := g.Downstream("stg_payment")
	want := []string{"intermediate_transaction", "intermediate_consumption", "mart_consumption", "mart_revenue"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Downstream() = %v, want %v", got, want)
	}
	if got := g.Downstream("mart_revenue"); len(got) != 0 {
		t.Errorf("Expected no downstream models for a mart, got %v", got)
	}
}

func TestSelect(t *testing.T) {
	g := buildAll(t)

	tests := []struct {
		name      string
		selectors []string
		want      []string
		wantLen   int
		wantErr   bool
	}{
		{name: "empty selects all", selectors: nil, wantLen: 13},
		{name: "star", selectors: []string{"*"}, wantLen: 13},
		{name: "single", selectors: []string{"mart_revenue"}, want: []string{"mart_revenue"}},
		{name: "with upstream", selectors: []string{"+mart_revenue"}, wantLen: 12},
		{
			name:      "with downstream",
			selectors: []string{"stg_staff+"},
			want:      []string{"stg_staff", "intermediate_consumption", "mart_consumption", "mart_revenue"},
		},
		{
			name:      "both directions",
			selectors: []string{"+intermediate_transaction+"},
			want: []string{"stg_payment", "stg_rental", "intermediate_transaction",
				"intermediate_consumption", "mart_consumption", "mart_revenue"},
		},
		{name: "layer", selectors: []string{"layer:marts"}, want: []string{"mart_consumption", "mart_revenue"}},
		{name: "union", selectors: []string{"stg_staff", "stg_customer"}, want: []string{"stg_customer", "stg_staff"}},
		{name: "unknown model", selectors: []string{"nope"}, wantErr: true},
		{name: "unknown layer", selectors: []string{"layer:gold"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Select(tt.selectors)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.want != nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
			if tt.wantLen != 0 && len(got) != tt.wantLen {
				t.Errorf("Select() returned %d models, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestBuildUnknownRef(t *testing.T) {
	_, err := dag.Build([]models.Model{
		def("a", models.LayerIntermediate, `SELECT * FROM {{ ref "missing" }}`),
	})
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("Expected unknown reference error, got %v", err)
	}
}

func TestBuildCycle(t *testing.T) {
	_, err := dag.Build([]models.Model{
		def("a", models.LayerIntermediate, `SELECT * FROM {{ ref "c" }}`),
		def("b", models.LayerIntermediate, `SELECT * FROM {{ ref "a" }}`),
		def("c", models.LayerIntermediate, `SELECT * FROM {{ ref "b" }}`),
	})
	if err == nil {
		t.Fatal("Expected cycle error")
	}
	if !strings.Contains(err.Error(), "a -> b -> c -> a") {
		t.Errorf("Cycle error should name the path: %v", err)
	}
}

func TestBuildDuplicate(t *testing.T) {
	_, err := dag.Build([]models.Model{
		def("a", models.LayerStaging, "SELECT 1"),
		def("a", models.LayerStaging, "SELECT 2"),
	})
	if err == nil {
		t.Error("Expected duplicate model error")
	}
}
