// Package verify reconciles built relations against the in-memory
// reference engine and against earlier builds.
package verify

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
	"github.com/pgEdge/pgedge-dvdrent/internal/fingerprint"
	"github.com/pgEdge/pgedge-dvdrent/internal/models"
	"github.com/pgEdge/pgedge-dvdrent/internal/pipeline"
	"github.com/pgEdge/pgedge-dvdrent/internal/warehouse"
)

// Check is the comparison of one relation.
type Check struct {
	Relation     string
	Expected     string
	Actual       string
	ExpectedRows int
	ActualRows   int
}

// OK reports whether both sides agree.
func (c Check) OK() bool {
	return c.Expected == c.Actual && c.ExpectedRows == c.ActualRows
}

// Failed returns the checks that did not pass.
func Failed(checks []Check) []Check {
	var out []Check
	for _, c := range checks {
		if !c.OK() {
			out = append(out, c)
		}
	}
	return out
}

func check[T pipeline.Record](name string, ordered bool, expected, actual []T) Check {
	fp := fingerprint.Unordered
	if ordered {
		fp = fingerprint.Ordered
	}
	return Check{
		Relation:     name,
		Expected:     fp(pipeline.Records(expected)),
		Actual:       fp(pipeline.Records(actual)),
		ExpectedRows: len(expected),
		ActualRows:   len(actual),
	}
}

// Compare fingerprints the intermediate and mart relations of two outputs.
// mart_revenue is compared in order, the rest as multisets.
func Compare(expected, actual pipeline.Outputs) []Check {
	return []Check{
		check("intermediate_transaction", false, expected.Transactions, actual.Transactions),
		check("intermediate_film_detail", false, expected.FilmDetails, actual.FilmDetails),
		check("intermediate_consumption", false, expected.Consumption, actual.Consumption),
		check("mart_revenue", true, expected.Revenue, actual.Revenue),
		check("mart_consumption", false, expected.MartConsumption, actual.MartConsumption),
	}
}

// Warehouse evaluates the reference engine over the source tables and
// compares the result with what was built in targetSchema.
func Warehouse(ctx context.Context, q db.Querier, sourceSchema, targetSchema string, opts pipeline.Options) ([]Check, error) {
	src, err := warehouse.LoadSources(ctx, q, sourceSchema)
	if err != nil {
		return nil, err
	}
	actual, err := warehouse.LoadOutputs(ctx, q, targetSchema)
	if err != nil {
		return nil, err
	}
	return Compare(pipeline.Run(src, opts), actual), nil
}

// Snapshot fingerprints every built model in schema. Models with a declared
// order are fingerprinted in that order.
type Snapshot map[string]Check

// Take reads every model in ms and fingerprints its contents.
func Take(ctx context.Context, q db.Querier, schema string, ms []models.Model) (Snapshot, error) {
	snap := make(Snapshot, len(ms))
	for _, m := range ms {
		rel, err := warehouse.ReadRelation(ctx, q, schema, m, 0)
		if err != nil {
			return nil, err
		}
		fp := fingerprint.Unordered(rel.Rows)
		if m.OrderBy() != "" {
			fp = fingerprint.Ordered(rel.Rows)
		}
		snap[m.Name()] = Check{Relation: m.Name(), Actual: fp, ActualRows: len(rel.Rows)}
	}
	return snap, nil
}

// Diff compares two snapshots of the same models, names taken from before.
func Diff(before, after Snapshot, names []string) ([]Check, error) {
	out := make([]Check, 0, len(names))
	for _, name := range names {
		b, ok := before[name]
		if !ok {
			return nil, fmt.Errorf("model %s missing from first snapshot", name)
		}
		a, ok := after[name]
		if !ok {
			return nil, fmt.Errorf("model %s missing from second snapshot", name)
		}
		out = append(out, Check{
			Relation:     name,
			Expected:     b.Actual,
			Actual:       a.Actual,
			ExpectedRows: b.ActualRows,
			ActualRows:   a.ActualRows,
		})
	}
	return out, nil
}
