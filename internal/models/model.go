//-------------------------------------------------------------------------
//
// pgEdge DVD Rental Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package models defines the transformation model interface and registry.
// Layer packages (staging, intermediate, marts) register their models from
// init().
package models

import "fmt"

// Layer identifies the layer a model belongs to.
type Layer string

// Model layers, in dependency order.
const (
	LayerStaging      Layer = "staging"
	LayerIntermediate Layer = "intermediate"
	LayerMarts        Layer = "marts"
)

// Rank returns the position of the layer in the pipeline (staging first).
func (l Layer) Rank() int {
	switch l {
	case LayerStaging:
		return 0
	case LayerIntermediate:
		return 1
	case LayerMarts:
		return 2
	default:
		return -1
	}
}

// ParseLayer converts a layer name to a Layer.
func ParseLayer(s string) (Layer, error) {
	l := Layer(s)
	if l.Rank() < 0 {
		return "", fmt.Errorf("unknown layer: %s", s)
	}
	return l, nil
}

// Materialization is how a compiled model is persisted.
type Materialization string

// Supported materializations.
const (
	View  Materialization = "view"
	Table Materialization = "table"
)

// ParseMaterialization converts a materialization name.
func ParseMaterialization(s string) (Materialization, error) {
	switch Materialization(s) {
	case View, Table:
		return Materialization(s), nil
	}
	return "", fmt.Errorf("unknown materialization: %s", s)
}

// Model defines the interface all transformation models implement.
type Model interface {
	// Name returns the relation name the model materializes as.
	Name() string

	// Layer returns the layer the model belongs to.
	Layer() Layer

	// Description returns a human-readable description.
	Description() string

	// Columns returns the ordered, case-sensitive output columns.
	Columns() []string

	// OrderBy returns the ORDER BY clause body used when reading the
	// relation back, or "" when the model defines no order.
	OrderBy() string

	// SQL returns the template body. Templates call {{ ref "model" }},
	// {{ source "DvdRent" "table" }} and {{ var "name" }}.
	SQL() string
}

// Definition is a declarative Model.
type Definition struct {
	ModelName  string
	ModelLayer Layer
	Desc       string
	Cols       []string
	Order      string
	Body       string
}

// Name returns the model name.
func (d *Definition) Name() string { return d.ModelName }

// Layer returns the model layer.
func (d *Definition) Layer() Layer { return d.ModelLayer }

// Description returns the model description.
func (d *Definition) Description() string { return d.Desc }

// Columns returns a copy of the output columns.
func (d *Definition) Columns() []string {
	out := make([]string, len(d.Cols))
	copy(out, d.Cols)
	return out
}

// OrderBy returns the read-back ordering.
func (d *Definition) OrderBy() string { return d.Order }

// SQL returns the template body.
func (d *Definition) SQL() string { return d.Body }

// SourceTables lists the raw tables the DvdRent source registry provides.
var SourceTables = []string{
	"rental",
	"payment",
	"inventory",
	"film",
	"film_category",
	"category",
	"customer",
	"staff",
}
