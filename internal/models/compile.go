package models

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/pgEdge/pgedge-dvdrent/internal/db"
)

// Resolver turns logical references into relation names.
type Resolver interface {
	// Ref resolves a reference to another model.
	Ref(name string) (string, error)

	// Source resolves a raw table in a named source.
	Source(source, table string) (string, error)
}

// SchemaResolver resolves refs into the target schema and sources into the
// source schema, quoting every identifier.
type SchemaResolver struct {
	SourceName   string
	SourceSchema string
	TargetSchema string
}

// Ref implements Resolver.
func (r SchemaResolver) Ref(name string) (string, error) {
	if !Exists(name) {
		return "", fmt.Errorf("reference to unknown model '%s'", name)
	}
	return db.QualifiedName(r.TargetSchema, name), nil
}

// Source implements Resolver.
func (r SchemaResolver) Source(source, table string) (string, error) {
	if source != r.SourceName {
		return "", fmt.Errorf("unknown source '%s'", source)
	}
	if !slices.Contains(SourceTables, table) {
		return "", fmt.Errorf("source '%s' has no table '%s'", source, table)
	}
	return db.QualifiedName(r.SourceSchema, table), nil
}

// CompileOptions controls template rendering.
type CompileOptions struct {
	Resolver Resolver

	// Vars are exposed to templates through {{ var "name" }}. Unknown
	// variables render as nil.
	Vars map[string]any
}

// SourceRef names one raw table a model reads.
type SourceRef struct {
	Source string
	Table  string
}

func (s SourceRef) String() string {
	return s.Source + "." + s.Table
}

// Dependencies lists what a model reads.
type Dependencies struct {
	Refs    []string
	Sources []SourceRef
}

// Compile renders a model's SQL with references resolved.
func Compile(m Model, opts CompileOptions) (string, error) {
	if opts.Resolver == nil {
		return "", fmt.Errorf("compile %s: no resolver", m.Name())
	}

	funcs := template.FuncMap{
		"ref":    opts.Resolver.Ref,
		"source": opts.Resolver.Source,
		"var": func(name string) any {
			return opts.Vars[name]
		},
	}

	tmpl, err := template.New(m.Name()).Funcs(funcs).Parse(m.SQL())
	if err != nil {
		return "", fmt.Errorf("compile %s: %w", m.Name(), err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, nil); err != nil {
		return "", fmt.Errorf("compile %s: %w", m.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}

// parseOnlyFuncs lets templates parse without resolving anything.
var parseOnlyFuncs = template.FuncMap{
	"ref":    func(string) string { return "" },
	"source": func(string, string) string { return "" },
	"var":    func(string) any { return nil },
}

// DependenciesOf extracts the refs and sources a model's template calls,
// including those inside conditional branches. Results are sorted and
// deduplicated.
func DependenciesOf(m Model) (Dependencies, error) {
	tmpl, err := template.New(m.Name()).Funcs(parseOnlyFuncs).Parse(m.SQL())
	if err != nil {
		return Dependencies{}, fmt.Errorf("parse %s: %w", m.Name(), err)
	}

	refs := make(map[string]struct{})
	sources := make(map[SourceRef]struct{})

	walk(tmpl.Tree.Root, func(cmd *parse.CommandNode) {
		if len(cmd.Args) < 2 {
			return
		}
		ident, ok := cmd.Args[0].(*parse.IdentifierNode)
		if !ok {
			return
		}
		switch ident.Ident {
		case "ref":
			if name, ok := cmd.Args[1].(*parse.StringNode); ok {
				refs[name.Text] = struct{}{}
			}
		case "source":
			if len(cmd.Args) < 3 {
				return
			}
			src, ok1 := cmd.Args[1].(*parse.StringNode)
			tbl, ok2 := cmd.Args[2].(*parse.StringNode)
			if ok1 && ok2 {
				sources[SourceRef{Source: src.Text, Table: tbl.Text}] = struct{}{}
			}
		}
	})

	var deps Dependencies
	for r := range refs {
		deps.Refs = append(deps.Refs, r)
	}
	sort.Strings(deps.Refs)
	for s := range sources {
		deps.Sources = append(deps.Sources, s)
	}
	sort.Slice(deps.Sources, func(i, j int) bool {
		return deps.Sources[i].String() < deps.Sources[j].String()
	})
	return deps, nil
}

func walk(node parse.Node, visit func(*parse.CommandNode)) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			walk(child, visit)
		}
	case *parse.ActionNode:
		walk(n.Pipe, visit)
	case *parse.IfNode:
		walkBranch(&n.BranchNode, visit)
	case *parse.RangeNode:
		walkBranch(&n.BranchNode, visit)
	case *parse.WithNode:
		walkBranch(&n.BranchNode, visit)
	case *parse.TemplateNode:
		walk(n.Pipe, visit)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			visit(cmd)
			for _, arg := range cmd.Args {
				walk(arg, visit)
			}
		}
	}
}

func walkBranch(b *parse.BranchNode, visit func(*parse.CommandNode)) {
	walk(b.Pipe, visit)
	walk(b.List, visit)
	walk(b.ElseList, visit)
}

// CheckLayering enforces which layers a model may read from: staging reads
// only sources, intermediate reads staging or intermediate models, marts
// read intermediate models.
func CheckLayering(m Model, deps Dependencies) error {
	switch m.Layer() {
	case LayerStaging:
		if len(deps.Refs) > 0 {
			return fmt.Errorf("staging model %s must not reference models (refs %v)", m.Name(), deps.Refs)
		}
		if len(deps.Sources) == 0 {
			return fmt.Errorf("staging model %s reads no source", m.Name())
		}
		return nil
	case LayerIntermediate, LayerMarts:
		if len(deps.Sources) > 0 {
			return fmt.Errorf("%s model %s must not read sources directly", m.Layer(), m.Name())
		}
		if len(deps.Refs) == 0 {
			return fmt.Errorf("%s model %s references no models", m.Layer(), m.Name())
		}
	default:
		return fmt.Errorf("model %s has unknown layer '%s'", m.Name(), m.Layer())
	}

	for _, ref := range deps.Refs {
		up, err := Get(ref)
		if err != nil {
			return fmt.Errorf("model %s: %w", m.Name(), err)
		}
		ok := false
		switch m.Layer() {
		case LayerIntermediate:
			ok = up.Layer() == LayerStaging || up.Layer() == LayerIntermediate
		case LayerMarts:
			ok = up.Layer() == LayerIntermediate
		}
		if !ok {
			return fmt.Errorf("%s model %s must not reference %s model %s",
				m.Layer(), m.Name(), up.Layer(), up.Name())
		}
	}
	return nil
}

// ValidateAll checks every registered model parses and respects layering.
func ValidateAll() error {
	for _, m := range All() {
		deps, err := DependenciesOf(m)
		if err != nil {
			return err
		}
		if err := CheckLayering(m, deps); err != nil {
			return err
		}
	}
	return nil
}
