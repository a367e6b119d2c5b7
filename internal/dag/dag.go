// Package dag orders models by their references.
package dag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pgEdge/pgedge-dvdrent/internal/models"
)

// Graph is the dependency graph of a set of models. Edges point from a model
// to the models that reference it.
type Graph struct {
	nodes      map[string]models.Model
	upstream   map[string][]string
	downstream map[string][]string
	order      []string
	position   map[string]int
}

// Build creates the graph of ms. A reference to a model outside ms and any
// cycle are errors.
func Build(ms []models.Model) (*Graph, error) {
	g := &Graph{
		nodes:      make(map[string]models.Model, len(ms)),
		upstream:   make(map[string][]string, len(ms)),
		downstream: make(map[string][]string, len(ms)),
	}

	for _, m := range ms {
		if _, dup := g.nodes[m.Name()]; dup {
			return nil, fmt.Errorf("duplicate model %s", m.Name())
		}
		g.nodes[m.Name()] = m
	}

	for _, m := range ms {
		deps, err := models.DependenciesOf(m)
		if err != nil {
			return nil, err
		}
		for _, ref := range deps.Refs {
			if _, ok := g.nodes[ref]; !ok {
				return nil, fmt.Errorf("model %s references unknown model %s", m.Name(), ref)
			}
			g.upstream[m.Name()] = append(g.upstream[m.Name()], ref)
			g.downstream[ref] = append(g.downstream[ref], m.Name())
		}
	}
	for name := range g.downstream {
		sort.Strings(g.downstream[name])
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.order = order
	g.position = make(map[string]int, len(order))
	for i, name := range order {
		g.position[name] = i
	}
	return g, nil
}

// topoSort runs Kahn's algorithm, always taking the smallest ready name.
func (g *Graph) topoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	var ready []string
	for name := range g.nodes {
		indegree[name] = len(g.upstream[name])
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, down := range g.downstream[next] {
			indegree[down]--
			if indegree[down] == 0 {
				ready = append(ready, down)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("dependency cycle: %s", strings.Join(g.findCycle(), " -> "))
	}
	return order, nil
}

// findCycle returns one cycle as a closed path, first node repeated last.
func (g *Graph) findCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		state[name] = visiting
		stack = append(stack, name)
		for _, down := range g.downstream[name] {
			switch state[down] {
			case visiting:
				for i, n := range stack {
					if n == down {
						cycle = append(append([]string{}, stack[i:]...), down)
						return true
					}
				}
			case unvisited:
				if visit(down) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return false
	}

	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if state[name] == unvisited && visit(name) {
			return cycle
		}
	}
	return nil
}

// Model returns the named model.
func (g *Graph) Model(name string) (models.Model, bool) {
	m, ok := g.nodes[name]
	return m, ok
}

// Len returns the number of models in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// TopoSort returns every model name so that each model follows all of its
// references. The order is deterministic.
func (g *Graph) TopoSort() []string {
	return append([]string(nil), g.order...)
}

// Upstream returns the direct references of name, sorted.
func (g *Graph) Upstream(name string) []string {
	out := append([]string(nil), g.upstream[name]...)
	sort.Strings(out)
	return out
}

// Downstream returns every model that transitively references name, in
// topological order.
func (g *Graph) Downstream(name string) []string {
	return g.closure(name, g.downstream)
}

// Ancestors returns every model name transitively references, in
// topological order.
func (g *Graph) Ancestors(name string) []string {
	return g.closure(name, g.upstream)
}

func (g *Graph) closure(name string, edges map[string][]string) []string {
	seen := make(map[string]bool)
	queue := append([]string(nil), edges[name]...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		queue = append(queue, edges[n]...)
	}
	return g.sorted(seen)
}

// sorted returns the members of set in topological order.
func (g *Graph) sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return g.position[out[i]] < g.position[out[j]]
	})
	return out
}

// Levels groups names into waves. A model's level is one more than the
// highest level among its references inside names; references outside names
// are treated as already built. Each level is sorted by name. With no names
// the whole graph is leveled.
func (g *Graph) Levels(names ...string) [][]string {
	if len(names) == 0 {
		names = g.order
	}
	include := make(map[string]bool, len(names))
	for _, n := range names {
		include[n] = true
	}

	level := make(map[string]int, len(names))
	depth := 0
	for _, n := range g.order {
		if !include[n] {
			continue
		}
		l := 0
		for _, up := range g.upstream[n] {
			if include[up] && level[up]+1 > l {
				l = level[up] + 1
			}
		}
		level[n] = l
		depth = max(depth, l+1)
	}

	levels := make([][]string, depth)
	for _, n := range g.order {
		if include[n] {
			levels[level[n]] = append(levels[level[n]], n)
		}
	}
	for _, l := range levels {
		sort.Strings(l)
	}
	return levels
}

// Select resolves selectors to model names in topological order. Supported
// selectors:
//
//	name            one model
//	+name           the model and everything it depends on
//	name+           the model and everything that depends on it
//	+name+          both
//	layer:staging   every model of a layer
//	*               every model
//
// No selectors selects everything.
func (g *Graph) Select(selectors []string) ([]string, error) {
	if len(selectors) == 0 {
		return g.TopoSort(), nil
	}

	selected := make(map[string]bool)
	for _, raw := range selectors {
		sel := strings.TrimSpace(raw)
		switch {
		case sel == "*":
			for n := range g.nodes {
				selected[n] = true
			}
		case strings.HasPrefix(sel, "layer:"):
			layer, err := models.ParseLayer(strings.TrimPrefix(sel, "layer:"))
			if err != nil {
				return nil, fmt.Errorf("invalid selector %q: %w", raw, err)
			}
			for n, m := range g.nodes {
				if m.Layer() == layer {
					selected[n] = true
				}
			}
		default:
			withUp := strings.HasPrefix(sel, "+")
			withDown := strings.HasSuffix(sel, "+")
			name := strings.TrimSuffix(strings.TrimPrefix(sel, "+"), "+")
			if _, ok := g.nodes[name]; !ok {
				return nil, fmt.Errorf("selector %q matches no model", raw)
			}
			selected[name] = true
			if withUp {
				for _, n := range g.Ancestors(name) {
					selected[n] = true
				}
			}
			if withDown {
				for _, n := range g.Downstream(name) {
					selected[n] = true
				}
			}
		}
	}
	return g.sorted(selected), nil
}
