package models

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]Model)
	mu       sync.RWMutex
)

// Register adds a model to the registry. Registering two models under the
// same name panics, since relation names must be unique in the target schema.
func Register(m Model) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[m.Name()]; exists {
		panic(fmt.Sprintf("model registered twice: %s", m.Name()))
	}
	registry[m.Name()] = m
}

// Get retrieves a model by name.
func Get(name string) (Model, error) {
	mu.RLock()
	defer mu.RUnlock()

	m, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return m, nil
}

// Exists reports whether a model is registered under name.
func Exists(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}

// List returns all registered model names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered models ordered by layer, then name.
func All() []Model {
	mu.RLock()
	defer mu.RUnlock()

	all := make([]Model, 0, len(registry))
	for _, m := range registry {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		ri, rj := all[i].Layer().Rank(), all[j].Layer().Rank()
		if ri != rj {
			return ri < rj
		}
		return all[i].Name() < all[j].Name()
	})
	return all
}

// ByLayer returns the registered models of one layer, sorted by name.
func ByLayer(layer Layer) []Model {
	var out []Model
	for _, m := range All() {
		if m.Layer() == layer {
			out = append(out, m)
		}
	}
	return out
}
