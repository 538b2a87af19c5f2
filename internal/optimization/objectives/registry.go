// Package objectives provides benchmark objectives with closed-form
// gradients and known global optima.
package objectives

import (
	"sort"

	"github.com/copyleftdev/gradbench/internal/optimization"
)

var registry = map[string]optimization.Benchmark{}

func init() {
	for _, b := range []optimization.Benchmark{
		Levi{},
		CrossInTray{},
		Himmelblau{},
		Rosenbrock{},
	} {
		registry[b.Name()] = b
	}
}

// Lookup returns the benchmark registered under name.
func Lookup(name string) (optimization.Benchmark, error) {
	b, ok := registry[name]
	if !ok {
		return nil, optimization.WrapErrorf(optimization.ErrUnknownObjective, "no objective named %q", name).
			WithOperation("lookup").WithComponent("objectives")
	}
	return b, nil
}

// Names returns the registered benchmark names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered benchmark, sorted by name.
func All() []optimization.Benchmark {
	names := Names()
	out := make([]optimization.Benchmark, len(names))
	for i, name := range names {
		out[i] = registry[name]
	}
	return out
}
