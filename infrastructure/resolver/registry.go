package resolver

import (
	"fmt"
)

// Registry manages the named resolution strategy orders a project can
// select between.
type Registry struct {
	orders map[string][]Strategy
}

// NewRegistry creates an empty strategy-order registry.
func NewRegistry() *Registry {
	return &Registry{
		orders: make(map[string][]Strategy),
	}
}

// Register adds a strategy order under the given name (e.g. "production").
func (r *Registry) Register(name string, strategies []Strategy) {
	r.orders[name] = strategies
}

// Get returns the strategy order registered under the given name.
func (r *Registry) Get(name string) ([]Strategy, error) {
	strategies, ok := r.orders[name]
	if !ok {
		return nil, fmt.Errorf("unknown resolution strategy order: %q", name)
	}
	return strategies, nil
}

// Names returns the list of registered order names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.orders))
	for name := range r.orders {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry returns the standard strategy orders: "production"
// pins to published releases, "beta" prefers prereleases, and
// "unmanaged-head" tracks the default branch.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("production", []Strategy{
		&TagStrategy{},
		&LatestReleaseStrategy{},
	})
	reg.Register("beta", []Strategy{
		&TagStrategy{},
		&LatestBetaStrategy{},
		&LatestReleaseStrategy{},
	})
	reg.Register("unmanaged-head", []Strategy{
		&TagStrategy{},
		&UnmanagedHeadStrategy{},
	})
	return reg
}
