package agent

import (
	"fmt"
	"sort"
)

// Catalog is an immutable lookup of agent definitions. Build it once at
// startup; all accessors return copies.
type Catalog struct {
	defs map[Kind]Definition
}

// NewCatalog builds a catalog from the given definitions. Duplicate kinds,
// ceilings below 1 and dependencies on kinds missing from the same set are
// rejected.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	m := make(map[Kind]Definition, len(defs))
	for _, d := range defs {
		if d.Kind == "" {
			return nil, fmt.Errorf("definition with empty kind")
		}
		if _, dup := m[d.Kind]; dup {
			return nil, fmt.Errorf("duplicate agent kind %q", d.Kind)
		}
		if d.ConcurrencyCeiling < 1 {
			return nil, fmt.Errorf("agent %q: concurrency ceiling must be >= 1, got %d", d.Kind, d.ConcurrencyCeiling)
		}
		m[d.Kind] = d
	}
	for _, d := range m {
		for _, dep := range d.DependsOn {
			if _, ok := m[dep]; !ok {
				return nil, fmt.Errorf("agent %q depends on %q: %w", d.Kind, dep, ErrUnknownAgent)
			}
		}
	}
	return &Catalog{defs: m}, nil
}

// Lookup returns the definition for kind.
func (c *Catalog) Lookup(kind Kind) (Definition, error) {
	d, ok := c.defs[kind]
	if !ok {
		return Definition{}, fmt.Errorf("%q: %w", kind, ErrUnknownAgent)
	}
	return d, nil
}

// DependenciesOf returns a copy of the kinds that must finish before kind runs.
func (c *Catalog) DependenciesOf(kind Kind) ([]Kind, error) {
	d, ok := c.defs[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownAgent)
	}
	deps := make([]Kind, len(d.DependsOn))
	copy(deps, d.DependsOn)
	return deps, nil
}

// ConcurrencyCeiling returns the maximum concurrent instances for kind.
func (c *Catalog) ConcurrencyCeiling(kind Kind) (int, error) {
	d, ok := c.defs[kind]
	if !ok {
		return 0, fmt.Errorf("%q: %w", kind, ErrUnknownAgent)
	}
	return d.ConcurrencyCeiling, nil
}

// Kinds returns all registered kinds in sorted order.
func (c *Catalog) Kinds() []Kind {
	kinds := make([]Kind, 0, len(c.defs))
	for k := range c.defs {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Definitions returns all definitions sorted by kind.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, k := range c.Kinds() {
		out = append(out, c.defs[k])
	}
	return out
}
