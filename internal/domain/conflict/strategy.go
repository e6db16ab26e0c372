package conflict

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
)

// ErrUnknownStrategy indicates a strategy name absent from the registry.
var ErrUnknownStrategy = errors.New("unknown resolution strategy")

// Strategy resolves one detected conflict between two contributions.
// Implementations must be deterministic: equal inputs give equal
// resolutions, and ambiguity falls back to a documented ordering rather
// than an error, so a run always reaches a terminal state.
type Strategy interface {
	Name() string
	Resolve(rec Record, a, b contribution.Contribution, p profile.Profile) (Resolution, error)
}

// Registry maps strategy names to implementations. Build one per
// process; it is read-only after registration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy. Registering the same name twice panics, as
// that is a programming error.
func (r *Registry) Register(s Strategy) {
	if _, dup := r.strategies[s.Name()]; dup {
		panic("conflict: duplicate strategy registration: " + s.Name())
	}
	r.strategies[s.Name()] = s
}

// ForName returns the named strategy.
func (r *Registry) ForName(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
	}
	return s, nil
}

// Names returns all registered strategy names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry holding the five built-in
// strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(WeightedConsensus{})
	r.Register(ExpertHierarchy{})
	r.Register(EvidencePriority{})
	r.Register(StakeholderAlignment{})
	r.Register(LatestConsensus{})
	return r
}

func resolution(rec Record, winner, loser contribution.Contribution, confidence float64, strategy, rationale string) Resolution {
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return Resolution{
		ConflictID: rec.ID,
		WinnerID:   winner.ID,
		LoserID:    loser.ID,
		Confidence: confidence,
		Strategy:   strategy,
		Rationale:  rationale,
		ResolvedAt: time.Now().UTC(),
	}
}
