// Package validation scores merged artifacts against a domain profile's
// weighted criteria, with mandatory-failure semantics.
package validation

import (
	"context"
	"sort"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
)

// State is the validation lifecycle of one run.
type State string

const (
	StatePending State = "pending"
	StateScoring State = "scoring"
	StatePassed  State = "passed"
	StateFailed  State = "failed"
)

// NeutralScore is what a criterion contributes when no scorer is
// registered for it: its weight stays in the aggregate without inflating
// the average by omission.
const NeutralScore = 0.5

// Scorer rates one criterion against a merged artifact, in [0,1].
type Scorer interface {
	Score(ctx context.Context, m *merge.MergedContent, c profile.Criterion) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, m *merge.MergedContent, c profile.Criterion) (float64, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ctx context.Context, m *merge.MergedContent, c profile.Criterion) (float64, error) {
	return f(ctx, m, c)
}

// Registry maps criterion names to scorers. Read-only after
// construction; criteria without an entry score NeutralScore.
type Registry struct {
	scorers map[string]Scorer
}

// NewRegistry returns an empty scorer registry.
func NewRegistry() *Registry {
	return &Registry{scorers: make(map[string]Scorer)}
}

// Register binds a scorer to a criterion name, replacing any previous
// binding.
func (r *Registry) Register(name string, s Scorer) {
	r.scorers[name] = s
}

// Lookup returns the scorer for name, if registered.
func (r *Registry) Lookup(name string) (Scorer, bool) {
	s, ok := r.scorers[name]
	return s, ok
}

// Registered returns the bound criterion names in sorted order.
func (r *Registry) Registered() []string {
	names := make([]string, 0, len(r.scorers))
	for n := range r.scorers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CriterionScore is one criterion's outcome.
type CriterionScore struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	SubThreshold float64 `json:"sub_threshold"`
	Passed       bool    `json:"passed"`
	Mandatory    bool    `json:"mandatory"`
	Scored       bool    `json:"scored"`
	CrossCutting bool    `json:"cross_cutting,omitempty"`
}

// Recommendation tells the caller what to fix, most urgent first.
type Recommendation struct {
	Criterion string  `json:"criterion"`
	Mandatory bool    `json:"mandatory"`
	Score     float64 `json:"score"`
	Advice    string  `json:"advice"`
}

// Result is the outcome of validating one artifact. A FAILED result is
// a normal terminal state, not an error; it never mutates the artifact.
type Result struct {
	RunID           string           `json:"run_id"`
	ArtifactID      string           `json:"artifact_id"`
	State           State            `json:"state"`
	Aggregate       float64          `json:"aggregate"`
	Threshold       float64          `json:"threshold"`
	Scores          []CriterionScore `json:"scores"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	ValidatedAt     time.Time        `json:"validated_at"`
}

// Passed reports whether the result reached the passing terminal state.
func (r *Result) Passed() bool { return r.State == StatePassed }

func sortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Mandatory != recs[j].Mandatory {
			return recs[i].Mandatory
		}
		if recs[i].Score != recs[j].Score {
			return recs[i].Score < recs[j].Score
		}
		return recs[i].Criterion < recs[j].Criterion
	})
}
