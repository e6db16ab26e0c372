package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
)

// DefaultCrossCuttingWeight is the weight each cross-cutting criterion
// carries in the aggregate unless configured otherwise.
const DefaultCrossCuttingWeight = 0.1

// crossCuttingNames are scored on every run regardless of the domain
// profile's declared criteria.
var crossCuttingNames = []string{"coherence", "completeness", "accessibility"}

// Validator scores merged artifacts against domain profiles.
type Validator struct {
	registry       *Registry
	crossCutWeight float64
	now            func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithCrossCuttingWeight overrides the weight of the always-on
// coherence, completeness and accessibility checks.
func WithCrossCuttingWeight(w float64) Option {
	return func(v *Validator) {
		if w > 0 {
			v.crossCutWeight = w
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator builds a validator over the given scorer registry. A nil
// registry gets the built-in defaults.
func NewValidator(reg *Registry, opts ...Option) *Validator {
	if reg == nil {
		reg = DefaultRegistry()
	}
	v := &Validator{
		registry:       reg,
		crossCutWeight: DefaultCrossCuttingWeight,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate scores the artifact against every criterion the profile
// declares plus the cross-cutting checks, and decides the terminal
// state. A mandatory criterion below its sub-threshold forces FAILED no
// matter how high the aggregate lands. The artifact is never modified.
func (v *Validator) Validate(ctx context.Context, runID string, m *merge.MergedContent, p profile.Profile) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil artifact", domain.ErrValidation)
	}
	res := &Result{
		RunID:      runID,
		ArtifactID: m.ID,
		State:      StateScoring,
		Threshold:  p.QualityThreshold,
	}

	criteria := make([]profile.Criterion, 0, len(p.Criteria)+len(crossCuttingNames))
	criteria = append(criteria, p.Criteria...)
	cross := make(map[string]bool, len(crossCuttingNames))
	for _, name := range crossCuttingNames {
		if p.HasCriterion(name) {
			continue
		}
		cross[name] = true
		criteria = append(criteria, profile.Criterion{Name: name, Weight: v.crossCutWeight})
	}

	var weightedSum, weightTotal float64
	mandatoryOK := true
	for _, c := range criteria {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score, scored := v.score(ctx, m, c)
		sub := c.SubThreshold
		if sub <= 0 {
			sub = p.QualityThreshold
		}
		cs := CriterionScore{
			Name:         c.Name,
			Score:        score,
			Weight:       c.Weight,
			SubThreshold: sub,
			Passed:       score >= sub,
			Mandatory:    c.Mandatory,
			Scored:       scored,
			CrossCutting: cross[c.Name],
		}
		res.Scores = append(res.Scores, cs)
		weightedSum += score * c.Weight
		weightTotal += c.Weight
		if c.Mandatory && !cs.Passed {
			mandatoryOK = false
		}
		if !cs.Passed {
			res.Recommendations = append(res.Recommendations, Recommendation{
				Criterion: c.Name,
				Mandatory: c.Mandatory,
				Score:     score,
				Advice:    adviceFor(c.Name, score, sub),
			})
		}
	}
	if weightTotal > 0 {
		res.Aggregate = weightedSum / weightTotal
	}
	sortRecommendations(res.Recommendations)

	if mandatoryOK && res.Aggregate >= p.QualityThreshold {
		res.State = StatePassed
	} else {
		res.State = StateFailed
	}
	res.ValidatedAt = v.now().UTC()
	return res, nil
}

// score runs the registered scorer for the criterion, falling back to
// NeutralScore when none is bound or the scorer errors.
func (v *Validator) score(ctx context.Context, m *merge.MergedContent, c profile.Criterion) (float64, bool) {
	s, ok := v.registry.Lookup(c.Name)
	if !ok {
		return NeutralScore, false
	}
	score, err := s.Score(ctx, m, c)
	if err != nil {
		return NeutralScore, false
	}
	return clampScore(score), true
}

func adviceFor(name string, score, sub float64) string {
	base := fmt.Sprintf("%s scored %.2f against a %.2f threshold", name, score, sub)
	switch name {
	case "accuracy", "evidence":
		return base + "; back claims with cited studies, data or standards"
	case "safety-assessment":
		return base + "; address flagged risk terms with explicit mitigations"
	case "ethical-compliance":
		return base + "; remove consent or attribution violations"
	case "clarity", "accessibility":
		return base + "; shorten sentences and simplify phrasing"
	case "completeness":
		return base + "; fill empty sections and close execution gaps"
	case "coherence":
		return base + "; connect sections with shared terminology"
	case "progression":
		return base + "; fill gaps between populated sections"
	case "engagement":
		return base + "; add direct address, examples or exercises"
	case "precision":
		return base + "; replace hedging language with concrete statements"
	default:
		return base
	}
}
