package profile

import (
	"fmt"
	"strings"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
)

// Catalog is an immutable set of domain profiles in registration order.
// The general profile is the resolution fallback and must be present.
type Catalog struct {
	ordered []Profile
	index   map[string]int
}

// NewCatalog builds a catalog from the given profiles. Registration order
// is preserved for inference tie-breaking. Names are stored lowercased;
// duplicates, invalid thresholds and a missing general profile are
// rejected.
func NewCatalog(profiles ...Profile) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(profiles))}
	for _, p := range profiles {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return nil, fmt.Errorf("profile with empty name")
		}
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("duplicate profile %q", name)
		}
		if p.QualityThreshold <= 0 || p.QualityThreshold > 1 {
			return nil, fmt.Errorf("profile %q: quality threshold must be in (0,1], got %v", name, p.QualityThreshold)
		}
		for _, cr := range p.Criteria {
			if cr.Weight <= 0 {
				return nil, fmt.Errorf("profile %q: criterion %q weight must be > 0", name, cr.Name)
			}
			if cr.SubThreshold < 0 || cr.SubThreshold > 1 {
				return nil, fmt.Errorf("profile %q: criterion %q sub-threshold must be in [0,1]", name, cr.Name)
			}
		}
		p.Name = name
		c.index[name] = len(c.ordered)
		c.ordered = append(c.ordered, p)
	}
	if _, ok := c.index[GeneralName]; !ok {
		return nil, fmt.Errorf("catalog missing the %q profile", GeneralName)
	}
	return c, nil
}

// Resolve returns the profile with the given name, case-insensitively,
// falling back to the general profile when the name is unknown. It never
// fails.
func (c *Catalog) Resolve(name string) Profile {
	if i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c.ordered[i]
	}
	return c.General()
}

// Get returns the profile with the given name, or ErrUnknownProfile.
// Unlike Resolve it does not fall back.
func (c *Catalog) Get(name string) (Profile, error) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("%q: %w", name, ErrUnknownProfile)
	}
	return c.ordered[i], nil
}

// General returns the fallback profile.
func (c *Catalog) General() Profile {
	return c.ordered[c.index[GeneralName]]
}

// Names returns all profile names in registration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.ordered))
	for i, p := range c.ordered {
		names[i] = p.Name
	}
	return names
}

// Profiles returns all profiles in registration order.
func (c *Catalog) Profiles() []Profile {
	out := make([]Profile, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// InferDomain matches a free-form requirement set against every
// profile's required criteria, approaches and specialization terms.
// Confidence is the fraction of requirements matched. The earliest
// registered profile wins ties; an empty or unmatched set returns the
// general profile with confidence 0.
func (c *Catalog) InferDomain(requirements []string) (Profile, float64) {
	normalized := make([]string, 0, len(requirements))
	for _, r := range requirements {
		if t := normalizeTerm(r); t != "" {
			normalized = append(normalized, t)
		}
	}
	if len(normalized) == 0 {
		return c.General(), 0
	}

	best := c.General()
	bestConfidence := 0.0
	for _, p := range c.ordered {
		terms := p.matchTerms()
		matched := 0
		for _, r := range normalized {
			if _, ok := terms[r]; ok {
				matched++
			}
		}
		confidence := float64(matched) / float64(len(normalized))
		if confidence > bestConfidence {
			best = p
			bestConfidence = confidence
		}
	}
	return best, bestConfidence
}

// RecommendAgents returns the agent team for the named domain adjusted
// by the requested complexity. A pure function of the shortlist and the
// tier; the profile's own slice is never modified.
//
//	minimal        first three preferred agents
//	standard       preferred agents unchanged
//	comprehensive  preferred agents plus integration
//	expert         comprehensive plus senior review
func (c *Catalog) RecommendAgents(domain string, tier request.Complexity) []agent.Kind {
	return RecommendAgents(c.Resolve(domain), tier)
}

// RecommendAgents applies the complexity transform to the profile's
// preferred agent shortlist.
func RecommendAgents(p Profile, tier request.Complexity) []agent.Kind {
	team := make([]agent.Kind, len(p.PreferredAgents))
	copy(team, p.PreferredAgents)

	switch tier {
	case request.ComplexityMinimal:
		if len(team) > 3 {
			team = team[:3]
		}
	case request.ComplexityComprehensive:
		team = appendMissing(team, agent.KindIntegration)
	case request.ComplexityExpert:
		team = appendMissing(team, agent.KindIntegration)
		team = appendMissing(team, agent.KindSeniorReview)
	}
	return team
}

func appendMissing(team []agent.Kind, kind agent.Kind) []agent.Kind {
	for _, k := range team {
		if k == kind {
			return team
		}
	}
	return append(team, kind)
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
