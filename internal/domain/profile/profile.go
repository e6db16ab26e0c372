// Package profile defines domain profiles: per-domain agent shortlists,
// quality criteria, integration strategy and validation thresholds.
package profile

import (
	"errors"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
)

// ErrUnknownProfile indicates a profile name absent from the catalog.
// Only Get returns it; Resolve falls back to the general profile instead.
var ErrUnknownProfile = errors.New("unknown domain profile")

// GeneralName is the fallback profile used when resolution or inference
// finds no match.
const GeneralName = "general"

// Criterion is one weighted quality dimension a finished artifact is
// scored on. Mandatory criteria must individually clear their
// sub-threshold regardless of the aggregate.
type Criterion struct {
	Name         string  `json:"name" yaml:"name"`
	Weight       float64 `json:"weight" yaml:"weight"`
	Mandatory    bool    `json:"mandatory" yaml:"mandatory"`
	SubThreshold float64 `json:"sub_threshold,omitempty" yaml:"sub_threshold"`
	Description  string  `json:"description,omitempty" yaml:"description"`
}

// Integration names the domain's output template and the conflict
// resolution strategy applied once per run.
type Integration struct {
	Template string `json:"template" yaml:"template"`
	Strategy string `json:"strategy" yaml:"strategy"`
}

// Profile describes how one content domain is produced and judged.
type Profile struct {
	Name             string                 `json:"name" yaml:"name"`
	Description      string                 `json:"description" yaml:"description"`
	RequiredCriteria []string               `json:"required_criteria,omitempty" yaml:"required_criteria"`
	Criteria         []Criterion            `json:"criteria" yaml:"criteria"`
	QualityThreshold float64                `json:"quality_threshold" yaml:"quality_threshold"`
	PreferredAgents  []agent.Kind           `json:"preferred_agents" yaml:"preferred_agents"`
	Approaches       []string               `json:"approaches,omitempty" yaml:"approaches"`
	Specializations  map[string][]string    `json:"specializations,omitempty" yaml:"specializations"`
	ExpertHierarchy  []agent.Kind           `json:"expert_hierarchy,omitempty" yaml:"expert_hierarchy"`
	Expertise        map[agent.Kind]float64 `json:"expertise,omitempty" yaml:"expertise"`
	Integration      Integration            `json:"integration" yaml:"integration"`
	ReviewCycles     int                    `json:"review_cycles" yaml:"review_cycles"`
}

// HasCriterion reports whether the profile's validation list names the
// given criterion.
func (p Profile) HasCriterion(name string) bool {
	for _, c := range p.Criteria {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ExpertiseOf returns the domain expertise multiplier for kind,
// defaulting to 1.0 when none is configured.
func (p Profile) ExpertiseOf(kind agent.Kind) float64 {
	if m, ok := p.Expertise[kind]; ok {
		return m
	}
	return 1.0
}

// matchTerms returns the union of required criteria, approaches and
// specialization terms used by domain inference.
func (p Profile) matchTerms() map[string]struct{} {
	terms := make(map[string]struct{})
	for _, s := range p.RequiredCriteria {
		terms[normalizeTerm(s)] = struct{}{}
	}
	for _, s := range p.Approaches {
		terms[normalizeTerm(s)] = struct{}{}
	}
	for _, group := range p.Specializations {
		for _, s := range group {
			terms[normalizeTerm(s)] = struct{}{}
		}
	}
	delete(terms, "")
	return terms
}
