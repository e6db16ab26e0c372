// Package agent defines the specialist agent capability catalog.
package agent

import (
	"errors"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
)

// ErrUnknownAgent indicates a kind absent from the catalog.
var ErrUnknownAgent = errors.New("unknown agent kind")

// Kind identifies an agent specialty.
type Kind string

const (
	KindResearch      Kind = "research"
	KindStructure     Kind = "structure"
	KindWriting       Kind = "writing"
	KindSEO           Kind = "seo"
	KindMeta          Kind = "meta"
	KindQuality       Kind = "quality"
	KindIntegration   Kind = "integration"
	KindSeniorReview  Kind = "senior-review"
	KindFactCheck     Kind = "fact-check"
	KindCitation      Kind = "citation"
	KindAccessibility Kind = "accessibility"
	KindLocalization  Kind = "localization"
)

// Definition describes one agent specialty: what it does, what it needs
// finished before it starts, and how many instances may run at once.
type Definition struct {
	Kind               Kind                                 `json:"kind"`
	DisplayName        string                               `json:"display_name"`
	Role               string                               `json:"role"`
	Capabilities       []string                             `json:"capabilities"`
	DependsOn          []Kind                               `json:"depends_on,omitempty"`
	ConcurrencyCeiling int                                  `json:"concurrency_ceiling"`
	EstimatedDuration  map[request.Complexity]time.Duration `json:"estimated_duration,omitempty"`
}

// Estimate returns the expected duration for the given complexity,
// falling back to the standard estimate, then to a fixed default.
func (d Definition) Estimate(c request.Complexity) time.Duration {
	if dur, ok := d.EstimatedDuration[c]; ok {
		return dur
	}
	if dur, ok := d.EstimatedDuration[request.ComplexityStandard]; ok {
		return dur
	}
	return 60 * time.Second
}
