// Package request defines the ContentRequest domain entity.
package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain"
)

// Complexity grades how deep a content run should go.
type Complexity string

const (
	ComplexityMinimal       Complexity = "minimal"
	ComplexityStandard      Complexity = "standard"
	ComplexityComprehensive Complexity = "comprehensive"
	ComplexityExpert        Complexity = "expert"
)

// ParseComplexity converts user input to a Complexity, case-insensitively.
// Empty input defaults to standard.
func ParseComplexity(s string) (Complexity, error) {
	switch Complexity(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ComplexityStandard, nil
	case ComplexityMinimal:
		return ComplexityMinimal, nil
	case ComplexityStandard:
		return ComplexityStandard, nil
	case ComplexityComprehensive:
		return ComplexityComprehensive, nil
	case ComplexityExpert:
		return ComplexityExpert, nil
	}
	return "", fmt.Errorf("unknown complexity %q: %w", s, domain.ErrValidation)
}

// Valid reports whether c is a known complexity grade.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityMinimal, ComplexityStandard, ComplexityComprehensive, ComplexityExpert:
		return true
	}
	return false
}

// ContentRequest describes one piece of content to produce.
type ContentRequest struct {
	ID          string            `json:"id"`
	ContentType string            `json:"content_type"`
	Topic       string            `json:"topic"`
	Description string            `json:"description,omitempty"`
	Domain      string            `json:"domain,omitempty"`
	Complexity  Complexity        `json:"complexity"`
	Audience    string            `json:"audience,omitempty"`
	Objectives  []string          `json:"objectives,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	AgentKinds  []string          `json:"agent_kinds,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Validate checks the request fields that cannot be defaulted.
func (r ContentRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("topic is required: %w", domain.ErrValidation)
	}
	if !r.Complexity.Valid() {
		return fmt.Errorf("unknown complexity %q: %w", r.Complexity, domain.ErrValidation)
	}
	return nil
}

// Requirements returns the term set used for domain inference: the
// stated objectives when present, otherwise the words of the topic and
// description.
func (r ContentRequest) Requirements() []string {
	if len(r.Objectives) > 0 {
		return r.Objectives
	}
	return strings.Fields(strings.ToLower(r.Topic + " " + r.Description))
}
