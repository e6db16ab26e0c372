package request_test

import (
	"errors"
	"testing"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
)

func TestParseComplexity(t *testing.T) {
	tests := []struct {
		input string
		want  request.Complexity
	}{
		{"", request.ComplexityStandard},
		{"  ", request.ComplexityStandard},
		{"minimal", request.ComplexityMinimal},
		{"Standard", request.ComplexityStandard},
		{"COMPREHENSIVE", request.ComplexityComprehensive},
		{" expert ", request.ComplexityExpert},
	}
	for _, tt := range tests {
		got, err := request.ParseComplexity(tt.input)
		if err != nil {
			t.Errorf("ParseComplexity(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseComplexity(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseComplexity_Unknown(t *testing.T) {
	_, err := request.ParseComplexity("heroic")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	r := request.ContentRequest{Topic: "CDN caching", Complexity: request.ComplexityStandard}
	if err := r.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	r.Topic = "   "
	if err := r.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank topic, got %v", err)
	}

	r.Topic = "CDN caching"
	r.Complexity = "heroic"
	if err := r.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown complexity, got %v", err)
	}
}

func TestRequirements_PrefersObjectives(t *testing.T) {
	r := request.ContentRequest{
		Topic:      "ignored topic",
		Objectives: []string{"explain invalidation", "compare providers"},
	}
	got := r.Requirements()
	if len(got) != 2 || got[0] != "explain invalidation" {
		t.Fatalf("expected objectives verbatim, got %v", got)
	}
}

func TestRequirements_FallsBackToTopicWords(t *testing.T) {
	r := request.ContentRequest{
		Topic:       "CDN Caching",
		Description: "Edge strategies",
	}
	got := r.Requirements()
	want := []string{"cdn", "caching", "edge", "strategies"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
