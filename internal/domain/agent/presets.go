package agent

import (
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
)

func durations(minimal, standard, comprehensive, expert time.Duration) map[request.Complexity]time.Duration {
	return map[request.Complexity]time.Duration{
		request.ComplexityMinimal:       minimal,
		request.ComplexityStandard:      standard,
		request.ComplexityComprehensive: comprehensive,
		request.ComplexityExpert:        expert,
	}
}

// Defaults returns the built-in agent catalog. The set always validates;
// a failure here is a programming error.
func Defaults() *Catalog {
	c, err := NewCatalog(
		Definition{
			Kind:               KindResearch,
			DisplayName:        "Research Agent",
			Role:               "gathers source material and background facts for the topic",
			Capabilities:       []string{"topic-research", "source-discovery", "fact-gathering"},
			ConcurrencyCeiling: 3,
			EstimatedDuration:  durations(30*time.Second, 60*time.Second, 120*time.Second, 180*time.Second),
		},
		Definition{
			Kind:               KindFactCheck,
			DisplayName:        "Fact Check Agent",
			Role:               "verifies claims in gathered material against the evidence",
			Capabilities:       []string{"claim-verification", "evidence-scoring"},
			DependsOn:          []Kind{KindResearch},
			ConcurrencyCeiling: 2,
			EstimatedDuration:  durations(20*time.Second, 45*time.Second, 90*time.Second, 150*time.Second),
		},
		Definition{
			Kind:               KindCitation,
			DisplayName:        "Citation Agent",
			Role:               "formats and attributes sources for the gathered material",
			Capabilities:       []string{"citation-formatting", "source-attribution"},
			DependsOn:          []Kind{KindResearch},
			ConcurrencyCeiling: 2,
			EstimatedDuration:  durations(15*time.Second, 30*time.Second, 60*time.Second, 90*time.Second),
		},
		Definition{
			Kind:               KindStructure,
			DisplayName:        "Structure Agent",
			Role:               "designs the outline and section flow of the artifact",
			Capabilities:       []string{"outline-design", "section-planning"},
			DependsOn:          []Kind{KindResearch},
			ConcurrencyCeiling: 2,
			EstimatedDuration:  durations(20*time.Second, 40*time.Second, 80*time.Second, 120*time.Second),
		},
		Definition{
			Kind:               KindWriting,
			DisplayName:        "Writing Agent",
			Role:               "drafts the body content section by section",
			Capabilities:       []string{"drafting", "tone-control", "narrative-flow"},
			DependsOn:          []Kind{KindStructure},
			ConcurrencyCeiling: 4,
			EstimatedDuration:  durations(45*time.Second, 90*time.Second, 180*time.Second, 300*time.Second),
		},
		Definition{
			Kind:               KindSEO,
			DisplayName:        "SEO Agent",
			Role:               "tunes headings, keywords and structure for discoverability",
			Capabilities:       []string{"keyword-analysis", "heading-optimization"},
			DependsOn:          []Kind{KindWriting},
			ConcurrencyCeiling: 2,
			EstimatedDuration:  durations(15*time.Second, 30*time.Second, 60*time.Second, 90*time.Second),
		},
		Definition{
			Kind:               KindMeta,
			DisplayName:        "Metadata Agent",
			Role:               "produces titles, summaries and descriptive metadata",
			Capabilities:       []string{"title-generation", "summary-generation"},
			DependsOn:          []Kind{KindWriting},
			ConcurrencyCeiling: 2,
			EstimatedDuration:  durations(10*time.Second, 20*time.Second, 40*time.Second, 60*time.Second),
		},
		Definition{
			Kind:               KindAccessibility,
			DisplayName:        "Accessibility Agent",
			Role:               "adjusts language level and structure for the stated audience",
			Capabilities:       []string{"readability-tuning", "plain-language"},
			DependsOn:          []Kind{KindWriting},
			ConcurrencyCeiling: 2,
			EstimatedDuration:  durations(15*time.Second, 30*time.Second, 60*time.Second, 90*time.Second),
		},
		Definition{
			Kind:               KindLocalization,
			DisplayName:        "Localization Agent",
			Role:               "adapts idiom and examples to the target locale",
			Capabilities:       []string{"locale-adaptation", "idiom-replacement"},
			DependsOn:          []Kind{KindWriting},
			ConcurrencyCeiling: 2,
			EstimatedDuration:  durations(20*time.Second, 40*time.Second, 80*time.Second, 120*time.Second),
		},
		Definition{
			Kind:               KindQuality,
			DisplayName:        "Quality Agent",
			Role:               "reviews the draft against the domain quality criteria",
			Capabilities:       []string{"criteria-review", "consistency-check"},
			DependsOn:          []Kind{KindWriting, KindFactCheck},
			ConcurrencyCeiling: 2,
			EstimatedDuration:  durations(20*time.Second, 45*time.Second, 90*time.Second, 150*time.Second),
		},
		Definition{
			Kind:               KindIntegration,
			DisplayName:        "Integration Agent",
			Role:               "smooths seams between sections produced by different agents",
			Capabilities:       []string{"transition-writing", "terminology-alignment"},
			DependsOn:          []Kind{KindWriting},
			ConcurrencyCeiling: 1,
			EstimatedDuration:  durations(20*time.Second, 40*time.Second, 80*time.Second, 120*time.Second),
		},
		Definition{
			Kind:               KindSeniorReview,
			DisplayName:        "Senior Review Agent",
			Role:               "performs the final expert pass before sign-off",
			Capabilities:       []string{"expert-review", "sign-off"},
			DependsOn:          []Kind{KindQuality},
			ConcurrencyCeiling: 1,
			EstimatedDuration:  durations(30*time.Second, 60*time.Second, 120*time.Second, 240*time.Second),
		},
	)
	if err != nil {
		panic("agent: invalid default catalog: " + err.Error())
	}
	return c
}
