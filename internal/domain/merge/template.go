package merge

import "github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"

// DefaultTemplate is the fallback when a profile names no template or an
// unknown one.
const DefaultTemplate = "comprehensive"

// sectionTitles maps section identifiers to display titles.
var sectionTitles = map[string]string{
	"overview":              "Overview",
	"background":            "Background",
	"core-content":          "Core Content",
	"practical-guidance":    "Practical Guidance",
	"safety-considerations": "Safety Considerations",
	"evidence-review":       "Evidence Review",
	"learning-objectives":   "Learning Objectives",
	"exercises":             "Exercises",
	"assessment":            "Assessment",
	"implementation":        "Implementation",
	"reference-material":    "Reference Material",
	"summary":               "Summary",
	"metadata":              "Metadata",
}

// sectionAgents routes agent kinds to sections. A contribution feeds
// every section listing its kind.
var sectionAgents = map[string][]agent.Kind{
	"overview":              {agent.KindResearch, agent.KindMeta},
	"background":            {agent.KindResearch, agent.KindCitation},
	"core-content":          {agent.KindWriting, agent.KindStructure, agent.KindLocalization},
	"practical-guidance":    {agent.KindWriting, agent.KindIntegration},
	"safety-considerations": {agent.KindFactCheck, agent.KindQuality},
	"evidence-review":       {agent.KindFactCheck, agent.KindResearch, agent.KindCitation},
	"learning-objectives":   {agent.KindStructure, agent.KindAccessibility},
	"exercises":             {agent.KindWriting, agent.KindAccessibility},
	"assessment":            {agent.KindQuality, agent.KindAccessibility},
	"implementation":        {agent.KindWriting, agent.KindIntegration},
	"reference-material":    {agent.KindCitation, agent.KindSEO},
	"summary":               {agent.KindMeta, agent.KindWriting, agent.KindSeniorReview},
	"metadata":              {agent.KindMeta, agent.KindSEO},
}

// templates names the ordered section lists a profile can select.
var templates = map[string][]string{
	"comprehensive": {
		"overview", "background", "core-content", "practical-guidance",
		"evidence-review", "summary", "metadata",
	},
	"protocol-based": {
		"overview", "evidence-review", "core-content", "safety-considerations",
		"implementation", "reference-material", "summary",
	},
	"educational-pathway": {
		"learning-objectives", "overview", "core-content", "exercises",
		"assessment", "summary",
	},
	"concise": {
		"overview", "core-content", "summary",
	},
}

// TemplateSections returns the section identifiers of the named
// template, falling back to the comprehensive template for unknown
// names.
func TemplateSections(name string) []string {
	ids, ok := templates[name]
	if !ok {
		ids = templates[DefaultTemplate]
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// TemplateNames returns the known template names.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for n := range templates {
		names = append(names, n)
	}
	return names
}

// agentsFor returns the kinds routed to a section identifier.
func agentsFor(sectionID string) []agent.Kind {
	return sectionAgents[sectionID]
}

func titleFor(sectionID string) string {
	if t, ok := sectionTitles[sectionID]; ok {
		return t
	}
	return sectionID
}
