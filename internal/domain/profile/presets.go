package profile

import "github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"

// Defaults returns the built-in profile catalog. Registration order
// matters for inference tie-breaking. The set always validates; a
// failure here is a programming error.
func Defaults() *Catalog {
	c, err := NewCatalog(
		Profile{
			Name:             "clinical",
			Description:      "patient-facing and practitioner medical content",
			RequiredCriteria: []string{"accuracy", "safety-assessment", "ethical-compliance", "evidence"},
			Criteria: []Criterion{
				{Name: "accuracy", Weight: 0.25, Mandatory: true, Description: "claims match the cited evidence"},
				{Name: "safety-assessment", Weight: 0.25, Mandatory: true, Description: "no harmful or contraindicated guidance"},
				{Name: "ethical-compliance", Weight: 0.15, Mandatory: true, Description: "consent, privacy and scope respected"},
				{Name: "evidence", Weight: 0.20, Description: "claims carry sources"},
				{Name: "clarity", Weight: 0.15, Description: "understandable to the stated audience"},
			},
			QualityThreshold: 0.90,
			PreferredAgents: []agent.Kind{
				agent.KindResearch, agent.KindFactCheck, agent.KindCitation,
				agent.KindStructure, agent.KindWriting, agent.KindQuality,
			},
			Approaches: []string{"evidence-based", "protocol-driven", "peer-reviewed"},
			Specializations: map[string][]string{
				"medicine": {"patient", "clinical", "diagnosis", "treatment", "symptom", "dosage", "therapy", "contraindication"},
				"safety":   {"safety", "adverse", "risk", "interaction"},
			},
			ExpertHierarchy: []agent.Kind{
				agent.KindSeniorReview, agent.KindQuality, agent.KindFactCheck,
				agent.KindResearch, agent.KindCitation, agent.KindWriting,
			},
			Expertise: map[agent.Kind]float64{
				agent.KindFactCheck:    1.5,
				agent.KindQuality:      1.3,
				agent.KindSeniorReview: 1.6,
			},
			Integration:  Integration{Template: "protocol-based", Strategy: "expert-hierarchy"},
			ReviewCycles: 3,
		},
		Profile{
			Name:             "educational",
			Description:      "lessons, courses and learning material",
			RequiredCriteria: []string{"clarity", "engagement", "progression"},
			Criteria: []Criterion{
				{Name: "clarity", Weight: 0.30, Mandatory: true, Description: "matches the learner level"},
				{Name: "engagement", Weight: 0.25, Description: "keeps the learner involved"},
				{Name: "accuracy", Weight: 0.25, Description: "content is factually sound"},
				{Name: "progression", Weight: 0.20, Description: "concepts build in order"},
			},
			QualityThreshold: 0.80,
			PreferredAgents: []agent.Kind{
				agent.KindResearch, agent.KindStructure, agent.KindWriting,
				agent.KindAccessibility, agent.KindQuality,
			},
			Approaches: []string{"scaffolded", "learner-centered", "example-driven"},
			Specializations: map[string][]string{
				"pedagogy": {"student", "lesson", "curriculum", "learning", "course", "classroom", "quiz", "learner"},
			},
			ExpertHierarchy: []agent.Kind{
				agent.KindQuality, agent.KindAccessibility, agent.KindWriting, agent.KindResearch,
			},
			Expertise: map[agent.Kind]float64{
				agent.KindAccessibility: 1.4,
			},
			Integration:  Integration{Template: "educational-pathway", Strategy: "stakeholder-alignment"},
			ReviewCycles: 2,
		},
		Profile{
			Name:             "technical",
			Description:      "developer and operations documentation",
			RequiredCriteria: []string{"accuracy", "precision", "depth"},
			Criteria: []Criterion{
				{Name: "accuracy", Weight: 0.35, Mandatory: true, Description: "commands and examples work as written"},
				{Name: "precision", Weight: 0.25, Description: "unambiguous statements"},
				{Name: "depth", Weight: 0.20, Description: "covers edge cases and failure modes"},
				{Name: "clarity", Weight: 0.20, Description: "readable by the target engineer"},
			},
			QualityThreshold: 0.85,
			PreferredAgents: []agent.Kind{
				agent.KindResearch, agent.KindStructure, agent.KindWriting,
				agent.KindFactCheck, agent.KindSEO, agent.KindQuality,
			},
			Approaches: []string{"reference-style", "example-first", "spec-driven"},
			Specializations: map[string][]string{
				"software": {"api", "architecture", "deployment", "code", "protocol", "configuration", "infrastructure", "database", "latency"},
			},
			ExpertHierarchy: []agent.Kind{
				agent.KindFactCheck, agent.KindQuality, agent.KindResearch, agent.KindWriting,
			},
			Expertise: map[agent.Kind]float64{
				agent.KindFactCheck: 1.4,
			},
			Integration:  Integration{Template: "comprehensive", Strategy: "evidence-priority"},
			ReviewCycles: 2,
		},
		Profile{
			Name:             GeneralName,
			Description:      "general-purpose content with no specialist domain",
			RequiredCriteria: []string{"clarity", "accuracy"},
			Criteria: []Criterion{
				{Name: "clarity", Weight: 0.40, Description: "plain, direct writing"},
				{Name: "accuracy", Weight: 0.35, Description: "no unsupported claims"},
				{Name: "engagement", Weight: 0.25, Description: "holds the reader"},
			},
			QualityThreshold: 0.70,
			PreferredAgents: []agent.Kind{
				agent.KindResearch, agent.KindStructure, agent.KindWriting, agent.KindMeta,
			},
			Integration:  Integration{Template: "comprehensive", Strategy: "weighted-consensus"},
			ReviewCycles: 1,
		},
	)
	if err != nil {
		panic("profile: invalid default catalog: " + err.Error())
	}
	return c
}
