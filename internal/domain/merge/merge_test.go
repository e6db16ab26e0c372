package merge_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
)

func contrib(id string, kind agent.Kind, content string, quality float64) contribution.Contribution {
	return contribution.Contribution{
		ID:              id,
		RunID:           "run-1",
		AgentKind:       kind,
		Content:         content,
		QualityEstimate: quality,
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestMerge_EmptyContributionSet(t *testing.T) {
	m := merge.Merge("run-1", "Hydration", "comprehensive", nil, nil, nil)
	if m == nil {
		t.Fatal("expected artifact, got nil")
	}
	if len(m.Sections) == 0 {
		t.Fatal("template sections missing")
	}
	for _, s := range m.Sections {
		if !s.Empty {
			t.Errorf("section %s not marked empty", s.ID)
		}
		if s.Body != "" {
			t.Errorf("empty section %s has body", s.ID)
		}
	}
	if m.EmptySectionCount() != len(m.Sections) {
		t.Errorf("EmptySectionCount %d, want %d", m.EmptySectionCount(), len(m.Sections))
	}
}

func TestMerge_SectionOrderFollowsTemplate(t *testing.T) {
	m := merge.Merge("run-1", "t", "protocol-based", nil, nil, nil)
	want := merge.TemplateSections("protocol-based")
	if len(m.Sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(m.Sections))
	}
	for i, s := range m.Sections {
		if s.ID != want[i] {
			t.Errorf("section[%d] = %s, want %s", i, s.ID, want[i])
		}
	}
}

func TestMerge_UnknownTemplateFallsBack(t *testing.T) {
	m := merge.Merge("run-1", "t", "futuristic", nil, nil, nil)
	want := merge.TemplateSections(merge.DefaultTemplate)
	if len(m.Sections) != len(want) {
		t.Fatalf("expected fallback template with %d sections, got %d", len(want), len(m.Sections))
	}
}

func TestMerge_RoutesByAgentKind(t *testing.T) {
	contribs := []contribution.Contribution{
		contrib("c-r", agent.KindResearch, "Water keeps joints moving", 0.8),
		contrib("c-w", agent.KindWriting, "Drink through the day", 0.9),
	}
	m := merge.Merge("run-1", "Hydration", "comprehensive", contribs, nil, nil)

	var overview, core merge.Section
	for _, s := range m.Sections {
		switch s.ID {
		case "overview":
			overview = s
		case "core-content":
			core = s
		}
	}
	if overview.Empty || !strings.Contains(overview.Body, "Water keeps joints moving") {
		t.Errorf("research did not reach overview: %+v", overview)
	}
	if core.Empty || !strings.Contains(core.Body, "Drink through the day") {
		t.Errorf("writing did not reach core-content: %+v", core)
	}
	// Research also routes to background and evidence-review.
	for _, s := range m.Sections {
		if s.ID == "background" && s.Empty {
			t.Error("research should also feed background")
		}
	}
}

func TestMerge_DropsConflictLosers(t *testing.T) {
	contribs := []contribution.Contribution{
		contrib("c-a", agent.KindWriting, "The product is safe", 0.9),
		contrib("c-b", agent.KindWriting, "The product is unsafe", 0.5),
	}
	resolutions := []conflict.Resolution{{
		ConflictID: "conf-1", WinnerID: "c-a", LoserID: "c-b",
		Strategy: "weighted-consensus",
	}}
	m := merge.Merge("run-1", "t", "concise", contribs, resolutions, nil)

	for _, s := range m.Sections {
		if strings.Contains(s.Body, "unsafe") {
			t.Errorf("losing contribution leaked into %s: %q", s.ID, s.Body)
		}
		for _, src := range s.Sources {
			if src == "c-b" {
				t.Errorf("losing source retained in %s", s.ID)
			}
		}
	}
}

func TestMerge_DeduplicatesPointsPreservingOrder(t *testing.T) {
	contribs := []contribution.Contribution{
		contrib("c-1", agent.KindWriting, "First point. Second point.", 0.8),
		contrib("c-2", agent.KindStructure, "second point. Third point.", 0.8),
	}
	m := merge.Merge("run-1", "t", "concise", contribs, nil, nil)

	var core merge.Section
	for _, s := range m.Sections {
		if s.ID == "core-content" {
			core = s
		}
	}
	lines := strings.Split(core.Body, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 deduplicated points, got %d: %q", len(lines), core.Body)
	}
	if lines[0] != "First point" || lines[1] != "Second point" || lines[2] != "Third point" {
		t.Errorf("order not preserved: %v", lines)
	}
}

func TestMerge_AttributionAndQuality(t *testing.T) {
	contribs := []contribution.Contribution{
		contrib("c-1", agent.KindWriting, "Alpha", 0.5),
		contrib("c-2", agent.KindStructure, "Beta", 1.0),
	}
	m := merge.Merge("run-1", "t", "concise", contribs, nil, nil)

	for _, s := range m.Sections {
		if s.ID != "core-content" {
			continue
		}
		if len(s.Contributors) != 2 {
			t.Errorf("expected 2 contributors, got %v", s.Contributors)
		}
		if s.Quality != 0.75 {
			t.Errorf("expected mean quality 0.75, got %v", s.Quality)
		}
	}
}

func TestMerge_UnroutedKindFoldsIntoLastSection(t *testing.T) {
	// Fact-check has no section in the concise template.
	contribs := []contribution.Contribution{
		contrib("c-f", agent.KindFactCheck, "Claims verified against two registries", 0.9),
	}
	m := merge.Merge("run-1", "t", "concise", contribs, nil, nil)

	last := m.Sections[len(m.Sections)-1]
	if last.Empty || !strings.Contains(last.Body, "Claims verified") {
		t.Errorf("unrouted contribution lost: %+v", last)
	}
	if !containsKind(last.Contributors, agent.KindFactCheck) {
		t.Errorf("attribution lost for folded contribution: %v", last.Contributors)
	}
}

func TestMerge_CrossReferencesShareContributors(t *testing.T) {
	contribs := []contribution.Contribution{
		contrib("c-r", agent.KindResearch, "Shared research baseline", 0.8),
	}
	m := merge.Merge("run-1", "t", "comprehensive", contribs, nil, nil)

	// Research feeds overview, background and evidence-review: all three
	// must link to each other.
	links := m.CrossRefs["overview"]
	if !containsString(links, "background") || !containsString(links, "evidence-review") {
		t.Errorf("overview links incomplete: %v", links)
	}
	if !containsString(m.CrossRefs["background"], "overview") {
		t.Error("cross-references are not bidirectional")
	}
}

func TestMerge_CoherenceThreads(t *testing.T) {
	base := "Hydration schedules matter. Hydration improves recovery. Hydration supports focus"
	contribs := []contribution.Contribution{
		contrib("c-r", agent.KindResearch, base, 0.8),
		contrib("c-w", agent.KindWriting, "Hydration routines fit training blocks", 0.8),
	}
	m := merge.Merge("run-1", "t", "concise", contribs, nil, nil)

	var found *merge.Thread
	for i := range m.Metadata.Threads {
		if m.Metadata.Threads[i].Term == "hydration" {
			found = &m.Metadata.Threads[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a hydration thread, got %+v", m.Metadata.Threads)
	}
	if len(found.Sections) < 2 {
		t.Errorf("thread must span at least two sections: %+v", found)
	}
}

func TestMerge_MetadataDoesNotAlterBodies(t *testing.T) {
	contribs := []contribution.Contribution{
		contrib("c-w", agent.KindWriting, "Hydration matters. Hydration helps. Hydration wins", 0.8),
		contrib("c-r", agent.KindResearch, "Hydration research baseline", 0.8),
	}
	m := merge.Merge("run-1", "t", "concise", contribs, nil, nil)
	for _, s := range m.Sections {
		if strings.Contains(s.Body, "follow \"") {
			t.Errorf("metadata leaked into section body: %q", s.Body)
		}
	}
}

func TestMerge_CarriesExecutionGaps(t *testing.T) {
	gaps := []contribution.Gap{{UnitID: "u-1", AgentKind: agent.KindSEO, Phase: 2, Reason: "retries exhausted"}}
	m := merge.Merge("run-1", "t", "concise", nil, nil, gaps)
	if len(m.Gaps) != 1 || m.Gaps[0].AgentKind != agent.KindSEO {
		t.Errorf("execution gaps not carried: %+v", m.Gaps)
	}
}

func containsKind(kinds []agent.Kind, want agent.Kind) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
