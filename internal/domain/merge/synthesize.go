package merge

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
)

// Merge assembles the post-resolution contributions into the named
// template's section structure. Conflict losers leave the working set
// first; a contribution then feeds every section routing its kind, and
// kinds no template section routes fold into the final section so no
// surviving content is dropped. An empty input yields a fully-empty
// artifact, never an error.
func Merge(runID, title, template string, contribs []contribution.Contribution, resolutions []conflict.Resolution, gaps []contribution.Gap) *MergedContent {
	working := dropLosers(contribs, resolutions)

	sectionIDs := TemplateSections(template)
	routed := make(map[string]struct{}, len(working))

	m := &MergedContent{
		ID:        uuid.New().String(),
		RunID:     runID,
		Title:     title,
		Template:  template,
		Gaps:      gaps,
		CreatedAt: time.Now().UTC(),
	}

	for _, id := range sectionIDs {
		kinds := agentsFor(id)
		var parts []contribution.Contribution
		for _, c := range working {
			if kindIn(kinds, c.AgentKind) {
				parts = append(parts, c)
				routed[c.ID] = struct{}{}
			}
		}
		m.Sections = append(m.Sections, buildSection(id, parts))
	}

	// Fold unrouted survivors into the last section, keeping attribution.
	if len(m.Sections) > 0 {
		var leftovers []contribution.Contribution
		for _, c := range working {
			if _, ok := routed[c.ID]; !ok {
				leftovers = append(leftovers, c)
			}
		}
		if len(leftovers) > 0 {
			last := &m.Sections[len(m.Sections)-1]
			rebuilt := buildSection(last.ID, append(sectionContribs(working, last), leftovers...))
			*last = rebuilt
		}
	}

	m.CrossRefs = crossReferences(m.Sections)
	m.Metadata = buildMetadata(m.Sections)
	return m
}

// dropLosers removes every resolution's losing contribution from the
// working set. Both originals stay in the audit trail upstream.
func dropLosers(contribs []contribution.Contribution, resolutions []conflict.Resolution) []contribution.Contribution {
	lost := make(map[string]struct{}, len(resolutions))
	for _, r := range resolutions {
		lost[r.LoserID] = struct{}{}
	}
	out := make([]contribution.Contribution, 0, len(contribs))
	for _, c := range contribs {
		if _, dropped := lost[c.ID]; dropped {
			continue
		}
		out = append(out, c)
	}
	return out
}

func buildSection(id string, parts []contribution.Contribution) Section {
	s := Section{ID: id, Title: titleFor(id)}
	if len(parts) == 0 {
		s.Empty = true
		return s
	}

	var points []string
	seen := make(map[string]struct{})
	var quality float64
	for _, c := range parts {
		s.Sources = append(s.Sources, c.ID)
		if !kindIn(s.Contributors, c.AgentKind) {
			s.Contributors = append(s.Contributors, c.AgentKind)
		}
		quality += c.QualityEstimate
		for _, p := range mainPoints(c.Content) {
			key := strings.ToLower(p)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			points = append(points, p)
		}
	}
	s.Body = strings.Join(points, "\n")
	s.Quality = quality / float64(len(parts))
	return s
}

// sectionContribs re-collects the contributions already routed to a
// section, preserving input order.
func sectionContribs(working []contribution.Contribution, s *Section) []contribution.Contribution {
	ids := make(map[string]struct{}, len(s.Sources))
	for _, id := range s.Sources {
		ids[id] = struct{}{}
	}
	var out []contribution.Contribution
	for _, c := range working {
		if _, ok := ids[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// mainPoints splits a contribution body into sentence- or line-level
// points for order-preserving de-duplication.
func mainPoints(content string) []string {
	var points []string
	for _, line := range strings.Split(content, "\n") {
		for _, sentence := range strings.Split(line, ". ") {
			p := strings.TrimSpace(strings.TrimSuffix(sentence, "."))
			p = strings.TrimPrefix(p, "- ")
			p = strings.TrimPrefix(p, "* ")
			if p != "" {
				points = append(points, p)
			}
		}
	}
	return points
}

func kindIn(kinds []agent.Kind, k agent.Kind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

func splitWords(s string) []string {
	return strings.Fields(s)
}
