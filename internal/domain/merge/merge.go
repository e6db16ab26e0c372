// Package merge assembles resolved contributions into a template-defined
// section structure with cross-references and coherence metadata.
package merge

import (
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
)

// Section is one assembled part of the artifact. Body synthesis keeps
// the distinct points of every routed contribution in first-seen order.
type Section struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Body         string       `json:"body"`
	Contributors []agent.Kind `json:"contributors,omitempty"`
	Sources      []string     `json:"sources,omitempty"`
	Quality      float64      `json:"quality"`
	Empty        bool         `json:"empty"`
}

// Thread marks a significant term recurring across sections. Threads
// annotate; they never alter section content.
type Thread struct {
	Term     string   `json:"term"`
	Sections []string `json:"sections"`
	Count    int      `json:"count"`
}

// Metadata is the additive integration layer over the sections.
type Metadata struct {
	Threads      []Thread `json:"threads,omitempty"`
	PathwayHints []string `json:"pathway_hints,omitempty"`
}

// MergedContent is the single structured artifact of a run. Immutable
// once validation passes.
type MergedContent struct {
	ID        string              `json:"id"`
	RunID     string              `json:"run_id"`
	Title     string              `json:"title"`
	Template  string              `json:"template"`
	Sections  []Section           `json:"sections"`
	CrossRefs map[string][]string `json:"cross_refs,omitempty"`
	Metadata  Metadata            `json:"metadata"`
	Gaps      []contribution.Gap  `json:"gaps,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// EmptySectionCount returns how many template sections received no
// contribution.
func (m *MergedContent) EmptySectionCount() int {
	n := 0
	for _, s := range m.Sections {
		if s.Empty {
			n++
		}
	}
	return n
}

// WordCount totals the words of all section bodies.
func (m *MergedContent) WordCount() int {
	n := 0
	for _, s := range m.Sections {
		n += len(splitWords(s.Body))
	}
	return n
}
