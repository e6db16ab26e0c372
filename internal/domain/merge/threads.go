package merge

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const (
	// significantTokenLen is the minimum length for a token to anchor a
	// coherence thread.
	significantTokenLen = 5
	// threadMinCount is the artifact-wide frequency a term needs.
	threadMinCount = 3
	maxThreads     = 12
	maxHints       = 5
)

var threadStopwords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "along": {}, "around": {},
	"because": {}, "before": {}, "being": {}, "between": {}, "could": {},
	"every": {}, "should": {}, "their": {}, "there": {}, "these": {},
	"thing": {}, "things": {}, "those": {}, "through": {}, "under": {},
	"where": {}, "which": {}, "while": {}, "would": {},
}

// crossReferences links every pair of sections sharing at least one
// contributing agent kind, in both directions.
func crossReferences(sections []Section) map[string][]string {
	refs := make(map[string][]string)
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			if !shareContributor(sections[i], sections[j]) {
				continue
			}
			refs[sections[i].ID] = append(refs[sections[i].ID], sections[j].ID)
			refs[sections[j].ID] = append(refs[sections[j].ID], sections[i].ID)
		}
	}
	for id := range refs {
		sort.Strings(refs[id])
	}
	if len(refs) == 0 {
		return nil
	}
	return refs
}

func shareContributor(a, b Section) bool {
	for _, k := range a.Contributors {
		if kindIn(b.Contributors, k) {
			return true
		}
	}
	return false
}

// buildMetadata derives coherence threads and pathway hints from the
// finished sections. Annotation only: section bodies are not touched.
func buildMetadata(sections []Section) Metadata {
	counts := make(map[string]int)
	inSections := make(map[string][]string)
	for _, s := range sections {
		seenHere := make(map[string]struct{})
		for _, tok := range significantTokens(s.Body) {
			counts[tok]++
			if _, ok := seenHere[tok]; !ok {
				seenHere[tok] = struct{}{}
				inSections[tok] = append(inSections[tok], s.ID)
			}
		}
	}

	var threads []Thread
	for term, secs := range inSections {
		if len(secs) < 2 || counts[term] < threadMinCount {
			continue
		}
		threads = append(threads, Thread{Term: term, Sections: secs, Count: counts[term]})
	}
	sort.Slice(threads, func(i, j int) bool {
		if len(threads[i].Sections) != len(threads[j].Sections) {
			return len(threads[i].Sections) > len(threads[j].Sections)
		}
		if threads[i].Count != threads[j].Count {
			return threads[i].Count > threads[j].Count
		}
		return threads[i].Term < threads[j].Term
	})
	if len(threads) > maxThreads {
		threads = threads[:maxThreads]
	}

	var hints []string
	for i, th := range threads {
		if i == maxHints {
			break
		}
		hints = append(hints, fmt.Sprintf("follow %q from %s through %s", th.Term, th.Sections[0], th.Sections[len(th.Sections)-1]))
	}
	return Metadata{Threads: threads, PathwayHints: hints}
}

func significantTokens(body string) []string {
	fields := strings.FieldsFunc(strings.ToLower(body), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < significantTokenLen {
			continue
		}
		if _, skip := threadStopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}
