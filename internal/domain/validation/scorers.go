package validation

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
)

// Built-in heuristic scorers for the criterion names the preset domain
// profiles declare. All are pure functions of the artifact text, so a
// given artifact always validates to the same result.

var evidencePattern = regexp.MustCompile(`(?i)\b(study|studies|trial|meta-analysis|systematic review|peer[- ]reviewed|journal|citation|doi|et al|evidence|dataset|benchmark|rfc|guideline)\b|\b(19|20)\d{2}\b`)

var riskTerms = []string{"unsafe", "harmful", "contraindicated", "overdose", "dangerous", "toxic"}

var ethicsViolationTerms = []string{"without consent", "fabricate", "fabricated", "deceive", "plagiarize", "undisclosed"}

var vagueTerms = []string{"might", "maybe", "possibly", "somewhat", "various", "often", "sometimes", "generally"}

var engagementTerms = []string{"you", "your", "consider", "try", "imagine", "example", "practice", "exercise", "question"}

// DefaultRegistry binds heuristic scorers for every criterion name the
// preset profiles use, plus the cross-cutting checks. Criteria outside
// this set fall back to NeutralScore.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("accuracy", ScorerFunc(scoreAccuracy))
	r.Register("safety-assessment", ScorerFunc(scoreSafety))
	r.Register("ethical-compliance", ScorerFunc(scoreEthics))
	r.Register("evidence", ScorerFunc(scoreEvidence))
	r.Register("clarity", ScorerFunc(scoreClarity))
	r.Register("terminology", ScorerFunc(scoreTerminology))
	r.Register("engagement", ScorerFunc(scoreEngagement))
	r.Register("progression", ScorerFunc(scoreProgression))
	r.Register("precision", ScorerFunc(scorePrecision))
	r.Register("depth", ScorerFunc(scoreDepth))
	r.Register("coherence", ScorerFunc(scoreCoherence))
	r.Register("completeness", ScorerFunc(scoreCompleteness))
	r.Register("accessibility", ScorerFunc(scoreAccessibility))
	return r
}

func artifactText(m *merge.MergedContent) string {
	var b strings.Builder
	for _, s := range m.Sections {
		if s.Empty {
			continue
		}
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	return b.String()
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func countTerms(text string, terms []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, t := range terms {
		n += strings.Count(lower, t)
	}
	return n
}

// scoreAccuracy rewards evidence-backed language. Unsupported claims
// read as marker-free text and drag the score down.
func scoreAccuracy(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	text := artifactText(m)
	if text == "" {
		return 0, nil
	}
	markers := len(evidencePattern.FindAllString(text, -1))
	return clampScore(0.6 + 0.05*float64(markers)), nil
}

// scoreSafety starts near-passing and deducts for each risk term, so
// content that never raises a risk signal scores high and anything
// flagging harm needs explicit mitigation review.
func scoreSafety(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	text := artifactText(m)
	if text == "" {
		return 0, nil
	}
	risks := countTerms(text, riskTerms)
	return clampScore(0.95 - 0.2*float64(risks)), nil
}

func scoreEthics(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	text := artifactText(m)
	if text == "" {
		return 0, nil
	}
	violations := countTerms(text, ethicsViolationTerms)
	return clampScore(0.92 - 0.25*float64(violations)), nil
}

func scoreEvidence(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	text := artifactText(m)
	if text == "" {
		return 0, nil
	}
	markers := len(evidencePattern.FindAllString(text, -1))
	return clampScore(0.3 + 0.1*float64(markers)), nil
}

// scoreClarity bands on mean sentence length: 8 to 20 words reads well,
// shorter is choppy, longer loses the reader.
func scoreClarity(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	mean := meanSentenceLength(artifactText(m))
	switch {
	case mean == 0:
		return 0, nil
	case mean >= 8 && mean <= 20:
		return 0.9, nil
	case mean >= 5 && mean <= 28:
		return 0.7, nil
	default:
		return 0.4, nil
	}
}

// scoreTerminology checks that significant terms recur instead of
// appearing once each, a proxy for consistent vocabulary.
func scoreTerminology(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	counts := map[string]int{}
	for _, w := range strings.Fields(strings.ToLower(artifactText(m))) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if len(w) >= 5 {
			counts[w]++
		}
	}
	if len(counts) == 0 {
		return 0, nil
	}
	repeated := 0
	for _, n := range counts {
		if n >= 2 {
			repeated++
		}
	}
	ratio := float64(repeated) / float64(len(counts))
	return clampScore(0.5 + ratio), nil
}

func scoreEngagement(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	text := artifactText(m)
	if text == "" {
		return 0, nil
	}
	hits := countTerms(text, engagementTerms) + strings.Count(text, "?")
	if hits > 6 {
		hits = 6
	}
	return clampScore(0.4 + 0.1*float64(hits)), nil
}

// scoreProgression penalizes empty sections sandwiched between filled
// ones: a hole mid-document breaks the reading path even when overall
// coverage is acceptable.
func scoreProgression(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	first, last := -1, -1
	for i, s := range m.Sections {
		if !s.Empty {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, nil
	}
	holes := 0
	for i := first; i <= last; i++ {
		if m.Sections[i].Empty {
			holes++
		}
	}
	score := 1.0 - 0.2*float64(holes)
	if score < 0.2 {
		score = 0.2
	}
	return score, nil
}

func scorePrecision(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	text := artifactText(m)
	if text == "" {
		return 0, nil
	}
	vague := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?")
		for _, t := range vagueTerms {
			if w == t {
				vague++
			}
		}
	}
	return clampScore(0.95 - 0.07*float64(vague)), nil
}

func scoreDepth(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	words := m.WordCount()
	if words == 0 {
		return 0, nil
	}
	return clampScore(0.35 + float64(words)/800), nil
}

// scoreCoherence blends thread coverage with cross-reference density:
// an artifact coheres when shared terms and contributor links both span
// its sections.
func scoreCoherence(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	nonEmpty := len(m.Sections) - m.EmptySectionCount()
	if nonEmpty == 0 {
		return 0, nil
	}
	threadPart := float64(len(m.Metadata.Threads)) / 3
	if threadPart > 1 {
		threadPart = 1
	}
	linked := len(m.CrossRefs)
	linkPart := float64(linked) / float64(nonEmpty)
	if linkPart > 1 {
		linkPart = 1
	}
	return clampScore(0.5*threadPart + 0.5*linkPart), nil
}

// scoreCompleteness is the filled-section ratio discounted by execution
// gaps. An artifact merged from zero contributions scores exactly 0.
func scoreCompleteness(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	if len(m.Sections) == 0 {
		return 0, nil
	}
	filled := len(m.Sections) - m.EmptySectionCount()
	ratio := float64(filled) / float64(len(m.Sections))
	gapFactor := 1 - 0.1*float64(len(m.Gaps))
	if gapFactor < 0.5 {
		gapFactor = 0.5
	}
	return clampScore(ratio * gapFactor), nil
}

func scoreAccessibility(_ context.Context, m *merge.MergedContent, _ profile.Criterion) (float64, error) {
	mean := meanSentenceLength(artifactText(m))
	switch {
	case mean == 0:
		return 0, nil
	case mean <= 18:
		return 0.9, nil
	case mean <= 26:
		return 0.65, nil
	default:
		return 0.35, nil
	}
}

func meanSentenceLength(text string) float64 {
	words := 0
	sentences := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.FieldsFunc(line, func(r rune) bool {
			return r == '.' || r == '!' || r == '?'
		})
		for _, p := range parts {
			n := len(strings.Fields(p))
			if n == 0 {
				continue
			}
			sentences++
			words += n
		}
	}
	if sentences == 0 {
		return 0
	}
	return float64(words) / float64(sentences)
}
