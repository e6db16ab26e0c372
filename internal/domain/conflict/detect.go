package conflict

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
)

// DefaultSimilarityThreshold is the Jaccard overlap above which a pair
// of contributions is close enough to contradict each other. A heuristic
// default, not a verified constant; override it per detector.
const DefaultSimilarityThreshold = 0.70

// Pair is one antonym pair. Critical pairs force high severity.
type Pair struct {
	A        string
	B        string
	Critical bool
}

// defaultAntonyms is the built-in contradiction table. Extensible via
// DetectorConfig.ExtraAntonyms.
var defaultAntonyms = []Pair{
	{A: "safe", B: "unsafe", Critical: true},
	{A: "approved", B: "contraindicated", Critical: true},
	{A: "harmless", B: "harmful", Critical: true},
	{A: "recommend", B: "not recommend", Critical: false},
	{A: "recommended", B: "not recommended", Critical: false},
	{A: "increase", B: "decrease", Critical: false},
	{A: "more", B: "less", Critical: false},
	{A: "high", B: "low", Critical: false},
	{A: "always", B: "never", Critical: false},
	{A: "before", B: "after", Critical: false},
	{A: "include", B: "exclude", Critical: false},
	{A: "effective", B: "ineffective", Critical: false},
	{A: "accept", B: "reject", Critical: false},
}

// mandatoryDomainTerms marks content that touches safety or ethics;
// conflicts over such content are always high severity.
var mandatoryDomainTerms = []string{
	"safety", "unsafe", "harm", "harmful", "adverse", "contraindicated",
	"ethics", "ethical", "consent", "privacy",
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "is": {}, "are": {}, "for": {}, "with": {}, "on": {}, "be": {},
	"it": {}, "this": {}, "that": {}, "as": {}, "at": {}, "by": {},
}

// DetectorConfig tunes one detector instance. The zero value gives the
// built-in defaults.
type DetectorConfig struct {
	SimilarityThreshold float64
	ExtraAntonyms       []Pair
}

// Detector flags pairwise contradictions between contributions. Safe for
// concurrent use; all state is read-only after construction.
type Detector struct {
	threshold float64
	antonyms  []Pair
	now       func() time.Time
}

// NewDetector builds a detector from cfg, filling unset fields with
// defaults.
func NewDetector(cfg DetectorConfig) *Detector {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	antonyms := make([]Pair, 0, len(defaultAntonyms)+len(cfg.ExtraAntonyms))
	antonyms = append(antonyms, defaultAntonyms...)
	antonyms = append(antonyms, cfg.ExtraAntonyms...)
	return &Detector{threshold: threshold, antonyms: antonyms, now: time.Now}
}

// Detect compares every unordered pair of contributions once. A pair
// conflicts when its token-set Jaccard similarity reaches the threshold
// and at least one antonym signal fires across the two texts. Output
// order follows input order, so equal inputs give equal output.
func (d *Detector) Detect(runID string, contribs []contribution.Contribution) []Record {
	views := make([]textView, len(contribs))
	for i, c := range contribs {
		views[i] = newTextView(c.Content)
	}

	var records []Record
	for i := 0; i < len(contribs); i++ {
		for j := i + 1; j < len(contribs); j++ {
			similarity := jaccard(views[i].tokens, views[j].tokens)
			if similarity < d.threshold {
				continue
			}
			signals := d.signalsBetween(views[i], views[j])
			if len(signals) == 0 {
				continue
			}
			records = append(records, Record{
				ID:            uuid.New().String(),
				RunID:         runID,
				ContributionA: contribs[i].ID,
				ContributionB: contribs[j].ID,
				AgentA:        contribs[i].AgentKind,
				AgentB:        contribs[j].AgentKind,
				Similarity:    similarity,
				Signals:       signals,
				Severity:      severityOf(signals, views[i], views[j]),
				DetectedAt:    d.now().UTC(),
			})
		}
	}
	return records
}

// signalsBetween fires a pair when one side holds one polarity and the
// other side the opposite, in either direction.
func (d *Detector) signalsBetween(a, b textView) []Signal {
	var signals []Signal
	for _, p := range d.antonyms {
		if (a.hasTerm(p.A) && b.hasTerm(p.B)) || (a.hasTerm(p.B) && b.hasTerm(p.A)) {
			signals = append(signals, Signal{TermA: p.A, TermB: p.B, Critical: p.Critical})
		}
	}
	return signals
}

func severityOf(signals []Signal, a, b textView) Severity {
	for _, s := range signals {
		if s.Critical {
			return SeverityHigh
		}
	}
	for _, term := range mandatoryDomainTerms {
		if a.hasTerm(term) || b.hasTerm(term) {
			return SeverityHigh
		}
	}
	if len(signals) >= 2 {
		return SeverityMedium
	}
	return SeverityLow
}

// textView holds the tokenized forms of one contribution body.
type textView struct {
	tokens map[string]struct{}
	joined string
}

func newTextView(content string) textView {
	words := tokenize(content)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return textView{tokens: set, joined: " " + strings.Join(words, " ") + " "}
}

// hasTerm checks single words against the token set and phrases against
// the space-joined token stream, so "unsafe" never matches "safe".
func (v textView) hasTerm(term string) bool {
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(v.joined, " "+term+" ")
	}
	_, ok := v.tokens[term]
	return ok
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
