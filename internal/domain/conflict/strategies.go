package conflict

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
)

// WeightedConsensus weighs each side by its own quality estimate times
// the profile's per-agent expertise multiplier and keeps the heavier
// side. Ties break toward the lexicographically smaller agent kind, then
// the smaller contribution ID.
type WeightedConsensus struct{}

func (WeightedConsensus) Name() string { return "weighted-consensus" }

func (WeightedConsensus) Resolve(rec Record, a, b contribution.Contribution, p profile.Profile) (Resolution, error) {
	winner, loser, confidence, note := weightedPick(a, b, p)
	rationale := fmt.Sprintf("%s outweighed %s (%s)", winner.AgentKind, loser.AgentKind, note)
	return resolution(rec, winner, loser, confidence, "weighted-consensus", rationale), nil
}

// ExpertHierarchy keeps the side whose agent ranks earliest in the
// profile's expert list. An unranked side loses to a ranked one; two
// unranked sides fall back to weighted consensus.
type ExpertHierarchy struct{}

func (ExpertHierarchy) Name() string { return "expert-hierarchy" }

func (ExpertHierarchy) Resolve(rec Record, a, b contribution.Contribution, p profile.Profile) (Resolution, error) {
	ia := rankIn(p.ExpertHierarchy, a.AgentKind)
	ib := rankIn(p.ExpertHierarchy, b.AgentKind)

	if ia < 0 && ib < 0 {
		winner, loser, confidence, note := weightedPick(a, b, p)
		rationale := fmt.Sprintf("neither %s nor %s ranked in the expert hierarchy; weighted consensus fallback (%s)",
			a.AgentKind, b.AgentKind, note)
		return resolution(rec, winner, loser, confidence, "expert-hierarchy", rationale), nil
	}

	winner, loser, winnerRank := a, b, ia
	if ib >= 0 && (ia < 0 || ib < ia) {
		winner, loser, winnerRank = b, a, ib
	}
	confidence := 1.0 - float64(winnerRank)/float64(len(p.ExpertHierarchy)+1)
	rationale := fmt.Sprintf("%s ranks %d in the expert hierarchy, above %s", winner.AgentKind, winnerRank+1, loser.AgentKind)
	return resolution(rec, winner, loser, confidence, "expert-hierarchy", rationale), nil
}

// rankIn resolves the kind's position in the hierarchy; -1 when absent.
func rankIn(hierarchy []agent.Kind, kind agent.Kind) int {
	for i, k := range hierarchy {
		if k == kind {
			return i
		}
	}
	return -1
}

// EvidencePriority scores each side by citation, recency and
// methodology markers, keeping the better-evidenced one. Ties fall to
// the higher quality estimate, then the weighted ordering.
type EvidencePriority struct{}

func (EvidencePriority) Name() string { return "evidence-priority" }

var yearRE = regexp.MustCompile(`\b(19|20)\d{2}\b`)

var evidenceMarkers = []string{
	"et al", "doi", "study", "trial", "journal", "source", "according to",
	"reference", "citation", "randomized", "controlled", "meta-analysis",
	"cohort", "sample", "methodology", "peer-reviewed", "recent", "latest",
}

func (EvidencePriority) Resolve(rec Record, a, b contribution.Contribution, p profile.Profile) (Resolution, error) {
	sa := evidenceScore(a.Content)
	sb := evidenceScore(b.Content)

	switch {
	case sa > sb:
		confidence := float64(sa) / float64(sa+sb)
		rationale := fmt.Sprintf("%s cites stronger evidence (%d markers vs %d)", a.AgentKind, sa, sb)
		return resolution(rec, a, b, confidence, "evidence-priority", rationale), nil
	case sb > sa:
		confidence := float64(sb) / float64(sa+sb)
		rationale := fmt.Sprintf("%s cites stronger evidence (%d markers vs %d)", b.AgentKind, sb, sa)
		return resolution(rec, b, a, confidence, "evidence-priority", rationale), nil
	case a.QualityEstimate != b.QualityEstimate:
		winner, loser := a, b
		if b.QualityEstimate > a.QualityEstimate {
			winner, loser = b, a
		}
		rationale := fmt.Sprintf("equal evidence; %s carries the higher quality estimate", winner.AgentKind)
		return resolution(rec, winner, loser, winner.QualityEstimate, "evidence-priority", rationale), nil
	default:
		winner, loser, confidence, note := weightedPick(a, b, p)
		rationale := fmt.Sprintf("equal evidence and quality; weighted consensus fallback (%s)", note)
		return resolution(rec, winner, loser, confidence, "evidence-priority", rationale), nil
	}
}

func evidenceScore(content string) int {
	lowered := strings.ToLower(content)
	score := 0
	for _, marker := range evidenceMarkers {
		score += strings.Count(lowered, marker)
	}
	score += len(yearRE.FindAllString(lowered, -1))
	return score
}

// StakeholderAlignment keeps the side that addresses the audience more
// directly, measured by stakeholder-term occurrences. Ties fall back to
// weighted consensus.
type StakeholderAlignment struct{}

func (StakeholderAlignment) Name() string { return "stakeholder-alignment" }

var stakeholderTerms = []string{
	"patient", "patients", "reader", "readers", "user", "users",
	"student", "students", "learner", "learners", "customer", "customers",
	"clinician", "practitioner", "caregiver", "you", "your",
}

func (StakeholderAlignment) Resolve(rec Record, a, b contribution.Contribution, p profile.Profile) (Resolution, error) {
	sa := stakeholderScore(a.Content)
	sb := stakeholderScore(b.Content)

	switch {
	case sa > sb:
		confidence := float64(sa) / float64(sa+sb)
		rationale := fmt.Sprintf("%s speaks to the audience more directly (%d stakeholder terms vs %d)", a.AgentKind, sa, sb)
		return resolution(rec, a, b, confidence, "stakeholder-alignment", rationale), nil
	case sb > sa:
		confidence := float64(sb) / float64(sa+sb)
		rationale := fmt.Sprintf("%s speaks to the audience more directly (%d stakeholder terms vs %d)", b.AgentKind, sb, sa)
		return resolution(rec, b, a, confidence, "stakeholder-alignment", rationale), nil
	default:
		winner, loser, confidence, note := weightedPick(a, b, p)
		rationale := fmt.Sprintf("equal stakeholder alignment; weighted consensus fallback (%s)", note)
		return resolution(rec, winner, loser, confidence, "stakeholder-alignment", rationale), nil
	}
}

func stakeholderScore(content string) int {
	tokens := tokenize(content)
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	score := 0
	for _, term := range stakeholderTerms {
		score += counts[term]
	}
	return score
}

// LatestConsensus keeps the more recent contribution. Equal timestamps
// fall back to weighted consensus.
type LatestConsensus struct{}

func (LatestConsensus) Name() string { return "latest-consensus" }

func (LatestConsensus) Resolve(rec Record, a, b contribution.Contribution, p profile.Profile) (Resolution, error) {
	switch {
	case a.CreatedAt.After(b.CreatedAt):
		rationale := fmt.Sprintf("%s produced the later contribution", a.AgentKind)
		return resolution(rec, a, b, 0.75, "latest-consensus", rationale), nil
	case b.CreatedAt.After(a.CreatedAt):
		rationale := fmt.Sprintf("%s produced the later contribution", b.AgentKind)
		return resolution(rec, b, a, 0.75, "latest-consensus", rationale), nil
	default:
		winner, loser, confidence, note := weightedPick(a, b, p)
		rationale := fmt.Sprintf("identical timestamps; weighted consensus fallback (%s)", note)
		return resolution(rec, winner, loser, confidence, "latest-consensus", rationale), nil
	}
}

// weightedPick applies the weighted-consensus ordering shared by every
// deterministic fallback: quality times expertise, then agent kind,
// then contribution ID.
func weightedPick(a, b contribution.Contribution, p profile.Profile) (winner, loser contribution.Contribution, confidence float64, note string) {
	wa := a.QualityEstimate * p.ExpertiseOf(a.AgentKind)
	wb := b.QualityEstimate * p.ExpertiseOf(b.AgentKind)

	switch {
	case wa > wb:
		return a, b, wa, fmt.Sprintf("weight %.2f vs %.2f", wa, wb)
	case wb > wa:
		return b, a, wb, fmt.Sprintf("weight %.2f vs %.2f", wb, wa)
	}

	winner, loser = a, b
	if b.AgentKind < a.AgentKind || (b.AgentKind == a.AgentKind && b.ID < a.ID) {
		winner, loser = b, a
	}
	return winner, loser, wa, "equal weights, deterministic tie-break"
}
