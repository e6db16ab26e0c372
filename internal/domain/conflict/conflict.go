// Package conflict detects contradictions between agent contributions
// and resolves them through pluggable strategies.
package conflict

import (
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
)

// Severity tiers a detected conflict by how dangerous leaving it
// unresolved would be.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Signal is one fired antonym pair between the two contributions.
type Signal struct {
	TermA    string `json:"term_a"`
	TermB    string `json:"term_b"`
	Critical bool   `json:"critical"`
}

// Record captures one detected disagreement between two contributions.
// The record outlives its resolution for the audit trail.
type Record struct {
	ID            string     `json:"id"`
	RunID         string     `json:"run_id"`
	ContributionA string     `json:"contribution_a"`
	ContributionB string     `json:"contribution_b"`
	AgentA        agent.Kind `json:"agent_a"`
	AgentB        agent.Kind `json:"agent_b"`
	Similarity    float64    `json:"similarity"`
	Signals       []Signal   `json:"signals"`
	Severity      Severity   `json:"severity"`
	DetectedAt    time.Time  `json:"detected_at"`
}

// Resolution is the outcome of applying a strategy to one record. The
// loser leaves the working set; both originals stay in the audit trail.
type Resolution struct {
	ConflictID string    `json:"conflict_id"`
	WinnerID   string    `json:"winner_id"`
	LoserID    string    `json:"loser_id"`
	Confidence float64   `json:"confidence"`
	Strategy   string    `json:"strategy"`
	Rationale  string    `json:"rationale"`
	ResolvedAt time.Time `json:"resolved_at"`
}
