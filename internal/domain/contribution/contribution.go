// Package contribution defines agent outputs and the gaps left by
// permanently failed invocation units.
package contribution

import (
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
)

// Contribution is one agent's output for one invocation unit. The
// content payload is opaque to the orchestration core; the quality
// estimate comes from the agent or the execution harness.
type Contribution struct {
	ID              string     `json:"id"`
	RunID           string     `json:"run_id"`
	UnitID          string     `json:"unit_id"`
	AgentKind       agent.Kind `json:"agent_kind"`
	Phase           int        `json:"phase"`
	Content         string     `json:"content"`
	QualityEstimate float64    `json:"quality_estimate"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Gap records a missing contribution after a unit permanently failed.
// Gaps feed the completeness check during validation.
type Gap struct {
	UnitID    string     `json:"unit_id"`
	AgentKind agent.Kind `json:"agent_kind"`
	Phase     int        `json:"phase"`
	Reason    string     `json:"reason"`
}
