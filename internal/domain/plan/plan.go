// Package plan builds dependency-ordered execution plans for agent teams.
package plan

import (
	"errors"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
)

// ErrPlanning wraps any failure to build a plan. Fatal to the run.
var ErrPlanning = errors.New("planning failed")

// ErrCyclicDependency indicates a cycle among the recommended agents.
var ErrCyclicDependency = errors.New("cyclic agent dependency")

// UnitStatus represents the execution state of one invocation unit.
type UnitStatus string

const (
	UnitPending   UnitStatus = "pending"
	UnitRunning   UnitStatus = "running"
	UnitSucceeded UnitStatus = "succeeded"
	UnitFailed    UnitStatus = "failed"
)

// Unit is one planned agent invocation. Units of the same kind inside a
// phase are grouped into waves no larger than the kind's concurrency
// ceiling; waves drain in order as slots free up.
type Unit struct {
	ID        string     `json:"id"`
	AgentKind agent.Kind `json:"agent_kind"`
	Phase     int        `json:"phase"`
	Wave      int        `json:"wave"`
	Status    UnitStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	Error     string     `json:"error,omitempty"`
}

// Phase is one topological layer: units with no unresolved dependency
// among themselves, runnable concurrently up to per-kind ceilings.
type Phase struct {
	Index int    `json:"index"`
	Units []Unit `json:"units"`
}

// Plan is the full phase sequence for one run. Built once, read-only
// during execution.
type Plan struct {
	ID                string        `json:"id"`
	RequestID         string        `json:"request_id"`
	Domain            string        `json:"domain"`
	Phases            []Phase       `json:"phases"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
	CreatedAt         time.Time     `json:"created_at"`
}

// PhaseCount returns the number of phases.
func (p *Plan) PhaseCount() int { return len(p.Phases) }

// UnitCount returns the total number of invocation units.
func (p *Plan) UnitCount() int {
	n := 0
	for _, ph := range p.Phases {
		n += len(ph.Units)
	}
	return n
}

// Kinds returns the distinct agent kinds in plan order of first use.
func (p *Plan) Kinds() []agent.Kind {
	seen := make(map[agent.Kind]struct{})
	var kinds []agent.Kind
	for _, ph := range p.Phases {
		for _, u := range ph.Units {
			if _, ok := seen[u.AgentKind]; !ok {
				seen[u.AgentKind] = struct{}{}
				kinds = append(kinds, u.AgentKind)
			}
		}
	}
	return kinds
}
