// Package run defines the orchestration run entity and its lifecycle.
package run

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of an orchestration run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPlanning   Status = "planning"
	StatusExecuting  Status = "executing"
	StatusResolving  Status = "resolving"
	StatusMerging    Status = "merging"
	StatusValidating Status = "validating"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
	StatusAborted    Status = "aborted"
)

// ErrInvalidTransition indicates a lifecycle move the state machine does
// not allow.
var ErrInvalidTransition = errors.New("invalid run transition")

// IsTerminal returns true if the run is in a final state. Terminal runs
// never change status again; their results stay idempotently queryable.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// transitions lists the legal next statuses per state. Aborted is
// reachable from every non-terminal state (caller cancellation, planning
// errors, phase exhaustion).
var transitions = map[Status][]Status{
	StatusPending:    {StatusPlanning, StatusAborted},
	StatusPlanning:   {StatusExecuting, StatusAborted},
	StatusExecuting:  {StatusResolving, StatusAborted},
	StatusResolving:  {StatusMerging, StatusAborted},
	StatusMerging:    {StatusValidating, StatusAborted},
	StatusValidating: {StatusPassed, StatusFailed, StatusAborted},
}

// CanTransition reports whether from may move directly to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Run represents one orchestration of a content request: planning, agent
// execution, conflict resolution, merging and validation. One request
// can have multiple runs (resubmission after a FAILED verdict).
type Run struct {
	ID               string     `json:"id"`
	RequestID        string     `json:"request_id"`
	Domain           string     `json:"domain"`
	DomainConfidence float64    `json:"domain_confidence"`
	Strategy         string     `json:"strategy,omitempty"`
	Template         string     `json:"template,omitempty"`
	Status           Status     `json:"status"`
	Phase            int        `json:"phase"`
	PhaseCount       int        `json:"phase_count"`
	PlanID           string     `json:"plan_id,omitempty"`
	ArtifactID       string     `json:"artifact_id,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	Version          int        `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// New creates a pending run for the given request.
func New(requestID string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.New().String(),
		RequestID: requestID,
		Status:    StatusPending,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the run to the next status, enforcing the lifecycle
// table. Terminal statuses set FinishedAt; entering planning sets
// StartedAt.
func (r *Run) Transition(to Status) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: run %s is terminal (%s)", ErrInvalidTransition, r.ID, r.Status)
	}
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	now := time.Now().UTC()
	if r.Status == StatusPending && to == StatusPlanning {
		r.StartedAt = now
	}
	r.Status = to
	r.UpdatedAt = now
	if to.IsTerminal() {
		r.FinishedAt = &now
	}
	return nil
}

// Abort moves the run to the aborted terminal state with a reason.
// Aborting an already-terminal run is a no-op so cancellation can race
// completion safely.
func (r *Run) Abort(reason string) {
	if r.Status.IsTerminal() {
		return
	}
	now := time.Now().UTC()
	r.Status = StatusAborted
	r.Reason = reason
	r.UpdatedAt = now
	r.FinishedAt = &now
}
