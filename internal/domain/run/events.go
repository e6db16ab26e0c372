package run

import "time"

// EventType classifies run progress events.
type EventType string

const (
	EventCreated          EventType = "run.created"
	EventStatusChanged    EventType = "run.status_changed"
	EventPhaseStarted     EventType = "phase.started"
	EventPhaseCompleted   EventType = "phase.completed"
	EventUnitStarted      EventType = "unit.started"
	EventUnitRetried      EventType = "unit.retried"
	EventUnitFailed       EventType = "unit.failed"
	EventUnitSucceeded    EventType = "unit.succeeded"
	EventConflictDetected EventType = "conflict.detected"
	EventConflictResolved EventType = "conflict.resolved"
	EventArtifactMerged   EventType = "artifact.merged"
	EventValidationScored EventType = "validation.scored"
	EventFinished         EventType = "run.finished"
)

// Event is one progress notification emitted while a run advances.
// Events are broadcast to subscribers and appended to the run's audit
// trail; they carry enough context to render a live timeline.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Type      EventType `json:"type"`
	Status    Status    `json:"status,omitempty"`
	Phase     int       `json:"phase,omitempty"`
	UnitID    string    `json:"unit_id,omitempty"`
	AgentKind string    `json:"agent_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}
