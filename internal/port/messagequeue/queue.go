// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Request sends a message and waits for a single reply. It returns
	// the reply payload, or an error when no responder answers before
	// the context expires.
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	// Pending messages are processed; no new messages are accepted.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for NATS subjects used by the factory.
const (
	SubjectRunCreated = "runs.created" // run accepted by the orchestrator
	SubjectRunStatus  = "runs.status"  // runs.status.{run_id}: lifecycle transitions
	SubjectRunEvents  = "runs.events"  // runs.events.{run_id}: full progress stream
	SubjectRunCancel  = "runs.cancel"  // abort a running orchestration
	SubjectUnitInvoke = "units.invoke" // units.invoke.{kind}: dispatched to remote agent workers
	SubjectUnitResult = "units.result" // results from remote workers
	SubjectAuditTrail = "audit.trail"  // append-only audit fan-out
	SubjectNotifyRuns = "notify.runs"  // terminal-state notifications
)
