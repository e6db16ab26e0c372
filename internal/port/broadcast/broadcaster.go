// Package broadcast defines the port for streaming run lifecycle
// events to live subscribers.
package broadcast

import "context"

// Broadcaster fans an event out to every connected subscriber. The
// websocket hub is the production implementation; delivery is
// fire-and-forget and must not block the caller.
type Broadcaster interface {
	// BroadcastEvent sends one event, typed by the run event type
	// (run.created, unit.succeeded, ...), to all subscribers.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Nop discards every event. Wired when no hub is running, and handy in
// tests.
type Nop struct{}

func (Nop) BroadcastEvent(context.Context, string, any) {}
