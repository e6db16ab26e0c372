// Package eventstore defines the port interface for the append-only run
// event trail.
package eventstore

import (
	"context"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
)

// Filter controls which events are returned by LoadTimeline.
type Filter struct {
	Types  []run.EventType `json:"types,omitempty"`
	After  *time.Time      `json:"after,omitempty"`
	Before *time.Time      `json:"before,omitempty"`
}

// Page is a cursor-paginated page of events.
type Page struct {
	Events  []run.Event `json:"events"`
	Cursor  string      `json:"cursor"`
	HasMore bool        `json:"has_more"`
	Total   int         `json:"total"`
}

// Summary contains aggregate stats for a run's event trail.
type Summary struct {
	TotalEvents int            `json:"total_events"`
	EventCounts map[string]int `json:"event_counts"`
	DurationMS  int64          `json:"duration_ms"`
	RetryCount  int            `json:"retry_count"`
	FailedUnits int            `json:"failed_units"`
}

// Store is the port interface for appending and loading run events.
type Store interface {
	// Append persists a new event to the trail.
	Append(ctx context.Context, ev *run.Event) error

	// LoadByRun returns all events for the given run in append order.
	LoadByRun(ctx context.Context, runID string) ([]run.Event, error)

	// LoadTimeline returns a cursor-paginated page of events for a run
	// with optional filtering.
	LoadTimeline(ctx context.Context, runID string, filter Filter, cursor string, limit int) (*Page, error)

	// Stats returns aggregate statistics for a run's event trail.
	Stats(ctx context.Context, runID string) (*Summary, error)
}
