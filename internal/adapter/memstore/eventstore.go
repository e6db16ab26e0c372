package memstore

import (
	"context"
	"sync"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
)

// EventStore implements eventstore.Store with an append-only slice per
// run.
type EventStore struct {
	mu     sync.RWMutex
	events map[string][]run.Event
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[string][]run.Event)}
}

var _ eventstore.Store = (*EventStore)(nil)

func (s *EventStore) Append(_ context.Context, ev *run.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.RunID] = append(s.events[ev.RunID], *ev)
	return nil
}

func (s *EventStore) LoadByRun(_ context.Context, runID string) ([]run.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]run.Event, len(s.events[runID]))
	copy(out, s.events[runID])
	return out, nil
}

func (s *EventStore) LoadTimeline(_ context.Context, runID string, filter eventstore.Filter, cursor string, limit int) (*eventstore.Page, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []run.Event
	for _, ev := range s.events[runID] {
		if !matchesFilter(ev, filter) {
			continue
		}
		matched = append(matched, ev)
	}

	start := 0
	if cursor != "" {
		for i, ev := range matched {
			if ev.ID == cursor {
				start = i + 1
				break
			}
		}
	}

	page := matched[start:]
	hasMore := len(page) > limit
	if hasMore {
		page = page[:limit]
	}

	var nextCursor string
	if hasMore && len(page) > 0 {
		nextCursor = page[len(page)-1].ID
	}

	out := make([]run.Event, len(page))
	copy(out, page)
	return &eventstore.Page{
		Events:  out,
		Cursor:  nextCursor,
		HasMore: hasMore,
		Total:   len(matched),
	}, nil
}

func matchesFilter(ev run.Event, filter eventstore.Filter) bool {
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if ev.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.After != nil && !ev.At.After(*filter.After) {
		return false
	}
	if filter.Before != nil && !ev.At.Before(*filter.Before) {
		return false
	}
	return true
}

func (s *EventStore) Stats(_ context.Context, runID string) (*eventstore.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[runID]
	counts := make(map[string]int)
	var retries, failed int
	for _, ev := range events {
		counts[string(ev.Type)]++
		switch ev.Type {
		case run.EventUnitRetried:
			retries++
		case run.EventUnitFailed:
			failed++
		}
	}

	var durationMS int64
	if len(events) > 1 {
		durationMS = events[len(events)-1].At.Sub(events[0].At).Milliseconds()
	}

	return &eventstore.Summary{
		TotalEvents: len(events),
		EventCounts: counts,
		DurationMS:  durationMS,
		RetryCount:  retries,
		FailedUnits: failed,
	}, nil
}
