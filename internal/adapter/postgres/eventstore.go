package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
)

// EventStore implements eventstore.Store using PostgreSQL (append-only).
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

var _ eventstore.Store = (*EventStore)(nil)

// Append inserts a new event into the run_events table.
func (s *EventStore) Append(ctx context.Context, ev *run.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_events (id, run_id, event_type, status, phase, unit_id, agent_kind, message, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.RunID, string(ev.Type), string(ev.Status), ev.Phase, ev.UnitID, ev.AgentKind, ev.Message, ev.At)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// eventColumns is the SELECT column list for run_events queries.
const eventColumns = `id, run_id, event_type, status, phase, unit_id, agent_kind, message, at`

// scanEvent scans a row into a run.Event.
func scanEvent(row scannable, ev *run.Event) error {
	return row.Scan(&ev.ID, &ev.RunID, &ev.Type, &ev.Status, &ev.Phase, &ev.UnitID, &ev.AgentKind, &ev.Message, &ev.At)
}

// LoadByRun returns all events for the given run in append order.
func (s *EventStore) LoadByRun(ctx context.Context, runID string) ([]run.Event, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM run_events WHERE run_id = $1 ORDER BY seq`, eventColumns), runID)
	if err != nil {
		return nil, fmt.Errorf("load events for run %s: %w", runID, err)
	}
	defer rows.Close()

	var events []run.Event
	for rows.Next() {
		var ev run.Event
		if err := scanEvent(rows, &ev); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LoadTimeline returns a cursor-paginated page of events for a run with
// optional filtering. Total counts every filter match regardless of
// cursor position.
func (s *EventStore) LoadTimeline(ctx context.Context, runID string, filter eventstore.Filter, cursor string, limit int) (*eventstore.Page, error) {
	if limit <= 0 {
		limit = 50
	}

	args := []any{runID}
	conditions := []string{"run_id = $1"}
	argIdx := 2

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("event_type = ANY($%d)", argIdx))
		args = append(args, types)
		argIdx++
	}
	if filter.After != nil {
		conditions = append(conditions, fmt.Sprintf("at > $%d", argIdx))
		args = append(args, *filter.After)
		argIdx++
	}
	if filter.Before != nil {
		conditions = append(conditions, fmt.Sprintf("at < $%d", argIdx))
		args = append(args, *filter.Before)
		argIdx++
	}

	// Count all matches before the cursor narrows the window.
	where := strings.Join(conditions, " AND ")
	var total int
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM run_events WHERE %s`, where)
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count timeline events: %w", err)
	}

	if cursor != "" {
		// An unknown cursor falls back to the start of the trail.
		conditions = append(conditions, fmt.Sprintf("seq > COALESCE((SELECT seq FROM run_events WHERE id = $%d), 0)", argIdx))
		args = append(args, cursor)
		argIdx++
	}
	where = strings.Join(conditions, " AND ")

	// Fetch limit+1 to detect hasMore.
	fetchSQL := fmt.Sprintf(`SELECT %s FROM run_events WHERE %s ORDER BY seq LIMIT $%d`, eventColumns, where, argIdx)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, fetchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	defer rows.Close()

	var events []run.Event
	for rows.Next() {
		var ev run.Event
		if err := scanEvent(rows, &ev); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}

	var nextCursor string
	if hasMore && len(events) > 0 {
		nextCursor = events[len(events)-1].ID
	}

	return &eventstore.Page{
		Events:  events,
		Cursor:  nextCursor,
		HasMore: hasMore,
		Total:   total,
	}, nil
}

// Stats returns aggregate statistics for a run's event trail.
func (s *EventStore) Stats(ctx context.Context, runID string) (*eventstore.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_type, COUNT(*) FROM run_events WHERE run_id = $1 GROUP BY event_type`, runID)
	if err != nil {
		return nil, fmt.Errorf("stats counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	var total, retries, failed int
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("scan stat: %w", err)
		}
		counts[eventType] = count
		total += count
		switch run.EventType(eventType) {
		case run.EventUnitRetried:
			retries = count
		case run.EventUnitFailed:
			failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Duration: time between first and last event.
	var durationMS int64
	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(EXTRACT(EPOCH FROM (MAX(at) - MIN(at))) * 1000, 0)::bigint
		 FROM run_events WHERE run_id = $1`, runID).Scan(&durationMS)
	if err != nil {
		return nil, fmt.Errorf("stats duration: %w", err)
	}

	return &eventstore.Summary{
		TotalEvents: total,
		EventCounts: counts,
		DurationMS:  durationMS,
		RetryCount:  retries,
		FailedUnits: failed,
	}, nil
}
