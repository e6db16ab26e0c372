package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/memstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/validation"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/service"
)

// fakeCache records sets and serves gets from a map.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Close() error { return nil }

func seedFinishedRun(t *testing.T, store *memstore.Store, runID string) *run.Run {
	t.Helper()
	ctx := context.Background()

	r := run.New("req-1")
	r.ID = runID
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("create run: %v", err)
	}
	for _, to := range []run.Status{run.StatusPlanning, run.StatusExecuting, run.StatusResolving, run.StatusMerging, run.StatusValidating, run.StatusPassed} {
		if err := r.Transition(to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	if err := store.UpdateRun(ctx, r); err != nil {
		t.Fatalf("update run: %v", err)
	}
	return r
}

func TestStatusComposesView(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore()
	events := memstore.NewEventStore()
	r := seedFinishedRun(t, store, "run-1")

	for _, id := range []string{"con-1", "con-2"} {
		c := &contribution.Contribution{ID: id, RunID: r.ID, Content: "text"}
		if err := store.SaveContribution(ctx, c); err != nil {
			t.Fatalf("save contribution: %v", err)
		}
	}
	rec := &conflict.Record{ID: "cf-1", RunID: r.ID, ContributionA: "con-1", ContributionB: "con-2"}
	if err := store.SaveConflict(ctx, rec); err != nil {
		t.Fatalf("save conflict: %v", err)
	}
	res := &conflict.Resolution{ConflictID: "cf-1", WinnerID: "con-1", LoserID: "con-2"}
	if err := store.SaveResolution(ctx, res); err != nil {
		t.Fatalf("save resolution: %v", err)
	}
	val := &validation.Result{RunID: r.ID, State: validation.StatePassed, Aggregate: 0.91}
	if err := store.SaveValidation(ctx, val); err != nil {
		t.Fatalf("save validation: %v", err)
	}

	svc := service.NewStatusService(store, events, nil)
	st, err := svc.Status(ctx, r.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Contributions != 2 {
		t.Errorf("expected 2 contributions, got %d", st.Contributions)
	}
	if st.Conflicts != 1 || st.Resolutions != 1 {
		t.Errorf("expected 1 conflict and 1 resolution, got %d and %d", st.Conflicts, st.Resolutions)
	}
	if st.Validation == nil || st.Validation.Aggregate != 0.91 {
		t.Errorf("expected validation aggregate 0.91, got %+v", st.Validation)
	}
	if st.Run.Status != run.StatusPassed {
		t.Errorf("expected passed run, got %s", st.Run.Status)
	}
}

func TestStatusCachesTerminalRuns(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore()
	events := memstore.NewEventStore()
	cache := newFakeCache()
	r := seedFinishedRun(t, store, "run-1")

	svc := service.NewStatusService(store, events, cache)
	first, err := svc.Status(ctx, r.ID)
	if err != nil {
		t.Fatalf("first status: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected terminal run to be cached, sets=%d", cache.sets)
	}

	// Later writes must not affect the cached view of a finished run.
	c := &contribution.Contribution{ID: "late", RunID: r.ID}
	if err := store.SaveContribution(ctx, c); err != nil {
		t.Fatalf("save contribution: %v", err)
	}
	second, err := svc.Status(ctx, r.ID)
	if err != nil {
		t.Fatalf("second status: %v", err)
	}
	if second.Contributions != first.Contributions {
		t.Errorf("expected cached view, got %d contributions vs %d", second.Contributions, first.Contributions)
	}
}

func TestStatusSkipsCacheForLiveRuns(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore()
	events := memstore.NewEventStore()
	cache := newFakeCache()

	r := run.New("req-1")
	if err := store.CreateRun(ctx, r); err != nil {
		t.Fatalf("create run: %v", err)
	}

	svc := service.NewStatusService(store, events, cache)
	if _, err := svc.Status(ctx, r.ID); err != nil {
		t.Fatalf("status: %v", err)
	}
	if cache.sets != 0 {
		t.Errorf("live run must not be cached, sets=%d", cache.sets)
	}
}

func TestStatusNotFound(t *testing.T) {
	svc := service.NewStatusService(memstore.NewStore(), memstore.NewEventStore(), nil)
	_, err := svc.Status(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTimelineAndStats(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore()
	events := memstore.NewEventStore()

	base := time.Now().UTC()
	for i, typ := range []run.EventType{run.EventCreated, run.EventUnitStarted, run.EventUnitSucceeded} {
		ev := &run.Event{ID: string(rune('a' + i)), RunID: "run-1", Type: typ, At: base.Add(time.Duration(i) * time.Second)}
		if err := events.Append(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	svc := service.NewStatusService(store, events, nil)
	page, err := svc.Timeline(ctx, "run-1", eventstore.Filter{}, "", 10)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(page.Events) != 3 {
		t.Errorf("expected 3 events, got %d", len(page.Events))
	}

	stats, err := svc.Stats(ctx, "run-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Errorf("expected 3 total events, got %d", stats.TotalEvents)
	}
}
