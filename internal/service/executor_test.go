package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/memstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/config"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/plan"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/service"
)

// fakeBackend is an in-memory agentexec.Executor with programmable
// failures and concurrency tracking.
type fakeBackend struct {
	mu          sync.Mutex
	invocations []agentexec.Invocation
	transient   map[string]int  // unit ID -> failures before success
	permanent   map[string]bool // unit ID -> always fail
	failAll     bool
	delay       time.Duration
	blockOnCtx  bool
	inFlight    int
	maxInFlight int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		transient: make(map[string]int),
		permanent: make(map[string]bool),
	}
}

func (b *fakeBackend) Name() string                         { return "fake" }
func (b *fakeBackend) Capabilities() agentexec.Capabilities { return agentexec.Capabilities{Concurrent: true} }
func (b *fakeBackend) Close() error                         { return nil }

func (b *fakeBackend) Invoke(ctx context.Context, inv agentexec.Invocation) (*agentexec.Result, error) {
	b.mu.Lock()
	b.invocations = append(b.invocations, inv)
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	var failTransient bool
	if n := b.transient[inv.UnitID]; n > 0 {
		b.transient[inv.UnitID] = n - 1
		failTransient = true
	}
	failPermanent := b.permanent[inv.UnitID] || b.failAll
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	if b.blockOnCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failPermanent {
		return nil, errors.New("backend rejected unit")
	}
	if failTransient {
		return nil, fmt.Errorf("connect: %w", agentexec.ErrTransient)
	}
	return &agentexec.Result{
		UnitID:          inv.UnitID,
		AgentKind:       inv.AgentKind,
		Content:         "content from " + string(inv.AgentKind),
		QualityEstimate: 0.8,
		Duration:        5 * time.Millisecond,
	}, nil
}

func (b *fakeBackend) currentInFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

func (b *fakeBackend) invocationCount(unitID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, inv := range b.invocations {
		if inv.UnitID == unitID {
			n++
		}
	}
	return n
}

func (b *fakeBackend) contextOf(unitID string) map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, inv := range b.invocations {
		if inv.UnitID == unitID {
			return inv.Context
		}
	}
	return nil
}

type execFixture struct {
	backend *fakeBackend
	store   *memstore.Store
	events  *memstore.EventStore
	svc     *service.ExecutorService
	run     *run.Run
}

func newExecFixture(t *testing.T, maxParallel int) *execFixture {
	t.Helper()
	backend := newFakeBackend()
	store := memstore.NewStore()
	events := memstore.NewEventStore()
	svc := service.NewExecutorService(
		backend, store, events, nil,
		agent.Defaults(),
		&config.Executor{UnitTimeout: time.Second, MaxRetries: 3, RetryDelay: time.Millisecond},
		&config.Orchestrator{MaxParallel: maxParallel},
		&config.Breaker{MaxFailures: 100, Timeout: time.Second},
	)

	r := run.New("req-1")
	if err := store.CreateRun(context.Background(), r); err != nil {
		t.Fatalf("create run: %v", err)
	}
	return &execFixture{backend: backend, store: store, events: events, svc: svc, run: r}
}

func phaseOf(index int, units ...plan.Unit) plan.Phase {
	for i := range units {
		units[i].Phase = index
	}
	return plan.Phase{Index: index, Units: units}
}

func eventCount(t *testing.T, events *memstore.EventStore, runID string, typ run.EventType) int {
	t.Helper()
	all, err := events.LoadByRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	n := 0
	for _, ev := range all {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestExecutePlanPassesUpstreamContext(t *testing.T) {
	fx := newExecFixture(t, 8)
	p := &plan.Plan{
		ID: "plan-1",
		Phases: []plan.Phase{
			phaseOf(0,
				plan.Unit{ID: "u-res-1", AgentKind: agent.KindResearch},
				plan.Unit{ID: "u-res-2", AgentKind: agent.KindResearch},
			),
			phaseOf(1,
				plan.Unit{ID: "u-write", AgentKind: agent.KindWriting},
			),
		},
	}

	contribs, gaps, err := fx.svc.ExecutePlan(context.Background(), fx.run, request.ContentRequest{Topic: "caching"}, p)
	if err != nil {
		t.Fatalf("execute plan: %v", err)
	}
	if len(contribs) != 3 || len(gaps) != 0 {
		t.Fatalf("expected 3 contributions and no gaps, got %d and %d", len(contribs), len(gaps))
	}

	// First-phase units must not see each other.
	for _, id := range []string{"u-res-1", "u-res-2"} {
		if got := fx.backend.contextOf(id); len(got) != 0 {
			t.Errorf("unit %s should see empty upstream, got %v", id, got)
		}
	}

	// The writer sees both research contributions joined under one key.
	writerCtx := fx.backend.contextOf("u-write")
	research, ok := writerCtx[string(agent.KindResearch)]
	if !ok {
		t.Fatalf("writer upstream missing research key: %v", writerCtx)
	}
	if !strings.Contains(research, "\n\n") {
		t.Errorf("expected joined research contributions, got %q", research)
	}
}

func TestExecutePlanRecordsGapForPermanentFailure(t *testing.T) {
	fx := newExecFixture(t, 8)
	fx.backend.permanent["u-bad"] = true

	p := &plan.Plan{
		ID: "plan-1",
		Phases: []plan.Phase{
			phaseOf(0,
				plan.Unit{ID: "u-ok", AgentKind: agent.KindResearch},
				plan.Unit{ID: "u-bad", AgentKind: agent.KindStructure},
			),
		},
	}

	contribs, gaps, err := fx.svc.ExecutePlan(context.Background(), fx.run, request.ContentRequest{Topic: "x"}, p)
	if err != nil {
		t.Fatalf("execute plan: %v", err)
	}
	if len(contribs) != 1 {
		t.Errorf("expected 1 contribution, got %d", len(contribs))
	}
	if len(gaps) != 1 || gaps[0].UnitID != "u-bad" {
		t.Fatalf("expected gap for u-bad, got %+v", gaps)
	}

	// A permanent error is not retried.
	if n := fx.backend.invocationCount("u-bad"); n != 1 {
		t.Errorf("expected 1 invocation of u-bad, got %d", n)
	}
	if n := eventCount(t, fx.events, fx.run.ID, run.EventUnitFailed); n != 1 {
		t.Errorf("expected 1 unit.failed event, got %d", n)
	}
}

func TestExecutePlanRetriesTransientFailures(t *testing.T) {
	fx := newExecFixture(t, 8)
	fx.backend.transient["u-flaky"] = 2

	p := &plan.Plan{
		ID:     "plan-1",
		Phases: []plan.Phase{phaseOf(0, plan.Unit{ID: "u-flaky", AgentKind: agent.KindResearch})},
	}

	contribs, gaps, err := fx.svc.ExecutePlan(context.Background(), fx.run, request.ContentRequest{Topic: "x"}, p)
	if err != nil {
		t.Fatalf("execute plan: %v", err)
	}
	if len(contribs) != 1 || len(gaps) != 0 {
		t.Fatalf("expected recovery, got %d contributions %d gaps", len(contribs), len(gaps))
	}
	if n := fx.backend.invocationCount("u-flaky"); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
	if n := eventCount(t, fx.events, fx.run.ID, run.EventUnitRetried); n != 2 {
		t.Errorf("expected 2 unit.retried events, got %d", n)
	}
}

func TestExecutePlanPhaseExhaustion(t *testing.T) {
	fx := newExecFixture(t, 8)
	fx.backend.permanent["u-1"] = true
	fx.backend.permanent["u-2"] = true

	p := &plan.Plan{
		ID: "plan-1",
		Phases: []plan.Phase{
			phaseOf(0,
				plan.Unit{ID: "u-1", AgentKind: agent.KindResearch},
				plan.Unit{ID: "u-2", AgentKind: agent.KindStructure},
			),
			phaseOf(1, plan.Unit{ID: "u-never", AgentKind: agent.KindWriting}),
		},
	}

	_, _, err := fx.svc.ExecutePlan(context.Background(), fx.run, request.ContentRequest{Topic: "x"}, p)
	if !errors.Is(err, service.ErrPhaseExhausted) {
		t.Fatalf("expected ErrPhaseExhausted, got %v", err)
	}

	// Later phases never start.
	if n := fx.backend.invocationCount("u-never"); n != 0 {
		t.Errorf("expected phase 1 to be skipped, got %d invocations", n)
	}
}

func TestExecutePlanRespectsKindCeiling(t *testing.T) {
	fx := newExecFixture(t, 8)
	fx.backend.delay = 20 * time.Millisecond

	// integration has a concurrency ceiling of 1.
	p := &plan.Plan{
		ID: "plan-1",
		Phases: []plan.Phase{
			phaseOf(0,
				plan.Unit{ID: "u-1", AgentKind: agent.KindIntegration},
				plan.Unit{ID: "u-2", AgentKind: agent.KindIntegration},
				plan.Unit{ID: "u-3", AgentKind: agent.KindIntegration},
			),
		},
	}

	if _, _, err := fx.svc.ExecutePlan(context.Background(), fx.run, request.ContentRequest{Topic: "x"}, p); err != nil {
		t.Fatalf("execute plan: %v", err)
	}
	if fx.backend.maxInFlight != 1 {
		t.Errorf("expected at most 1 concurrent integration unit, saw %d", fx.backend.maxInFlight)
	}
}

func TestExecutePlanRespectsGlobalCap(t *testing.T) {
	fx := newExecFixture(t, 2)
	fx.backend.delay = 20 * time.Millisecond

	p := &plan.Plan{
		ID: "plan-1",
		Phases: []plan.Phase{
			phaseOf(0,
				plan.Unit{ID: "u-1", AgentKind: agent.KindResearch},
				plan.Unit{ID: "u-2", AgentKind: agent.KindResearch},
				plan.Unit{ID: "u-3", AgentKind: agent.KindResearch},
				plan.Unit{ID: "u-4", AgentKind: agent.KindWriting},
			),
		},
	}

	if _, _, err := fx.svc.ExecutePlan(context.Background(), fx.run, request.ContentRequest{Topic: "x"}, p); err != nil {
		t.Fatalf("execute plan: %v", err)
	}
	if fx.backend.maxInFlight > 2 {
		t.Errorf("expected at most 2 concurrent units, saw %d", fx.backend.maxInFlight)
	}
}

func TestExecutePlanStopsOnCancellation(t *testing.T) {
	fx := newExecFixture(t, 8)
	fx.backend.blockOnCtx = true

	p := &plan.Plan{
		ID:     "plan-1",
		Phases: []plan.Phase{phaseOf(0, plan.Unit{ID: "u-1", AgentKind: agent.KindResearch})},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := fx.svc.ExecutePlan(ctx, fx.run, request.ContentRequest{Topic: "x"}, p)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecutePlanTracksPhaseOnRun(t *testing.T) {
	fx := newExecFixture(t, 8)
	p := &plan.Plan{
		ID: "plan-1",
		Phases: []plan.Phase{
			phaseOf(0, plan.Unit{ID: "u-1", AgentKind: agent.KindResearch}),
			phaseOf(1, plan.Unit{ID: "u-2", AgentKind: agent.KindWriting}),
		},
	}

	if _, _, err := fx.svc.ExecutePlan(context.Background(), fx.run, request.ContentRequest{Topic: "x"}, p); err != nil {
		t.Fatalf("execute plan: %v", err)
	}
	if fx.run.Phase != 1 {
		t.Errorf("expected run phase 1 after completion, got %d", fx.run.Phase)
	}
	if n := eventCount(t, fx.events, fx.run.ID, run.EventPhaseCompleted); n != 2 {
		t.Errorf("expected 2 phase.completed events, got %d", n)
	}
}
