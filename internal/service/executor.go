package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	factoryotel "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/otel"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/config"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/plan"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/broadcast"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/resilience"
)

// ErrPhaseExhausted means every unit of a phase failed permanently,
// leaving downstream phases without their required inputs. Fatal to the
// run.
var ErrPhaseExhausted = errors.New("phase exhausted: all units failed")

// ExecutorService drives plan execution: phases run as barriers, units
// inside a phase run concurrently under a global slot cap and per-kind
// concurrency ceilings shared across all runs.
type ExecutorService struct {
	backend  agentexec.Executor
	store    database.Store
	events   eventstore.Store
	hub      broadcast.Broadcaster
	cat      *agent.Catalog
	execCfg  *config.Executor
	breakers *resilience.Group
	global   *semaphore.Weighted
	metrics  *factoryotel.Metrics

	semMu sync.Mutex
	sems  map[agent.Kind]*semaphore.Weighted
}

// NewExecutorService creates an ExecutorService with all dependencies.
func NewExecutorService(
	backend agentexec.Executor,
	store database.Store,
	events eventstore.Store,
	hub broadcast.Broadcaster,
	cat *agent.Catalog,
	execCfg *config.Executor,
	orchCfg *config.Orchestrator,
	breakerCfg *config.Breaker,
) *ExecutorService {
	maxParallel := orchCfg.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &ExecutorService{
		backend:  backend,
		store:    store,
		events:   events,
		hub:      hub,
		cat:      cat,
		execCfg:  execCfg,
		breakers: resilience.NewGroup(breakerCfg.MaxFailures, breakerCfg.Timeout),
		global:   semaphore.NewWeighted(int64(maxParallel)),
		sems:     make(map[agent.Kind]*semaphore.Weighted),
	}
}

// SetMetrics attaches metric instruments. Optional; nil metrics are
// skipped.
func (s *ExecutorService) SetMetrics(m *factoryotel.Metrics) {
	s.metrics = m
}

// ExecutePlan runs every phase of the plan in order. A phase completes
// only when all its units have either produced a contribution or failed
// past the retry limit; failures become gaps. A phase whose units all
// failed aborts execution with ErrPhaseExhausted.
//
// Contributions from earlier phases are passed to later units keyed by
// agent kind so dependent agents build on upstream output.
func (s *ExecutorService) ExecutePlan(ctx context.Context, r *run.Run, req request.ContentRequest, p *plan.Plan) ([]contribution.Contribution, []contribution.Gap, error) {
	var (
		contribs []contribution.Contribution
		gaps     []contribution.Gap
	)
	upstream := make(map[string]string)

	for _, phase := range p.Phases {
		phaseCtx, span := factoryotel.StartPhaseSpan(ctx, r.ID, phase.Index)
		r.Phase = phase.Index
		if err := s.store.UpdateRun(ctx, r); err != nil {
			slog.Warn("persist run phase", "run_id", r.ID, "phase", phase.Index, "error", err)
		}
		s.appendEvent(ctx, r.ID, run.Event{
			Type:    run.EventPhaseStarted,
			Phase:   phase.Index,
			Message: fmt.Sprintf("%d units", len(phase.Units)),
		})

		// All units in a phase see the same upstream snapshot, never
		// each other's output.
		snapshot := make(map[string]string, len(upstream))
		for k, v := range upstream {
			snapshot[k] = v
		}

		var (
			mu           sync.Mutex
			phaseContrib []contribution.Contribution
			phaseGaps    []contribution.Gap
		)
		g := new(errgroup.Group)
		for _, unit := range phase.Units {
			g.Go(func() error {
				c, gap := s.executeUnit(phaseCtx, r, req, unit, snapshot)
				mu.Lock()
				defer mu.Unlock()
				if c != nil {
					phaseContrib = append(phaseContrib, *c)
				}
				if gap != nil {
					phaseGaps = append(phaseGaps, *gap)
				}
				return nil
			})
		}
		_ = g.Wait()
		span.End()

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if len(phase.Units) > 0 && len(phaseContrib) == 0 {
			return nil, nil, fmt.Errorf("phase %d: %w", phase.Index, ErrPhaseExhausted)
		}

		contribs = append(contribs, phaseContrib...)
		gaps = append(gaps, phaseGaps...)
		for _, c := range phaseContrib {
			key := string(c.AgentKind)
			if prev, ok := upstream[key]; ok {
				upstream[key] = prev + "\n\n" + c.Content
			} else {
				upstream[key] = c.Content
			}
		}

		s.appendEvent(ctx, r.ID, run.Event{
			Type:    run.EventPhaseCompleted,
			Phase:   phase.Index,
			Message: fmt.Sprintf("%d contributions, %d gaps", len(phaseContrib), len(phaseGaps)),
		})
	}
	return contribs, gaps, nil
}

// executeUnit invokes one unit through the backend with per-attempt
// timeout, transient-error retries and the circuit breaker for the
// unit's agent kind. Permanent failure returns a gap instead of an
// error.
func (s *ExecutorService) executeUnit(ctx context.Context, r *run.Run, req request.ContentRequest, u plan.Unit, upstream map[string]string) (*contribution.Contribution, *contribution.Gap) {
	if err := s.global.Acquire(ctx, 1); err != nil {
		return nil, &contribution.Gap{UnitID: u.ID, AgentKind: u.AgentKind, Phase: u.Phase, Reason: "cancelled before start"}
	}
	defer s.global.Release(1)

	sem := s.semFor(u.AgentKind)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, &contribution.Gap{UnitID: u.ID, AgentKind: u.AgentKind, Phase: u.Phase, Reason: "cancelled before start"}
	}
	defer sem.Release(1)

	role := ""
	if def, err := s.cat.Lookup(u.AgentKind); err == nil {
		role = def.Role
	}

	s.appendEvent(ctx, r.ID, run.Event{
		Type:      run.EventUnitStarted,
		Phase:     u.Phase,
		UnitID:    u.ID,
		AgentKind: string(u.AgentKind),
	})

	uctx, span := factoryotel.StartUnitSpan(ctx, u.ID, u.AgentKind)
	defer span.End()

	var res *agentexec.Result
	attempt := 0
	policy := resilience.RetryPolicy{
		MaxAttempts: s.execCfg.MaxRetries,
		Delay:       s.execCfg.RetryDelay,
		Retryable: func(err error) bool {
			return agentexec.Transient(err) || errors.Is(err, resilience.ErrCircuitOpen)
		},
	}
	err := resilience.Retry(uctx, policy, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.appendEvent(ctx, r.ID, run.Event{
				Type:      run.EventUnitRetried,
				Phase:     u.Phase,
				UnitID:    u.ID,
				AgentKind: string(u.AgentKind),
				Message:   fmt.Sprintf("attempt %d of %d", attempt, policy.MaxAttempts),
			})
			if s.metrics != nil {
				s.metrics.UnitRetries.Add(ctx, 1, metric.WithAttributes(
					attribute.String("agent_kind", string(u.AgentKind)),
				))
			}
		}
		ictx, cancel := context.WithTimeout(ctx, s.execCfg.UnitTimeout)
		defer cancel()
		return s.breakers.For(string(u.AgentKind)).Execute(func() error {
			out, ierr := s.backend.Invoke(ictx, agentexec.Invocation{
				RunID:     r.ID,
				UnitID:    u.ID,
				AgentKind: u.AgentKind,
				Role:      role,
				Request:   req,
				Context:   upstream,
				Timeout:   s.execCfg.UnitTimeout,
				Attempt:   attempt,
			})
			if ierr != nil {
				return ierr
			}
			res = out
			return nil
		})
	})
	if err != nil {
		slog.Warn("unit failed permanently",
			"run_id", r.ID,
			"unit_id", u.ID,
			"agent_kind", u.AgentKind,
			"attempts", attempt,
			"error", err,
		)
		s.appendEvent(ctx, r.ID, run.Event{
			Type:      run.EventUnitFailed,
			Phase:     u.Phase,
			UnitID:    u.ID,
			AgentKind: string(u.AgentKind),
			Message:   err.Error(),
		})
		if s.metrics != nil {
			s.metrics.UnitsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("agent_kind", string(u.AgentKind)),
				attribute.String("outcome", "failed"),
			))
		}
		return nil, &contribution.Gap{UnitID: u.ID, AgentKind: u.AgentKind, Phase: u.Phase, Reason: err.Error()}
	}

	c := &contribution.Contribution{
		ID:              uuid.New().String(),
		RunID:           r.ID,
		UnitID:          u.ID,
		AgentKind:       u.AgentKind,
		Phase:           u.Phase,
		Content:         res.Content,
		QualityEstimate: res.QualityEstimate,
		CreatedAt:       time.Now().UTC(),
	}
	if serr := s.store.SaveContribution(ctx, c); serr != nil {
		slog.Error("save contribution", "run_id", r.ID, "unit_id", u.ID, "error", serr)
	}
	s.appendEvent(ctx, r.ID, run.Event{
		Type:      run.EventUnitSucceeded,
		Phase:     u.Phase,
		UnitID:    u.ID,
		AgentKind: string(u.AgentKind),
		Message:   fmt.Sprintf("%d bytes in %s", len(res.Content), res.Duration.Round(time.Millisecond)),
	})
	if s.metrics != nil {
		s.metrics.UnitsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent_kind", string(u.AgentKind)),
			attribute.String("outcome", "succeeded"),
		))
	}
	return c, nil
}

// semFor returns the global per-kind semaphore, creating it at the
// catalog's concurrency ceiling on first use.
func (s *ExecutorService) semFor(kind agent.Kind) *semaphore.Weighted {
	s.semMu.Lock()
	defer s.semMu.Unlock()
	if sem, ok := s.sems[kind]; ok {
		return sem
	}
	ceiling, err := s.cat.ConcurrencyCeiling(kind)
	if err != nil || ceiling < 1 {
		ceiling = 1
	}
	sem := semaphore.NewWeighted(int64(ceiling))
	s.sems[kind] = sem
	return sem
}

// appendEvent persists a run event and broadcasts it to subscribers.
// Event persistence is best-effort; failures are logged, not fatal.
func (s *ExecutorService) appendEvent(ctx context.Context, runID string, ev run.Event) {
	ev.ID = uuid.New().String()
	ev.RunID = runID
	ev.At = time.Now().UTC()
	if err := s.events.Append(ctx, &ev); err != nil {
		slog.Error("append run event", "run_id", runID, "type", ev.Type, "error", err)
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, string(ev.Type), ev)
	}
}
