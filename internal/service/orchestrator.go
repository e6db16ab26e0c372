package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	factoryotel "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/otel"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/config"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/plan"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/validation"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/audit"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/broadcast"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/messagequeue"
)

// CancelReason is recorded on runs aborted by caller request.
const CancelReason = "cancelled by request"

// OrchestratorService owns the content run pipeline: profile
// resolution, team recommendation, planning, execution, conflict
// resolution, merge and validation. Each submitted request runs in its
// own goroutine with its own cancellable context.
type OrchestratorService struct {
	store      database.Store
	events     eventstore.Store
	hub        broadcast.Broadcaster
	executor   *ExecutorService
	profiles   *profile.Catalog
	agents     *agent.Catalog
	strategies *conflict.Registry
	validator  *validation.Validator
	detector   *conflict.Detector
	orchCfg    *config.Orchestrator

	queue   messagequeue.Queue
	auditor audit.Sink
	metrics *factoryotel.Metrics

	onRunComplete []func(ctx context.Context, r *run.Run)

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestratorService creates an OrchestratorService with all
// required dependencies. Optional collaborators (queue, audit sink,
// metrics, completion callbacks) attach through setters.
func NewOrchestratorService(
	store database.Store,
	events eventstore.Store,
	hub broadcast.Broadcaster,
	executor *ExecutorService,
	profiles *profile.Catalog,
	agents *agent.Catalog,
	strategies *conflict.Registry,
	validator *validation.Validator,
	orchCfg *config.Orchestrator,
) *OrchestratorService {
	return &OrchestratorService{
		store:      store,
		events:     events,
		hub:        hub,
		executor:   executor,
		profiles:   profiles,
		agents:     agents,
		strategies: strategies,
		validator:  validator,
		detector: conflict.NewDetector(conflict.DetectorConfig{
			SimilarityThreshold: orchCfg.SimilarityThreshold,
		}),
		orchCfg: orchCfg,
		cancels: make(map[string]context.CancelFunc),
	}
}

// SetQueue attaches a message queue for cross-instance run events.
func (s *OrchestratorService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetAuditSink attaches an audit sink.
func (s *OrchestratorService) SetAuditSink(a audit.Sink) { s.auditor = a }

// SetMetrics attaches metric instruments.
func (s *OrchestratorService) SetMetrics(m *factoryotel.Metrics) { s.metrics = m }

// AddOnRunComplete appends a callback invoked after a run reaches a
// terminal state.
func (s *OrchestratorService) AddOnRunComplete(fn func(ctx context.Context, r *run.Run)) {
	s.onRunComplete = append(s.onRunComplete, fn)
}

// Submit validates and persists the request, creates its run and starts
// the pipeline in the background. The returned run is still pending.
func (s *OrchestratorService) Submit(ctx context.Context, req request.ContentRequest) (*run.Run, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Complexity == "" {
		req.Complexity = request.ComplexityStandard
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateRequest(ctx, &req); err != nil {
		return nil, fmt.Errorf("store request: %w", err)
	}

	r := run.New(req.ID)
	if err := s.store.CreateRun(ctx, r); err != nil {
		return nil, fmt.Errorf("store run: %w", err)
	}

	s.appendEvent(ctx, r.ID, run.Event{Type: run.EventCreated, Status: r.Status, Message: req.Topic})
	s.recordAudit(ctx, r.ID, "run.submitted", req.Topic)
	s.publish(ctx, messagequeue.SubjectRunCreated, messagequeue.RunCreatedPayload{
		RunID:     r.ID,
		RequestID: req.ID,
		Domain:    req.Domain,
		Topic:     req.Topic,
	})
	slog.Info("run submitted", "run_id", r.ID, "request_id", req.ID, "topic", req.Topic, "complexity", req.Complexity)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancels[r.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(runCtx, r, req)
	}()

	return r, nil
}

// Cancel aborts a running pipeline. Cancelling a terminal run is a
// no-op that returns the current state.
func (s *OrchestratorService) Cancel(ctx context.Context, runID string) (*run.Run, error) {
	r, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if r.Status.IsTerminal() {
		return r, nil
	}

	s.mu.Lock()
	cancel, inFlight := s.cancels[runID]
	s.mu.Unlock()

	if inFlight {
		// The pipeline goroutine observes cancellation and records the
		// aborted state itself.
		cancel()
		slog.Info("run cancellation requested", "run_id", runID)
		return r, nil
	}

	// No live pipeline (e.g. process restarted mid-run): abort directly.
	r.Abort(CancelReason)
	if err := s.store.UpdateRun(ctx, r); err != nil {
		return nil, fmt.Errorf("abort run: %w", err)
	}
	s.finishRun(ctx, r, 0)
	slog.Warn("run aborted", "run_id", r.ID, "reason", CancelReason)
	return r, nil
}

// Shutdown waits for in-flight pipelines to finish.
func (s *OrchestratorService) Shutdown() {
	s.wg.Wait()
}

// execute drives one run through the full pipeline. Planning and
// phase-exhaustion failures abort the run; a validation verdict below
// threshold is a normal failed terminal, not an abort.
func (s *OrchestratorService) execute(ctx context.Context, r *run.Run, req request.ContentRequest) {
	defer s.unregister(r.ID)
	ctx, span := factoryotel.StartRunSpan(ctx, r.ID, req.Domain)
	defer span.End()

	// Planning: resolve profile, recommend team, build phase plan.
	if !s.advance(ctx, r, run.StatusPlanning) {
		return
	}
	prof, confidence := s.resolveProfile(req)
	r.Domain = prof.Name
	r.DomainConfidence = confidence
	r.Strategy = prof.Integration.Strategy
	r.Template = prof.Integration.Template
	slog.Info("domain resolved", "run_id", r.ID, "domain", prof.Name, "confidence", confidence)

	team, err := s.buildTeam(req, prof)
	if err != nil {
		s.abort(ctx, r, err.Error())
		return
	}
	p, err := plan.Build(req, team, s.agents)
	if err != nil {
		s.abort(ctx, r, err.Error())
		return
	}
	if err := s.store.SavePlan(ctx, p); err != nil {
		s.abort(ctx, r, fmt.Sprintf("store plan: %v", err))
		return
	}
	r.PlanID = p.ID
	r.PhaseCount = p.PhaseCount()
	slog.Info("plan built", "run_id", r.ID, "phases", p.PhaseCount(), "units", p.UnitCount(), "estimated", p.EstimatedDuration)

	// Execution: all phases, barrier-ordered.
	if !s.advance(ctx, r, run.StatusExecuting) {
		return
	}
	contribs, gaps, err := s.executor.ExecutePlan(ctx, r, req, p)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			s.abort(ctx, r, CancelReason)
		case errors.Is(err, ErrPhaseExhausted):
			s.abort(ctx, r, err.Error())
		default:
			s.abort(ctx, r, fmt.Sprintf("execution failed: %v", err))
		}
		return
	}

	// Conflict detection and resolution.
	if !s.advance(ctx, r, run.StatusResolving) {
		return
	}
	resolutions := s.resolveConflicts(ctx, r, prof, contribs)
	if ctx.Err() != nil {
		s.abort(ctx, r, CancelReason)
		return
	}

	// Merge into the profile's template.
	if !s.advance(ctx, r, run.StatusMerging) {
		return
	}
	m := merge.Merge(r.ID, req.Topic, prof.Integration.Template, contribs, resolutions, gaps)
	if ctx.Err() != nil {
		// Cancellation before the artifact is stored leaves no partial
		// merged content behind.
		s.abort(ctx, r, CancelReason)
		return
	}
	if err := s.store.SaveArtifact(ctx, m); err != nil {
		s.abort(ctx, r, fmt.Sprintf("store artifact: %v", err))
		return
	}
	r.ArtifactID = m.ID
	s.appendEvent(ctx, r.ID, run.Event{
		Type:    run.EventArtifactMerged,
		Message: fmt.Sprintf("%d sections, %d empty, %d words", len(m.Sections), m.EmptySectionCount(), m.WordCount()),
	})

	// Validation decides the terminal state.
	if !s.advance(ctx, r, run.StatusValidating) {
		return
	}
	result, err := s.validator.Validate(ctx, r.ID, m, prof)
	if err != nil {
		if ctx.Err() != nil {
			s.abort(ctx, r, CancelReason)
		} else {
			s.abort(ctx, r, fmt.Sprintf("validation error: %v", err))
		}
		return
	}
	if err := s.store.SaveValidation(ctx, result); err != nil {
		s.abort(ctx, r, fmt.Sprintf("store validation: %v", err))
		return
	}
	s.appendEvent(ctx, r.ID, run.Event{
		Type:    run.EventValidationScored,
		Message: fmt.Sprintf("aggregate %.3f against threshold %.2f", result.Aggregate, result.Threshold),
	})

	terminal := run.StatusFailed
	if result.Passed() {
		terminal = run.StatusPassed
	} else {
		r.Reason = failureReason(result)
	}
	if err := r.Transition(terminal); err != nil {
		slog.Error("terminal transition", "run_id", r.ID, "to", terminal, "error", err)
		return
	}
	if err := s.store.UpdateRun(ctx, r); err != nil {
		slog.Error("persist terminal run", "run_id", r.ID, "error", err)
	}
	s.finishRun(ctx, r, result.Aggregate)
	slog.Info("run finished",
		"run_id", r.ID,
		"status", r.Status,
		"aggregate", result.Aggregate,
		"duration", runDuration(r).Round(time.Millisecond),
	)
}

// buildTeam returns the agent team for the request: the caller's
// explicit kinds when given, otherwise the profile's tier-shaped
// recommendation, capped at the configured team size.
func (s *OrchestratorService) buildTeam(req request.ContentRequest, prof profile.Profile) ([]agent.Kind, error) {
	var team []agent.Kind
	if len(req.AgentKinds) > 0 {
		for _, k := range req.AgentKinds {
			team = append(team, agent.Kind(k))
		}
	} else {
		team = profile.RecommendAgents(prof, req.Complexity)
	}
	if len(team) == 0 {
		return nil, fmt.Errorf("no agents for domain %s: %w", prof.Name, plan.ErrPlanning)
	}
	if limit := s.orchCfg.MaxTeamSize; limit > 0 && len(team) > limit {
		slog.Warn("team capped", "recommended", len(team), "max", limit)
		team = team[:limit]
	}
	return team, nil
}

// resolveProfile returns the domain profile for the request: the named
// domain when the catalog knows it, otherwise keyword inference over
// the request's requirements.
func (s *OrchestratorService) resolveProfile(req request.ContentRequest) (profile.Profile, float64) {
	if req.Domain != "" {
		if p, err := s.profiles.Get(req.Domain); err == nil {
			return p, 1.0
		}
		slog.Warn("requested domain not in catalog, inferring", "domain", req.Domain)
	}
	return s.profiles.InferDomain(req.Requirements())
}

// resolveConflicts detects pairwise conflicts, applies the profile's
// resolution strategy once per record and persists both sides of the
// trail. A strategy failure leaves both contributions in play.
func (s *OrchestratorService) resolveConflicts(ctx context.Context, r *run.Run, prof profile.Profile, contribs []contribution.Contribution) []conflict.Resolution {
	records := s.detector.Detect(r.ID, contribs)
	if len(records) == 0 {
		return nil
	}

	byID := make(map[string]contribution.Contribution, len(contribs))
	for _, c := range contribs {
		byID[c.ID] = c
	}

	strategy, err := s.strategies.ForName(prof.Integration.Strategy)
	if err != nil {
		slog.Warn("unknown resolution strategy, using weighted consensus",
			"strategy", prof.Integration.Strategy, "run_id", r.ID)
		strategy = conflict.WeightedConsensus{}
	}

	var resolutions []conflict.Resolution
	for _, rec := range records {
		if ctx.Err() != nil {
			return resolutions
		}
		if err := s.store.SaveConflict(ctx, &rec); err != nil {
			slog.Error("save conflict", "run_id", r.ID, "conflict_id", rec.ID, "error", err)
		}
		s.appendEvent(ctx, r.ID, run.Event{
			Type:    run.EventConflictDetected,
			Message: fmt.Sprintf("%s vs %s (%s, similarity %.2f)", rec.AgentA, rec.AgentB, rec.Severity, rec.Similarity),
		})
		if s.metrics != nil {
			s.metrics.ConflictsDetected.Add(ctx, 1, metric.WithAttributes(
				attribute.String("severity", string(rec.Severity)),
			))
		}

		res, err := strategy.Resolve(rec, byID[rec.ContributionA], byID[rec.ContributionB], prof)
		if err != nil {
			slog.Warn("conflict resolution failed, keeping both sides",
				"run_id", r.ID, "conflict_id", rec.ID, "error", err)
			continue
		}
		if err := s.store.SaveResolution(ctx, &res); err != nil {
			slog.Error("save resolution", "run_id", r.ID, "conflict_id", rec.ID, "error", err)
		}
		resolutions = append(resolutions, res)
		s.appendEvent(ctx, r.ID, run.Event{
			Type:    run.EventConflictResolved,
			Message: fmt.Sprintf("%s kept %s (confidence %.2f)", res.Strategy, byID[res.WinnerID].AgentKind, res.Confidence),
		})
	}
	slog.Info("conflicts resolved", "run_id", r.ID, "detected", len(records), "resolved", len(resolutions))
	return resolutions
}

// advance moves the run to the next status and persists it. Returns
// false when the run context is cancelled or the transition fails, in
// which case the run is aborted.
func (s *OrchestratorService) advance(ctx context.Context, r *run.Run, to run.Status) bool {
	if ctx.Err() != nil {
		s.abort(ctx, r, CancelReason)
		return false
	}
	if err := r.Transition(to); err != nil {
		slog.Error("run transition", "run_id", r.ID, "from", r.Status, "to", to, "error", err)
		s.abort(ctx, r, fmt.Sprintf("illegal transition to %s", to))
		return false
	}
	if err := s.store.UpdateRun(ctx, r); err != nil {
		slog.Error("persist run status", "run_id", r.ID, "status", to, "error", err)
	}
	s.appendEvent(ctx, r.ID, run.Event{Type: run.EventStatusChanged, Status: to})
	s.publish(ctx, messagequeue.SubjectRunStatus, messagequeue.RunStatusPayload{
		RunID:  r.ID,
		Status: string(to),
		Phase:  r.Phase,
	})
	return true
}

// abort records an aborted terminal state. Safe after cancellation: all
// writes use a context detached from the run's.
func (s *OrchestratorService) abort(ctx context.Context, r *run.Run, reason string) {
	dctx := context.WithoutCancel(ctx)
	r.Abort(reason)
	if err := s.store.UpdateRun(dctx, r); err != nil {
		slog.Error("persist aborted run", "run_id", r.ID, "error", err)
	}
	slog.Warn("run aborted", "run_id", r.ID, "reason", reason)
	s.finishRun(dctx, r, 0)
}

// finishRun emits the shared terminal-state trail: event, audit record,
// queue notification, metrics and completion callbacks.
func (s *OrchestratorService) finishRun(ctx context.Context, r *run.Run, aggregate float64) {
	ctx = context.WithoutCancel(ctx)
	s.appendEvent(ctx, r.ID, run.Event{Type: run.EventFinished, Status: r.Status, Message: r.Reason})
	s.recordAudit(ctx, r.ID, "run.finished", string(r.Status))
	s.publish(ctx, messagequeue.SubjectNotifyRuns, messagequeue.NotifyRunPayload{
		RunID:     r.ID,
		RequestID: r.RequestID,
		Status:    string(r.Status),
		Domain:    r.Domain,
		Aggregate: aggregate,
		Reason:    r.Reason,
	})
	if s.metrics != nil {
		s.metrics.RunsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(r.Status)),
		))
		s.metrics.RunDuration.Record(ctx, runDuration(r).Seconds(), metric.WithAttributes(
			attribute.String("status", string(r.Status)),
		))
	}
	for _, fn := range s.onRunComplete {
		fn(ctx, r)
	}
}

// runDuration is the wall time from first transition to terminal state.
// Zero when the run never started or has not finished.
func runDuration(r *run.Run) time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// unregister drops the run's cancel func once the pipeline goroutine
// exits.
func (s *OrchestratorService) unregister(runID string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[runID]; ok {
		cancel()
		delete(s.cancels, runID)
	}
	s.mu.Unlock()
}

// appendEvent persists a run event and broadcasts it to subscribers.
func (s *OrchestratorService) appendEvent(ctx context.Context, runID string, ev run.Event) {
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

// recordAudit writes an audit entry when a sink is attached.
func (s *OrchestratorService) recordAudit(ctx context.Context, runID, action, detail string) {
	if s.auditor == nil {
		return
	}
	e := audit.Entry{
		ID:     uuid.New().String(),
		RunID:  runID,
		Actor:  "orchestrator",
		Action: action,
		Detail: detail,
		At:     time.Now().UTC(),
	}
	if err := s.auditor.Record(ctx, e); err != nil {
		slog.Error("record audit entry", "run_id", runID, "action", action, "error", err)
	}
}

// publish sends a JSON payload to the queue when one is attached.
func (s *OrchestratorService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish queue message", "subject", subject, "error", err)
	}
}

// failureReason summarizes why validation failed: the first failing
// mandatory criterion when one exists, otherwise the aggregate shortfall.
func failureReason(res *validation.Result) string {
	for _, cs := range res.Scores {
		if cs.Mandatory && !cs.Passed {
			return fmt.Sprintf("mandatory criterion %s scored %.2f below %.2f", cs.Name, cs.Score, cs.SubThreshold)
		}
	}
	return fmt.Sprintf("aggregate %.3f below threshold %.2f", res.Aggregate, res.Threshold)
}
