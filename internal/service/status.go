package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/plan"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/validation"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/cache"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
)

// terminalRunTTL bounds how long finished runs stay cached. Terminal
// runs never change, so the TTL only limits memory, not staleness.
const terminalRunTTL = 10 * time.Minute

// RunStatus is the composed status view for one run.
type RunStatus struct {
	Run           run.Run            `json:"run"`
	Contributions int                `json:"contributions"`
	Conflicts     int                `json:"conflicts"`
	Resolutions   int                `json:"resolutions"`
	Validation    *validation.Result `json:"validation,omitempty"`
}

// StatusService answers run queries. Terminal runs are immutable, so
// their composed views read through the cache; live runs always hit the
// store.
type StatusService struct {
	store  database.Store
	events eventstore.Store
	cache  cache.Cache
}

// NewStatusService creates a StatusService. The cache is optional.
func NewStatusService(store database.Store, events eventstore.Store, c cache.Cache) *StatusService {
	return &StatusService{store: store, events: events, cache: c}
}

// GetRun returns one run by ID.
func (s *StatusService) GetRun(ctx context.Context, id string) (*run.Run, error) {
	return s.store.GetRun(ctx, id)
}

// ListRuns returns runs matching the filter.
func (s *StatusService) ListRuns(ctx context.Context, filter database.RunFilter) ([]run.Run, error) {
	return s.store.ListRuns(ctx, filter)
}

// Status returns the composed status view. Repeated queries against a
// terminal run return the same result.
func (s *StatusService) Status(ctx context.Context, runID string) (*RunStatus, error) {
	key := "status:" + runID
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var st RunStatus
			if uerr := json.Unmarshal(data, &st); uerr == nil {
				return &st, nil
			}
		}
	}

	r, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	st := &RunStatus{Run: *r}

	contribs, err := s.store.ListContributions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	st.Contributions = len(contribs)

	conflicts, err := s.store.ListConflicts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	st.Conflicts = len(conflicts)

	resolutions, err := s.store.ListResolutions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	st.Resolutions = len(resolutions)

	if res, err := s.store.GetValidationByRun(ctx, runID); err == nil {
		st.Validation = res
	}

	if s.cache != nil && r.Status.IsTerminal() {
		if data, merr := json.Marshal(st); merr == nil {
			if cerr := s.cache.Set(ctx, key, data, terminalRunTTL); cerr != nil {
				slog.Debug("cache status", "run_id", runID, "error", cerr)
			}
		}
	}
	return st, nil
}

// Artifact returns the run's merged artifact.
func (s *StatusService) Artifact(ctx context.Context, runID string) (*merge.MergedContent, error) {
	return s.store.GetArtifactByRun(ctx, runID)
}

// Report returns the run's validation report.
func (s *StatusService) Report(ctx context.Context, runID string) (*validation.Result, error) {
	return s.store.GetValidationByRun(ctx, runID)
}

// Plan returns the run's execution plan.
func (s *StatusService) Plan(ctx context.Context, runID string) (*plan.Plan, error) {
	r, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.store.GetPlan(ctx, r.PlanID)
}

// Contributions returns all contributions recorded for the run.
func (s *StatusService) Contributions(ctx context.Context, runID string) ([]contribution.Contribution, error) {
	return s.store.ListContributions(ctx, runID)
}

// Conflicts returns the run's conflict records and resolutions.
func (s *StatusService) Conflicts(ctx context.Context, runID string) ([]conflict.Record, []conflict.Resolution, error) {
	records, err := s.store.ListConflicts(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	resolutions, err := s.store.ListResolutions(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return records, resolutions, nil
}

// Timeline returns a paginated page of run events.
func (s *StatusService) Timeline(ctx context.Context, runID string, filter eventstore.Filter, cursor string, limit int) (*eventstore.Page, error) {
	return s.events.LoadTimeline(ctx, runID, filter, cursor, limit)
}

// Stats returns aggregate event statistics for a run.
func (s *StatusService) Stats(ctx context.Context, runID string) (*eventstore.Summary, error) {
	return s.events.Stats(ctx, runID)
}
