// Package memstore provides in-memory implementations of the database
// and eventstore ports. It backs single-node deployments without
// Postgres and doubles as the store for service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/apikey"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/plan"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/validation"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
)

// Store implements database.Store with plain maps behind one mutex.
type Store struct {
	mu            sync.RWMutex
	requests      map[string]request.ContentRequest
	requestOrder  []string
	runs          map[string]run.Run
	runOrder      []string
	plans         map[string]plan.Plan
	contributions map[string][]contribution.Contribution
	conflicts     map[string][]conflict.Record
	resolutions   map[string][]conflict.Resolution
	artifacts     map[string]merge.MergedContent
	artifactByRun map[string]string
	validations   map[string]validation.Result
	apiKeys       map[string]apikey.Key
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		requests:      make(map[string]request.ContentRequest),
		runs:          make(map[string]run.Run),
		plans:         make(map[string]plan.Plan),
		contributions: make(map[string][]contribution.Contribution),
		conflicts:     make(map[string][]conflict.Record),
		resolutions:   make(map[string][]conflict.Resolution),
		artifacts:     make(map[string]merge.MergedContent),
		artifactByRun: make(map[string]string),
		validations:   make(map[string]validation.Result),
		apiKeys:       make(map[string]apikey.Key),
	}
}

var _ database.Store = (*Store)(nil)

func (s *Store) CreateRequest(_ context.Context, req *request.ContentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return fmt.Errorf("request %s exists: %w", req.ID, domain.ErrConflict)
	}
	s.requests[req.ID] = *req
	s.requestOrder = append(s.requestOrder, req.ID)
	return nil
}

func (s *Store) GetRequest(_ context.Context, id string) (*request.ContentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("get request %s: %w", id, domain.ErrNotFound)
	}
	return &req, nil
}

func (s *Store) ListRequests(_ context.Context, limit int) ([]request.ContentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []request.ContentRequest
	// Newest first.
	for i := len(s.requestOrder) - 1; i >= 0; i-- {
		out = append(out, s.requests[s.requestOrder[i]])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateRun(_ context.Context, r *run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("run %s exists: %w", r.ID, domain.ErrConflict)
	}
	s.runs[r.ID] = *r
	s.runOrder = append(s.runOrder, r.ID)
	return nil
}

func (s *Store) GetRun(_ context.Context, id string) (*run.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("get run %s: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

func (s *Store) ListRuns(_ context.Context, filter database.RunFilter) ([]run.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []run.Run
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		r := s.runs[s.runOrder[i]]
		if filter.RequestID != "" && r.RequestID != filter.RequestID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Domain != "" && r.Domain != filter.Domain {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) UpdateRun(_ context.Context, r *run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[r.ID]
	if !ok {
		return fmt.Errorf("update run %s: %w", r.ID, domain.ErrNotFound)
	}
	if stored.Version != r.Version {
		return fmt.Errorf("update run %s: version %d is stale: %w", r.ID, r.Version, domain.ErrConflict)
	}
	r.Version++
	r.UpdatedAt = time.Now().UTC()
	s.runs[r.ID] = *r
	return nil
}

func (s *Store) SavePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = *p
	return nil
}

func (s *Store) GetPlan(_ context.Context, id string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, fmt.Errorf("get plan %s: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) SaveContribution(_ context.Context, c *contribution.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contributions[c.RunID] = append(s.contributions[c.RunID], *c)
	return nil
}

func (s *Store) ListContributions(_ context.Context, runID string) ([]contribution.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contribution.Contribution, len(s.contributions[runID]))
	copy(out, s.contributions[runID])
	return out, nil
}

func (s *Store) SaveConflict(_ context.Context, rec *conflict.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts[rec.RunID] = append(s.conflicts[rec.RunID], *rec)
	return nil
}

func (s *Store) SaveResolution(_ context.Context, res *conflict.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Resolutions carry no run ID; join through the conflict record.
	for runID, recs := range s.conflicts {
		for i := range recs {
			if recs[i].ID == res.ConflictID {
				s.resolutions[runID] = append(s.resolutions[runID], *res)
				return nil
			}
		}
	}
	return fmt.Errorf("save resolution for conflict %s: %w", res.ConflictID, domain.ErrNotFound)
}

func (s *Store) ListConflicts(_ context.Context, runID string) ([]conflict.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]conflict.Record, len(s.conflicts[runID]))
	copy(out, s.conflicts[runID])
	return out, nil
}

func (s *Store) ListResolutions(_ context.Context, runID string) ([]conflict.Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]conflict.Resolution, len(s.resolutions[runID]))
	copy(out, s.resolutions[runID])
	return out, nil
}

func (s *Store) SaveArtifact(_ context.Context, m *merge.MergedContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[m.ID] = *m
	s.artifactByRun[m.RunID] = m.ID
	return nil
}

func (s *Store) GetArtifact(_ context.Context, id string) (*merge.MergedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("get artifact %s: %w", id, domain.ErrNotFound)
	}
	return &m, nil
}

func (s *Store) GetArtifactByRun(_ context.Context, runID string) (*merge.MergedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.artifactByRun[runID]
	if !ok {
		return nil, fmt.Errorf("get artifact for run %s: %w", runID, domain.ErrNotFound)
	}
	m := s.artifacts[id]
	return &m, nil
}

func (s *Store) SaveValidation(_ context.Context, res *validation.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations[res.RunID] = *res
	return nil
}

func (s *Store) GetValidationByRun(_ context.Context, runID string) (*validation.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.validations[runID]
	if !ok {
		return nil, fmt.Errorf("get validation for run %s: %w", runID, domain.ErrNotFound)
	}
	return &res, nil
}

func (s *Store) CreateAPIKey(_ context.Context, k *apikey.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apiKeys[k.ID]; ok {
		return fmt.Errorf("api key %s exists: %w", k.ID, domain.ErrConflict)
	}
	s.apiKeys[k.ID] = *k
	return nil
}

func (s *Store) GetAPIKeyByHash(_ context.Context, hash string) (*apikey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.apiKeys {
		if k.KeyHash == hash {
			return &k, nil
		}
	}
	return nil, fmt.Errorf("get api key: %w", domain.ErrNotFound)
}

func (s *Store) ListAPIKeys(_ context.Context) ([]apikey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]apikey.Key, 0, len(s.apiKeys))
	for _, k := range s.apiKeys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteAPIKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apiKeys[id]; !ok {
		return fmt.Errorf("delete api key %s: %w", id, domain.ErrNotFound)
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) TouchAPIKey(_ context.Context, id string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.apiKeys[id]
	if !ok {
		return fmt.Errorf("touch api key %s: %w", id, domain.ErrNotFound)
	}
	k.LastUsedAt = usedAt
	s.apiKeys[id] = k
	return nil
}
