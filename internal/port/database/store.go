// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/apikey"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/plan"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/validation"
)

// RunFilter narrows ListRuns results.
type RunFilter struct {
	RequestID string     `json:"request_id,omitempty"`
	Status    run.Status `json:"status,omitempty"`
	Domain    string     `json:"domain,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// Store is the port interface for database operations.
type Store interface {
	// Requests
	CreateRequest(ctx context.Context, req *request.ContentRequest) error
	GetRequest(ctx context.Context, id string) (*request.ContentRequest, error)
	ListRequests(ctx context.Context, limit int) ([]request.ContentRequest, error)

	// Runs
	CreateRun(ctx context.Context, r *run.Run) error
	GetRun(ctx context.Context, id string) (*run.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]run.Run, error)
	// UpdateRun persists the run using optimistic concurrency on
	// Version; a stale version returns domain.ErrConflict.
	UpdateRun(ctx context.Context, r *run.Run) error

	// Plans
	SavePlan(ctx context.Context, p *plan.Plan) error
	GetPlan(ctx context.Context, id string) (*plan.Plan, error)

	// Contributions
	SaveContribution(ctx context.Context, c *contribution.Contribution) error
	ListContributions(ctx context.Context, runID string) ([]contribution.Contribution, error)

	// Conflicts
	SaveConflict(ctx context.Context, rec *conflict.Record) error
	SaveResolution(ctx context.Context, res *conflict.Resolution) error
	ListConflicts(ctx context.Context, runID string) ([]conflict.Record, error)
	ListResolutions(ctx context.Context, runID string) ([]conflict.Resolution, error)

	// Artifacts
	SaveArtifact(ctx context.Context, m *merge.MergedContent) error
	GetArtifact(ctx context.Context, id string) (*merge.MergedContent, error)
	GetArtifactByRun(ctx context.Context, runID string) (*merge.MergedContent, error)

	// Validation results
	SaveValidation(ctx context.Context, res *validation.Result) error
	GetValidationByRun(ctx context.Context, runID string) (*validation.Result, error)

	// API keys
	CreateAPIKey(ctx context.Context, k *apikey.Key) error
	GetAPIKeyByHash(ctx context.Context, hash string) (*apikey.Key, error)
	ListAPIKeys(ctx context.Context) ([]apikey.Key, error)
	DeleteAPIKey(ctx context.Context, id string) error
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error
}
