package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/merge"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/plan"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/validation"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ database.Store = (*Store)(nil)

// --- Requests ---

func (s *Store) CreateRequest(ctx context.Context, req *request.ContentRequest) error {
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO requests (id, content_type, topic, description, domain, complexity, audience, objectives, params, agent_kinds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.ContentType, req.Topic, req.Description, req.Domain, string(req.Complexity),
		req.Audience, pgTextArray(req.Objectives), paramsJSON, pgTextArray(req.AgentKinds), req.CreatedAt)
	if err != nil {
		return conflictWrap(err, "create request %s", req.ID)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*request.ContentRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, content_type, topic, description, domain, complexity, audience, objectives, params, agent_kinds, created_at
		 FROM requests WHERE id = $1`, id)

	req, err := scanRequest(row)
	if err != nil {
		return nil, notFoundWrap(err, "get request %s", id)
	}
	return &req, nil
}

func (s *Store) ListRequests(ctx context.Context, limit int) ([]request.ContentRequest, error) {
	query := `SELECT id, content_type, topic, description, domain, complexity, audience, objectives, params, agent_kinds, created_at
	          FROM requests ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []request.ContentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// --- Runs ---

const runColumns = `id, request_id, domain, domain_confidence, strategy, template, status, phase, phase_count, plan_id, artifact_id, reason, version, created_at, started_at, finished_at, updated_at`

func (s *Store) CreateRun(ctx context.Context, r *run.Run) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, request_id, domain, domain_confidence, strategy, template, status, phase, phase_count, plan_id, artifact_id, reason, version, created_at, started_at, finished_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		r.ID, r.RequestID, r.Domain, r.DomainConfidence, r.Strategy, r.Template, string(r.Status),
		r.Phase, r.PhaseCount, r.PlanID, r.ArtifactID, r.Reason, r.Version,
		r.CreatedAt, nullTime(r.StartedAt), r.FinishedAt, r.UpdatedAt)
	if err != nil {
		return conflictWrap(err, "create run %s", r.ID)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*run.Run, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM runs WHERE id = $1`, runColumns), id)

	r, err := scanRun(row)
	if err != nil {
		return nil, notFoundWrap(err, "get run %s", id)
	}
	return &r, nil
}

func (s *Store) ListRuns(ctx context.Context, filter database.RunFilter) ([]run.Run, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if filter.RequestID != "" {
		conditions = append(conditions, fmt.Sprintf("request_id = $%d", argIdx))
		args = append(args, filter.RequestID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Domain != "" {
		conditions = append(conditions, fmt.Sprintf("domain = $%d", argIdx))
		args = append(args, filter.Domain)
		argIdx++
	}

	query := fmt.Sprintf(`SELECT %s FROM runs`, runColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []run.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) UpdateRun(ctx context.Context, r *run.Run) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET domain = $2, domain_confidence = $3, strategy = $4, template = $5, status = $6,
		        phase = $7, phase_count = $8, plan_id = $9, artifact_id = $10, reason = $11,
		        started_at = $12, finished_at = $13, version = version + 1, updated_at = $14
		 WHERE id = $1 AND version = $15`,
		r.ID, r.Domain, r.DomainConfidence, r.Strategy, r.Template, string(r.Status),
		r.Phase, r.PhaseCount, r.PlanID, r.ArtifactID, r.Reason,
		nullTime(r.StartedAt), r.FinishedAt, now, r.Version)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM runs WHERE id = $1)`, r.ID).Scan(&exists); err != nil {
			return fmt.Errorf("update run %s: %w", r.ID, err)
		}
		if !exists {
			return fmt.Errorf("update run %s: %w", r.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update run %s: version %d is stale: %w", r.ID, r.Version, domain.ErrConflict)
	}
	r.Version++
	r.UpdatedAt = now
	return nil
}

// --- Plans ---

func (s *Store) SavePlan(ctx context.Context, p *plan.Plan) error {
	phasesJSON, err := json.Marshal(p.Phases)
	if err != nil {
		return fmt.Errorf("marshal phases: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO plans (id, request_id, domain, phases, estimated_duration_ns, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET phases = EXCLUDED.phases, estimated_duration_ns = EXCLUDED.estimated_duration_ns`,
		p.ID, p.RequestID, p.Domain, phasesJSON, int64(p.EstimatedDuration), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("save plan %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, id string) (*plan.Plan, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, request_id, domain, phases, estimated_duration_ns, created_at
		 FROM plans WHERE id = $1`, id)

	p, err := scanPlan(row)
	if err != nil {
		return nil, notFoundWrap(err, "get plan %s", id)
	}
	return &p, nil
}

// --- Contributions ---

func (s *Store) SaveContribution(ctx context.Context, c *contribution.Contribution) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contributions (id, run_id, unit_id, agent_kind, phase, content, quality_estimate, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.RunID, c.UnitID, string(c.AgentKind), c.Phase, c.Content, c.QualityEstimate, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("save contribution %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) ListContributions(ctx context.Context, runID string) ([]contribution.Contribution, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, unit_id, agent_kind, phase, content, quality_estimate, created_at
		 FROM contributions WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("list contributions for run %s: %w", runID, err)
	}
	defer rows.Close()

	var contribs []contribution.Contribution
	for rows.Next() {
		var c contribution.Contribution
		if err := rows.Scan(&c.ID, &c.RunID, &c.UnitID, &c.AgentKind, &c.Phase, &c.Content, &c.QualityEstimate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		contribs = append(contribs, c)
	}
	return contribs, rows.Err()
}

// --- Conflicts ---

func (s *Store) SaveConflict(ctx context.Context, rec *conflict.Record) error {
	signalsJSON, err := json.Marshal(rec.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO conflicts (id, run_id, contribution_a, contribution_b, agent_a, agent_b, similarity, signals, severity, detected_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.RunID, rec.ContributionA, rec.ContributionB, string(rec.AgentA), string(rec.AgentB),
		rec.Similarity, signalsJSON, string(rec.Severity), rec.DetectedAt)
	if err != nil {
		return fmt.Errorf("save conflict %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) SaveResolution(ctx context.Context, res *conflict.Resolution) error {
	// Resolutions carry no run ID; the conflict row scopes them. The
	// INSERT..SELECT affects zero rows when the conflict is unknown.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO resolutions (conflict_id, winner_id, loser_id, confidence, strategy, rationale, resolved_at)
		 SELECT c.id, $2, $3, $4, $5, $6, $7 FROM conflicts c WHERE c.id = $1`,
		res.ConflictID, res.WinnerID, res.LoserID, res.Confidence, res.Strategy, res.Rationale, res.ResolvedAt)
	return execExpectOne(tag, err, "save resolution for conflict %s", res.ConflictID)
}

func (s *Store) ListConflicts(ctx context.Context, runID string) ([]conflict.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, contribution_a, contribution_b, agent_a, agent_b, similarity, signals, severity, detected_at
		 FROM conflicts WHERE run_id = $1 ORDER BY detected_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts for run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []conflict.Record
	for rows.Next() {
		rec, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) ListResolutions(ctx context.Context, runID string) ([]conflict.Resolution, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.conflict_id, r.winner_id, r.loser_id, r.confidence, r.strategy, r.rationale, r.resolved_at
		 FROM resolutions r JOIN conflicts c ON c.id = r.conflict_id
		 WHERE c.run_id = $1 ORDER BY r.resolved_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("list resolutions for run %s: %w", runID, err)
	}
	defer rows.Close()

	var resolutions []conflict.Resolution
	for rows.Next() {
		var res conflict.Resolution
		if err := rows.Scan(&res.ConflictID, &res.WinnerID, &res.LoserID, &res.Confidence, &res.Strategy, &res.Rationale, &res.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, rows.Err()
}

// --- Artifacts ---

func (s *Store) SaveArtifact(ctx context.Context, m *merge.MergedContent) error {
	sectionsJSON, err := json.Marshal(m.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	crossRefsJSON, err := json.Marshal(m.CrossRefs)
	if err != nil {
		return fmt.Errorf("marshal cross_refs: %w", err)
	}
	metadataJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	gapsJSON, err := json.Marshal(m.Gaps)
	if err != nil {
		return fmt.Errorf("marshal gaps: %w", err)
	}

	// One artifact per run; a re-merge replaces it.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO artifacts (id, run_id, title, template, sections, cross_refs, metadata, gaps, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (run_id) DO UPDATE SET id = EXCLUDED.id, title = EXCLUDED.title, template = EXCLUDED.template,
		     sections = EXCLUDED.sections, cross_refs = EXCLUDED.cross_refs, metadata = EXCLUDED.metadata,
		     gaps = EXCLUDED.gaps, created_at = EXCLUDED.created_at`,
		m.ID, m.RunID, m.Title, m.Template, sectionsJSON, crossRefsJSON, metadataJSON, gapsJSON, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) GetArtifact(ctx context.Context, id string) (*merge.MergedContent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, run_id, title, template, sections, cross_refs, metadata, gaps, created_at
		 FROM artifacts WHERE id = $1`, id)

	m, err := scanArtifact(row)
	if err != nil {
		return nil, notFoundWrap(err, "get artifact %s", id)
	}
	return &m, nil
}

func (s *Store) GetArtifactByRun(ctx context.Context, runID string) (*merge.MergedContent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, run_id, title, template, sections, cross_refs, metadata, gaps, created_at
		 FROM artifacts WHERE run_id = $1`, runID)

	m, err := scanArtifact(row)
	if err != nil {
		return nil, notFoundWrap(err, "get artifact for run %s", runID)
	}
	return &m, nil
}

// --- Validation results ---

func (s *Store) SaveValidation(ctx context.Context, res *validation.Result) error {
	scoresJSON, err := json.Marshal(res.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	recsJSON, err := json.Marshal(res.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO validation_reports (run_id, artifact_id, state, aggregate, threshold, scores, recommendations, validated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id) DO UPDATE SET artifact_id = EXCLUDED.artifact_id, state = EXCLUDED.state,
		     aggregate = EXCLUDED.aggregate, threshold = EXCLUDED.threshold, scores = EXCLUDED.scores,
		     recommendations = EXCLUDED.recommendations, validated_at = EXCLUDED.validated_at`,
		res.RunID, res.ArtifactID, string(res.State), res.Aggregate, res.Threshold, scoresJSON, recsJSON, res.ValidatedAt)
	if err != nil {
		return fmt.Errorf("save validation for run %s: %w", res.RunID, err)
	}
	return nil
}

func (s *Store) GetValidationByRun(ctx context.Context, runID string) (*validation.Result, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT run_id, artifact_id, state, aggregate, threshold, scores, recommendations, validated_at
		 FROM validation_reports WHERE run_id = $1`, runID)

	res, err := scanValidation(row)
	if err != nil {
		return nil, notFoundWrap(err, "get validation for run %s", runID)
	}
	return &res, nil
}

// --- Scan helpers ---

func scanRequest(row scannable) (request.ContentRequest, error) {
	var req request.ContentRequest
	var paramsJSON []byte
	err := row.Scan(&req.ID, &req.ContentType, &req.Topic, &req.Description, &req.Domain,
		&req.Complexity, &req.Audience, &req.Objectives, &paramsJSON, &req.AgentKinds, &req.CreatedAt)
	if err != nil {
		return req, err
	}
	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &req.Params); err != nil {
			return req, fmt.Errorf("unmarshal request params: %w", err)
		}
	}
	return req, nil
}

func scanRun(row scannable) (run.Run, error) {
	var r run.Run
	var startedAt sql.NullTime
	err := row.Scan(&r.ID, &r.RequestID, &r.Domain, &r.DomainConfidence, &r.Strategy, &r.Template,
		&r.Status, &r.Phase, &r.PhaseCount, &r.PlanID, &r.ArtifactID, &r.Reason, &r.Version,
		&r.CreatedAt, &startedAt, &r.FinishedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if startedAt.Valid {
		r.StartedAt = startedAt.Time
	}
	return r, nil
}

func scanPlan(row scannable) (plan.Plan, error) {
	var p plan.Plan
	var phasesJSON []byte
	var durationNS int64
	err := row.Scan(&p.ID, &p.RequestID, &p.Domain, &phasesJSON, &durationNS, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	if phasesJSON != nil {
		if err := json.Unmarshal(phasesJSON, &p.Phases); err != nil {
			return p, fmt.Errorf("unmarshal plan phases: %w", err)
		}
	}
	p.EstimatedDuration = time.Duration(durationNS)
	return p, nil
}

func scanConflict(row scannable) (conflict.Record, error) {
	var rec conflict.Record
	var signalsJSON []byte
	err := row.Scan(&rec.ID, &rec.RunID, &rec.ContributionA, &rec.ContributionB, &rec.AgentA, &rec.AgentB,
		&rec.Similarity, &signalsJSON, &rec.Severity, &rec.DetectedAt)
	if err != nil {
		return rec, err
	}
	if signalsJSON != nil {
		if err := json.Unmarshal(signalsJSON, &rec.Signals); err != nil {
			return rec, fmt.Errorf("unmarshal conflict signals: %w", err)
		}
	}
	return rec, nil
}

func scanArtifact(row scannable) (merge.MergedContent, error) {
	var m merge.MergedContent
	var sectionsJSON, crossRefsJSON, metadataJSON, gapsJSON []byte
	err := row.Scan(&m.ID, &m.RunID, &m.Title, &m.Template, &sectionsJSON, &crossRefsJSON, &metadataJSON, &gapsJSON, &m.CreatedAt)
	if err != nil {
		return m, err
	}
	if sectionsJSON != nil {
		if err := json.Unmarshal(sectionsJSON, &m.Sections); err != nil {
			return m, fmt.Errorf("unmarshal artifact sections: %w", err)
		}
	}
	if crossRefsJSON != nil {
		if err := json.Unmarshal(crossRefsJSON, &m.CrossRefs); err != nil {
			return m, fmt.Errorf("unmarshal artifact cross_refs: %w", err)
		}
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return m, fmt.Errorf("unmarshal artifact metadata: %w", err)
		}
	}
	if gapsJSON != nil {
		if err := json.Unmarshal(gapsJSON, &m.Gaps); err != nil {
			return m, fmt.Errorf("unmarshal artifact gaps: %w", err)
		}
	}
	return m, nil
}

func scanValidation(row scannable) (validation.Result, error) {
	var res validation.Result
	var scoresJSON, recsJSON []byte
	err := row.Scan(&res.RunID, &res.ArtifactID, &res.State, &res.Aggregate, &res.Threshold, &scoresJSON, &recsJSON, &res.ValidatedAt)
	if err != nil {
		return res, err
	}
	if scoresJSON != nil {
		if err := json.Unmarshal(scoresJSON, &res.Scores); err != nil {
			return res, fmt.Errorf("unmarshal validation scores: %w", err)
		}
	}
	if recsJSON != nil {
		if err := json.Unmarshal(recsJSON, &res.Recommendations); err != nil {
			return res, fmt.Errorf("unmarshal validation recommendations: %w", err)
		}
	}
	return res, nil
}
