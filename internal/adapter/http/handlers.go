package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/apikey"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/contribution"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Orchestrator *service.OrchestratorService
	Status       *service.StatusService
	Auth         *service.AuthService
	Agents       *agent.Catalog
	Profiles     *profile.Catalog
	Strategies   *conflict.Registry
}

// --- Runs ---

// SubmitRun handles POST /api/v1/runs
func (h *Handlers) SubmitRun(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[request.ContentRequest](w, r)
	if !ok {
		return
	}

	created, err := h.Orchestrator.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "submit failed")
		return
	}
	// The run executes in the background; the caller polls or subscribes.
	writeJSON(w, http.StatusAccepted, created)
}

// ListRuns handles GET /api/v1/runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := database.RunFilter{
		RequestID: r.URL.Query().Get("request_id"),
		Status:    run.Status(r.URL.Query().Get("status")),
		Domain:    r.URL.Query().Get("domain"),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	runs, err := h.Status.ListRuns(r.Context(), filter)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if runs == nil {
		runs = []run.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{id}
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.Status.Status(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// CancelRun handles POST /api/v1/runs/{id}/cancel
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cancelled, err := h.Orchestrator.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

// GetRunArtifact handles GET /api/v1/runs/{id}/artifact
func (h *Handlers) GetRunArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := h.Status.Artifact(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "artifact not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetRunReport handles GET /api/v1/runs/{id}/report
func (h *Handlers) GetRunReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.Status.Report(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "validation report not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetRunPlan handles GET /api/v1/runs/{id}/plan
func (h *Handlers) GetRunPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.Status.Plan(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListRunContributions handles GET /api/v1/runs/{id}/contributions
func (h *Handlers) ListRunContributions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	contribs, err := h.Status.Contributions(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	if contribs == nil {
		contribs = []contribution.Contribution{}
	}
	writeJSON(w, http.StatusOK, contribs)
}

// ListRunConflicts handles GET /api/v1/runs/{id}/conflicts
func (h *Handlers) ListRunConflicts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, resolutions, err := h.Status.Conflicts(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conflicts":   records,
		"resolutions": resolutions,
	})
}

// GetRunTimeline handles GET /api/v1/runs/{id}/events
func (h *Handlers) GetRunTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	filter := eventstore.Filter{}
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			filter.Types = append(filter.Types, run.EventType(strings.TrimSpace(t)))
		}
	}
	if after := r.URL.Query().Get("after"); after != "" {
		if ts, err := time.Parse(time.RFC3339, after); err == nil {
			filter.After = &ts
		}
	}
	if before := r.URL.Query().Get("before"); before != "" {
		if ts, err := time.Parse(time.RFC3339, before); err == nil {
			filter.Before = &ts
		}
	}

	cursor := r.URL.Query().Get("cursor")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}

	page, err := h.Status.Timeline(r.Context(), id, filter, cursor, limit)
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetRunStats handles GET /api/v1/runs/{id}/stats
func (h *Handlers) GetRunStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := h.Status.Stats(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Catalog ---

// ListAgents handles GET /api/v1/agents
func (h *Handlers) ListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Agents.Definitions())
}

// GetAgent handles GET /api/v1/agents/{kind}
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	def, err := h.Agents.Lookup(agent.Kind(kind))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown agent kind")
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// ListProfiles handles GET /api/v1/profiles
func (h *Handlers) ListProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Profiles.Names())
}

// GetProfile handles GET /api/v1/profiles/{name}
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := h.Profiles.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type inferRequest struct {
	Text string `json:"text"`
}

type inferResponse struct {
	Profile    string  `json:"profile"`
	Confidence float64 `json:"confidence"`
}

// InferProfile handles POST /api/v1/profiles/infer
func (h *Handlers) InferProfile(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[inferRequest](w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	p, confidence := h.Profiles.InferDomain(strings.Fields(strings.ToLower(req.Text)))
	writeJSON(w, http.StatusOK, inferResponse{Profile: p.Name, Confidence: confidence})
}

// ListStrategies handles GET /api/v1/strategies
func (h *Handlers) ListStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Strategies.Names())
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[loginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		slog.Debug("login failed", "username", req.Username, "error", err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateAPIKey handles POST /api/v1/auth/api-keys
func (h *Handlers) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[apikey.CreateRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.CreateAPIKey(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListAPIKeys handles GET /api/v1/auth/api-keys
func (h *Handlers) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Auth.ListAPIKeys(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if keys == nil {
		keys = []apikey.Key{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// DeleteAPIKey handles DELETE /api/v1/auth/api-keys/{id}
func (h *Handlers) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Auth.DeleteAPIKey(r.Context(), id); err != nil {
		writeDomainError(w, err, "api key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
