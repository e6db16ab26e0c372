package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	factoryhttp "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/http"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/memstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/stubexec"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/config"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/apikey"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/validation"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/middleware"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/service"
)

type apiFixture struct {
	router *chi.Mux
	orch   *service.OrchestratorService
	store  *memstore.Store
	auth   *service.AuthService
}

// newAPIFixture wires a full in-memory stack behind the API routes.
// authEnabled gates the auth middleware, matching production wiring.
func newAPIFixture(t *testing.T, profiles *profile.Catalog, authEnabled bool) *apiFixture {
	t.Helper()

	backend, err := stubexec.New(nil)
	if err != nil {
		t.Fatalf("stub backend: %v", err)
	}
	store := memstore.NewStore()
	events := memstore.NewEventStore()
	cat := agent.Defaults()
	orchCfg := &config.Orchestrator{MaxParallel: 8, MaxTeamSize: 12, SimilarityThreshold: 0.3}

	exec := service.NewExecutorService(
		backend, store, events, nil, cat,
		&config.Executor{UnitTimeout: time.Second, MaxRetries: 2, RetryDelay: time.Millisecond},
		orchCfg,
		&config.Breaker{MaxFailures: 100, Timeout: time.Second},
	)
	orch := service.NewOrchestratorService(
		store, events, nil, exec,
		profiles, cat,
		conflict.DefaultRegistry(),
		validation.NewValidator(validation.DefaultRegistry()),
		orchCfg,
	)
	status := service.NewStatusService(store, events, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	authSvc, err := service.NewAuthService(store, &config.Auth{
		Enabled:           authEnabled,
		AdminUser:         "admin",
		AdminPasswordHash: string(hash),
		TokenTTL:          time.Hour,
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	handlers := &factoryhttp.Handlers{
		Orchestrator: orch,
		Status:       status,
		Auth:         authSvc,
		Agents:       cat,
		Profiles:     profiles,
		Strategies:   conflict.DefaultRegistry(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Auth(authSvc, authEnabled))
	factoryhttp.MountRoutes(r, handlers)
	return &apiFixture{router: r, orch: orch, store: store, auth: authSvc}
}

// lenientCatalog always validates to PASSED: its single criterion has
// no registered scorer, so it scores neutral, far above the threshold.
func lenientCatalog(t *testing.T) *profile.Catalog {
	t.Helper()
	cat, err := profile.NewCatalog(profile.Profile{
		Name:             profile.GeneralName,
		PreferredAgents:  []agent.Kind{agent.KindResearch, agent.KindWriting},
		Criteria:         []profile.Criterion{{Name: "editorial-signoff", Weight: 5}},
		QualityThreshold: 0.05,
		Integration:      profile.Integration{Template: "concise", Strategy: "weighted-consensus"},
	})
	if err != nil {
		t.Fatalf("build profiles: %v", err)
	}
	return cat
}

func newTestRouter(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIFixture(t, profile.Defaults(), false)
}

func (fx *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func decodeAs[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	return out
}

func TestVersionEndpoint(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	result := decodeAs[map[string]string](t, w)
	if result["version"] != "0.1.0" {
		t.Fatalf("expected version 0.1.0, got %q", result["version"])
	}
}

func TestSubmitRunAccepted(t *testing.T) {
	fx := newAPIFixture(t, lenientCatalog(t), false)

	w := fx.do(t, "POST", "/api/v1/runs", request.ContentRequest{
		ContentType: "article",
		Topic:       "connection pooling",
	}, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	created := decodeAs[run.Run](t, w)
	if created.ID == "" {
		t.Fatal("expected a run id")
	}
	if created.Status != run.StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	// Wait for the background pipeline, then read the composed view.
	fx.orch.Shutdown()

	w = fx.do(t, "GET", "/api/v1/runs/"+created.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	status := decodeAs[service.RunStatus](t, w)
	if status.Run.Status != run.StatusPassed {
		t.Fatalf("expected passed, got %s (%s)", status.Run.Status, status.Run.Reason)
	}
	if status.Run.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
	if status.Contributions == 0 {
		t.Fatal("expected contributions in composed view")
	}
}

func TestSubmitRunMissingTopic(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "POST", "/api/v1/runs", request.ContentRequest{ContentType: "article"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	errResp := decodeAs[map[string]string](t, w)
	if errResp["error"] == "" {
		t.Fatal("expected error envelope")
	}
}

func TestSubmitRunInvalidBody(t *testing.T) {
	fx := newTestRouter(t)

	req := httptest.NewRequest("POST", "/api/v1/runs", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListRunsEmpty(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/runs", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Fatalf("expected empty JSON array, got %s", body)
	}
}

func TestGetRunNotFound(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/runs/nonexistent", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	errResp := decodeAs[map[string]string](t, w)
	if errResp["error"] != "run not found" {
		t.Fatalf("unexpected error message: %q", errResp["error"])
	}
}

func TestGetRunArtifactNotFound(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/runs/nonexistent/artifact", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCancelRunNotFound(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "POST", "/api/v1/runs/nonexistent/cancel", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRunTimelineAndStats(t *testing.T) {
	fx := newAPIFixture(t, lenientCatalog(t), false)

	w := fx.do(t, "POST", "/api/v1/runs", request.ContentRequest{
		ContentType: "article",
		Topic:       "cache invalidation",
	}, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	created := decodeAs[run.Run](t, w)
	fx.orch.Shutdown()

	w = fx.do(t, "GET", "/api/v1/runs/"+created.ID+"/events?limit=5", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	page := decodeAs[eventstore.Page](t, w)
	if len(page.Events) == 0 {
		t.Fatal("expected events in timeline")
	}
	if len(page.Events) > 5 {
		t.Fatalf("limit ignored: got %d events", len(page.Events))
	}
	if page.Total < len(page.Events) {
		t.Fatalf("total %d below page size %d", page.Total, len(page.Events))
	}

	// Filter by type.
	w = fx.do(t, "GET", "/api/v1/runs/"+created.ID+"/events?types=run.finished", nil, nil)
	page = decodeAs[eventstore.Page](t, w)
	for _, ev := range page.Events {
		if ev.Type != run.EventFinished {
			t.Fatalf("type filter leaked %s", ev.Type)
		}
	}

	w = fx.do(t, "GET", "/api/v1/runs/"+created.ID+"/stats", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	stats := decodeAs[eventstore.Summary](t, w)
	if stats.TotalEvents == 0 {
		t.Fatal("expected event stats")
	}
}

func TestListAgents(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/agents", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	defs := decodeAs[[]agent.Definition](t, w)
	if len(defs) == 0 {
		t.Fatal("expected agent definitions")
	}
}

func TestGetAgent(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/agents/research", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	def := decodeAs[agent.Definition](t, w)
	if def.Kind != agent.KindResearch {
		t.Fatalf("kind = %q", def.Kind)
	}

	w = fx.do(t, "GET", "/api/v1/agents/telepathy", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown kind, got %d", w.Code)
	}
}

func TestListProfiles(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/profiles", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	names := decodeAs[[]string](t, w)
	found := false
	for _, n := range names {
		if n == profile.GeneralName {
			found = true
		}
	}
	if !found {
		t.Fatalf("general profile missing from %v", names)
	}
}

func TestGetProfile(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/profiles/clinical", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	p := decodeAs[profile.Profile](t, w)
	if p.Name != "clinical" {
		t.Fatalf("name = %q", p.Name)
	}

	w = fx.do(t, "GET", "/api/v1/profiles/nonsense", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestInferProfile(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "POST", "/api/v1/profiles/infer", map[string]string{
		"text": "patient dosage and clinical treatment guidance",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decodeAs[map[string]any](t, w)
	if result["profile"] != "clinical" {
		t.Fatalf("expected clinical, got %v", result["profile"])
	}

	w = fx.do(t, "POST", "/api/v1/profiles/infer", map[string]string{"text": "   "}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", w.Code)
	}
}

func TestListStrategies(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "GET", "/api/v1/strategies", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	names := decodeAs[[]string](t, w)
	if len(names) == 0 {
		t.Fatal("expected strategy names")
	}
}

func TestLogin(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "POST", "/api/v1/auth/login", map[string]string{
		"username": "admin", "password": "s3cret",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeAs[service.LoginResponse](t, w)
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	w = fx.do(t, "POST", "/api/v1/auth/login", map[string]string{
		"username": "admin", "password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "POST", "/api/v1/auth/api-keys", apikey.CreateRequest{
		Name:   "ci",
		Scopes: []string{apikey.ScopeRunsRead},
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeAs[apikey.CreateResponse](t, w)
	if !strings.HasPrefix(created.PlainKey, apikey.Prefix) {
		t.Fatalf("plain key %q missing prefix", created.PlainKey)
	}
	if created.Key.ID == "" {
		t.Fatal("expected key id")
	}

	w = fx.do(t, "GET", "/api/v1/auth/api-keys", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	keys := decodeAs[[]apikey.Key](t, w)
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}

	w = fx.do(t, "DELETE", "/api/v1/auth/api-keys/"+created.Key.ID, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = fx.do(t, "DELETE", "/api/v1/auth/api-keys/"+created.Key.ID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestCreateAPIKeyInvalidScope(t *testing.T) {
	fx := newTestRouter(t)

	w := fx.do(t, "POST", "/api/v1/auth/api-keys", apikey.CreateRequest{
		Name:   "bad",
		Scopes: []string{"galaxy:admin"},
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestScopeEnforcementEndToEnd(t *testing.T) {
	fx := newAPIFixture(t, profile.Defaults(), true)

	created, err := fx.auth.CreateAPIKey(context.Background(), apikey.CreateRequest{
		Name:   "readonly",
		Scopes: []string{apikey.ScopeRunsRead},
	})
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	keyHeader := map[string]string{"X-API-Key": created.PlainKey}

	// Read scope covers listing.
	w := fx.do(t, "GET", "/api/v1/runs", nil, keyHeader)
	if w.Code != http.StatusOK {
		t.Fatalf("read with runs:read = %d, want 200", w.Code)
	}

	// Same key cannot submit.
	w = fx.do(t, "POST", "/api/v1/runs", request.ContentRequest{
		ContentType: "article", Topic: "anything",
	}, keyHeader)
	if w.Code != http.StatusForbidden {
		t.Fatalf("write with runs:read = %d, want 403", w.Code)
	}

	// Or manage keys.
	w = fx.do(t, "GET", "/api/v1/auth/api-keys", nil, keyHeader)
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin with runs:read = %d, want 403", w.Code)
	}

	// No credentials at all is rejected outright.
	w = fx.do(t, "GET", "/api/v1/runs", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no credentials = %d, want 401", w.Code)
	}

	// The admin token passes everywhere.
	login, err := fx.auth.Login(context.Background(), "admin", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	tokenHeader := map[string]string{"Authorization": "Bearer " + login.Token}
	w = fx.do(t, "GET", "/api/v1/auth/api-keys", nil, tokenHeader)
	if w.Code != http.StatusOK {
		t.Fatalf("admin token on key management = %d, want 200", w.Code)
	}
}
