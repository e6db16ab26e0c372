package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/apikey"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. Scope
// checks only bite for API-key requests; admin tokens pass everywhere.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Runs (read)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(apikey.ScopeRunsRead))
			r.Get("/runs", h.ListRuns)
			r.Get("/runs/{id}", h.GetRun)
			r.Get("/runs/{id}/artifact", h.GetRunArtifact)
			r.Get("/runs/{id}/report", h.GetRunReport)
			r.Get("/runs/{id}/plan", h.GetRunPlan)
			r.Get("/runs/{id}/contributions", h.ListRunContributions)
			r.Get("/runs/{id}/conflicts", h.ListRunConflicts)
			r.Get("/runs/{id}/events", h.GetRunTimeline)
			r.Get("/runs/{id}/stats", h.GetRunStats)
		})

		// Runs (write)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(apikey.ScopeRunsWrite))
			r.Post("/runs", h.SubmitRun)
			r.Post("/runs/{id}/cancel", h.CancelRun)
		})

		// Catalog
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(apikey.ScopeCatalogRead))
			r.Get("/agents", h.ListAgents)
			r.Get("/agents/{kind}", h.GetAgent)
			r.Get("/profiles", h.ListProfiles)
			r.Get("/profiles/{name}", h.GetProfile)
			r.Post("/profiles/infer", h.InferProfile)
			r.Get("/strategies", h.ListStrategies)
		})

		// Auth (login is public via middleware exemption)
		r.Post("/auth/login", h.Login)

		// API key management (admin only)
		r.Route("/auth/api-keys", func(r chi.Router) {
			r.Use(middleware.RequireScope(apikey.ScopeAdminAll))
			r.Post("/", h.CreateAPIKey)
			r.Get("/", h.ListAPIKeys)
			r.Delete("/{id}", h.DeleteAPIKey)
		})
	})
}
