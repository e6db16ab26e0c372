package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	factoryhttp "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/http"
	factorymcp "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/mcp"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/memstore"
	factorynats "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/nats"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/natsexec"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/natskv"
	factoryotel "github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/otel"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/postgres"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/ristretto"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/tiered"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/ws"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/config"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/conflict"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/validation"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/logger"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/middleware"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/audit"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/eventstore"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/notifier"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/service"
)

const version = "0.1.0"

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "hash-password" {
		if err := runHashPassword(args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	flags, err := config.ParseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(flags); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(flags config.CLIFlags) error {
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, cfgPath)

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"executor_backend", cfg.Executor.Backend,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := factoryotel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	metrics, err := factoryotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Storage ---
	var (
		store      database.Store
		events     eventstore.Store
		auditSinks audit.Fanout
	)
	if cfg.Postgres.DSN != "" {
		pool, poolErr := postgres.NewPool(ctx, cfg.Postgres)
		if poolErr != nil {
			return fmt.Errorf("postgres: %w", poolErr)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = postgres.NewStore(pool)
		events = postgres.NewEventStore(pool)
		auditSinks = append(auditSinks, postgres.NewAuditSink(pool))
		slog.Info("postgres connected")
	} else {
		store = memstore.NewStore()
		events = memstore.NewEventStore()
		slog.Warn("no postgres dsn configured, runs are held in memory only")
	}

	// --- NATS ---
	queue, err := factorynats.Connect(ctx, cfg.NATS)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()
	auditSinks = append(auditSinks, factorynats.NewAuditSink(queue))

	// --- Agent backends ---
	natsexec.Register(queue)
	backend, err := agentexec.New(cfg.Executor.Backend, map[string]string{
		"base_url": cfg.Executor.HTTPBaseURL,
		"token":    cfg.Executor.HTTPToken,
	})
	if err != nil {
		return fmt.Errorf("executor backend: %w", err)
	}

	// --- Caches ---
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB * 1024 * 1024)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	kv, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("cache bucket: %w", err)
	}
	statusCache := tiered.New(l1, natskv.New(kv), cfg.Cache.L2TTL)
	defer func() { _ = statusCache.Close() }()

	idemKV, err := queue.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}

	// --- Catalogs ---
	agents := agent.Defaults()
	if path := cfg.Orchestrator.AgentCatalogPath; path != "" {
		if agents, err = agent.LoadCatalog(path); err != nil {
			return fmt.Errorf("agent catalog: %w", err)
		}
	}
	profiles := profile.Defaults()
	if path := cfg.Orchestrator.ProfileCatalogPath; path != "" {
		if profiles, err = profile.LoadCatalog(path); err != nil {
			return fmt.Errorf("profile catalog: %w", err)
		}
	}
	strategies := conflict.DefaultRegistry()

	// --- Services ---
	hub := ws.NewHub()
	executor := service.NewExecutorService(backend, store, events, hub, agents,
		&cfg.Executor, &cfg.Orchestrator, &cfg.Breaker)
	executor.SetMetrics(metrics)

	validator := validation.NewValidator(nil,
		validation.WithCrossCuttingWeight(cfg.Orchestrator.CrossCuttingWeight))

	orchestrator := service.NewOrchestratorService(store, events, hub, executor,
		profiles, agents, strategies, validator, &cfg.Orchestrator)
	orchestrator.SetQueue(queue)
	orchestrator.SetAuditSink(auditSinks)
	orchestrator.SetMetrics(metrics)

	statusSvc := service.NewStatusService(store, events, statusCache)

	authSvc, err := service.NewAuthService(store, &cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if cfg.Notify.Provider != "" {
		n, notifyErr := notifier.New(cfg.Notify.Provider, notifierSettings(cfg.Notify))
		if notifyErr != nil {
			return fmt.Errorf("notifier: %w", notifyErr)
		}
		notifySvc := service.NewNotificationService([]notifier.Notifier{n}, nil)
		orchestrator.AddOnRunComplete(notifySvc.NotifyRunFinished)
		slog.Info("notifications enabled", "provider", n.Name())
	}

	// --- HTTP ---
	handlers := &factoryhttp.Handlers{
		Orchestrator: orchestrator,
		Status:       statusSvc,
		Auth:         authSvc,
		Agents:       agents,
		Profiles:     profiles,
		Strategies:   strategies,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(factoryhttp.Logger)
	r.Use(factoryotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(factoryhttp.SecurityHeaders)
	r.Use(factoryhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.Recoverer)
	r.Use(limiter.Handler)
	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))
	r.Use(middleware.Idempotency(idemKV))
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(holder, queue))
	r.Get("/ws", hub.HandleWS)
	factoryhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- MCP ---
	var mcpServer *factorymcp.Server
	if cfg.MCP.Enabled {
		mcpServer = factorymcp.NewServer(factorymcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    cfg.Logging.Service,
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, factorymcp.ServerDeps{
			Submitter: orchestrator,
			Runs:      statusSvc,
			Profiles:  profiles,
			Agents:    agents,
		})
		if err := mcpServer.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		slog.Info("mcp server listening", "addr", cfg.MCP.Addr)
	}

	// --- Signals ---
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := holder.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			slog.Info("config reloaded", "path", cfgPath)
		}
	}()

	go func() {
		slog.Info("starting server", "addr", addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if mcpServer != nil {
		if err := mcpServer.Stop(shutdownCtx); err != nil {
			slog.Error("mcp shutdown", "error", err)
		}
	}

	// Let in-flight pipelines finish before the queue drains.
	orchestrator.Shutdown()
	if err := queue.Drain(); err != nil {
		slog.Error("nats drain", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// notifierSettings maps the notify config section onto the provider
// registry's key-value form.
func notifierSettings(n config.Notify) map[string]string {
	switch n.Provider {
	case "slack":
		return map[string]string{"webhook_url": n.SlackWebhookURL}
	case "discord":
		return map[string]string{"webhook_url": n.DiscordWebhook}
	case "email":
		return map[string]string{
			"host":     n.EmailHost,
			"port":     strconv.Itoa(n.EmailPort),
			"from":     n.EmailFrom,
			"password": n.EmailPassword,
			"to":       n.EmailTo,
		}
	default:
		return nil
	}
}

// healthHandler reports process health and the state of the two
// external dependencies. It reads the config holder on every request so
// a SIGHUP reload is reflected immediately.
func healthHandler(holder *config.Holder, queue *factorynats.Queue) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Version  string `json:"version"`
		Storage  string `json:"storage"`
		NATS     string `json:"nats"`
		Executor string `json:"executor"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		cfg := holder.Get()

		storage := "postgres"
		if cfg.Postgres.DSN == "" {
			storage = "memory"
		}
		natsState := "disconnected"
		if queue.IsConnected() {
			natsState = "connected"
		}

		status := healthStatus{
			Status:   "ok",
			Version:  version,
			Storage:  storage,
			NATS:     natsState,
			Executor: cfg.Executor.Backend,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
