package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "factory.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "FACTORY_PORT")
	setString(&cfg.Server.CORSOrigin, "FACTORY_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "FACTORY_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "FACTORY_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "FACTORY_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "FACTORY_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "FACTORY_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Stream, "FACTORY_NATS_STREAM")
	setString(&cfg.Logging.Level, "FACTORY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FACTORY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "FACTORY_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "FACTORY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "FACTORY_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "FACTORY_RATE_RPS")
	setInt(&cfg.Rate.Burst, "FACTORY_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "FACTORY_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "FACTORY_RATE_MAX_IDLE_TIME")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "FACTORY_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "FACTORY_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "FACTORY_CACHE_L2_TTL")

	// Idempotency
	setString(&cfg.Idempotency.Bucket, "FACTORY_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "FACTORY_IDEMPOTENCY_TTL")

	// Telemetry
	setBool(&cfg.Telemetry.Enabled, "FACTORY_OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "FACTORY_OTEL_INSECURE")
	setFloat64(&cfg.Telemetry.SampleRatio, "FACTORY_OTEL_SAMPLE_RATIO")

	// Executor
	setString(&cfg.Executor.Backend, "FACTORY_EXECUTOR_BACKEND")
	setDuration(&cfg.Executor.UnitTimeout, "FACTORY_UNIT_TIMEOUT")
	setInt(&cfg.Executor.MaxRetries, "FACTORY_UNIT_MAX_RETRIES")
	setDuration(&cfg.Executor.RetryDelay, "FACTORY_UNIT_RETRY_DELAY")
	setString(&cfg.Executor.HTTPBaseURL, "FACTORY_EXECUTOR_HTTP_URL")
	setString(&cfg.Executor.HTTPToken, "FACTORY_EXECUTOR_HTTP_TOKEN")

	// Orchestrator
	setInt(&cfg.Orchestrator.MaxParallel, "FACTORY_ORCH_MAX_PARALLEL")
	setInt(&cfg.Orchestrator.MaxTeamSize, "FACTORY_ORCH_MAX_TEAM_SIZE")
	setFloat64(&cfg.Orchestrator.SimilarityThreshold, "FACTORY_ORCH_SIMILARITY_THRESHOLD")
	setString(&cfg.Orchestrator.AgentCatalogPath, "FACTORY_AGENT_CATALOG")
	setString(&cfg.Orchestrator.ProfileCatalogPath, "FACTORY_PROFILE_CATALOG")
	setFloat64(&cfg.Orchestrator.CrossCuttingWeight, "FACTORY_ORCH_CROSS_CUTTING_WEIGHT")

	// Auth
	setString(&cfg.Auth.AdminUser, "FACTORY_ADMIN_USER")
	setString(&cfg.Auth.AdminPasswordHash, "FACTORY_ADMIN_PASSWORD_HASH")
	setDuration(&cfg.Auth.TokenTTL, "FACTORY_TOKEN_TTL")

	// Notify
	setString(&cfg.Notify.Provider, "FACTORY_NOTIFY_PROVIDER")
	setString(&cfg.Notify.SlackWebhookURL, "FACTORY_SLACK_WEBHOOK")
	setString(&cfg.Notify.DiscordWebhook, "FACTORY_DISCORD_WEBHOOK")
	setString(&cfg.Notify.EmailHost, "FACTORY_EMAIL_HOST")
	setInt(&cfg.Notify.EmailPort, "FACTORY_EMAIL_PORT")
	setString(&cfg.Notify.EmailFrom, "FACTORY_EMAIL_FROM")
	setString(&cfg.Notify.EmailPassword, "FACTORY_EMAIL_PASSWORD")
	setString(&cfg.Notify.EmailTo, "FACTORY_EMAIL_TO")

	// MCP
	setBool(&cfg.MCP.Enabled, "FACTORY_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "FACTORY_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "FACTORY_MCP_API_KEY")
}

// validate checks that required fields are set. An empty postgres DSN
// is allowed and selects the in-memory store.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Executor.UnitTimeout <= 0 {
		return errors.New("executor.unit_timeout must be positive")
	}
	if cfg.Executor.MaxRetries < 0 {
		return errors.New("executor.max_retries must be >= 0")
	}
	if cfg.Orchestrator.SimilarityThreshold <= 0 || cfg.Orchestrator.SimilarityThreshold > 1 {
		return errors.New("orchestrator.similarity_threshold must be in (0,1]")
	}
	if cfg.Orchestrator.MaxParallel < 1 {
		return errors.New("orchestrator.max_parallel must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
