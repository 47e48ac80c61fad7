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
const DefaultConfigFile = "reportd.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
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
	setString(&cfg.Server.Port, "REPORTD_PORT")
	setString(&cfg.Server.CORSOrigin, "REPORTD_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "REPORTD_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "REPORTD_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "REPORTD_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "REPORTD_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "REPORTD_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "REPORTD_ANTHROPIC_MODEL")
	setInt(&cfg.Anthropic.MaxTokens, "REPORTD_ANTHROPIC_MAX_TOKENS")
	setDuration(&cfg.Anthropic.Timeout, "REPORTD_ANTHROPIC_TIMEOUT")
	setString(&cfg.Auth.JWTSecret, "REPORTD_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "REPORTD_ACCESS_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "REPORTD_BCRYPT_COST")
	setString(&cfg.Auth.ServiceAPIKey, "REPORTD_SERVICE_API_KEY")
	setString(&cfg.Data.Dir, "REPORTD_DATA_DIR")
	setString(&cfg.Reports.Dir, "REPORTD_REPORTS_DIR")
	setInt(&cfg.Worker.MaxAttempts, "REPORTD_WORKER_MAX_ATTEMPTS")
	setDuration(&cfg.Worker.RetryInterval, "REPORTD_WORKER_RETRY_INTERVAL")
	setString(&cfg.Logging.Level, "REPORTD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "REPORTD_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "REPORTD_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "REPORTD_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "REPORTD_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "REPORTD_CACHE_TTL")
	setBool(&cfg.Metrics.Enabled, "REPORTD_METRICS_ENABLED")
	setString(&cfg.Metrics.OTLPEndpoint, "REPORTD_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if cfg.Data.Dir == "" {
		return errors.New("data.dir is required")
	}
	if cfg.Reports.Dir == "" {
		return errors.New("reports.dir is required")
	}
	if cfg.Worker.MaxAttempts < 1 {
		return errors.New("worker.max_attempts must be at least 1")
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
