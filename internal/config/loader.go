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
const DefaultConfigFile = "savevault.yaml"

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
	setString(&cfg.Server.Port, "SAVEVAULT_PORT")
	setString(&cfg.Server.CORSOrigin, "SAVEVAULT_CORS_ORIGIN")
	setFloat64(&cfg.Server.RateLimit, "SAVEVAULT_RATE_LIMIT")
	setInt(&cfg.Server.RateBurst, "SAVEVAULT_RATE_BURST")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "SAVEVAULT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "SAVEVAULT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "SAVEVAULT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "SAVEVAULT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "SAVEVAULT_PG_HEALTH_CHECK")

	setString(&cfg.Storage.Driver, "SAVEVAULT_STORAGE_DRIVER")
	setString(&cfg.Storage.Bucket, "SAVEVAULT_STORAGE_BUCKET")
	setString(&cfg.Storage.Region, "SAVEVAULT_STORAGE_REGION")
	setString(&cfg.Storage.Endpoint, "SAVEVAULT_STORAGE_ENDPOINT")
	setString(&cfg.Storage.BoltPath, "SAVEVAULT_STORAGE_BOLT_PATH")
	setInt(&cfg.Storage.MaxTransfers, "SAVEVAULT_STORAGE_MAX_TRANSFERS")

	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Enabled, "SAVEVAULT_NATS_ENABLED")

	setString(&cfg.Auth.JWTSecret, "SAVEVAULT_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "SAVEVAULT_ACCESS_TOKEN_EXPIRY")
	setDuration(&cfg.Auth.RefreshTokenExpiry, "SAVEVAULT_REFRESH_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "SAVEVAULT_BCRYPT_COST")
	setString(&cfg.Auth.DefaultAdminEmail, "SAVEVAULT_ADMIN_EMAIL")
	setString(&cfg.Auth.DefaultAdminPass, "SAVEVAULT_ADMIN_PASSWORD")

	setString(&cfg.Cache.Driver, "SAVEVAULT_CACHE_DRIVER")
	setDuration(&cfg.Cache.TTL, "SAVEVAULT_CACHE_TTL")
	setInt64(&cfg.Cache.MaxSizeMB, "SAVEVAULT_CACHE_MAX_SIZE_MB")

	setInt64(&cfg.Limits.MaxSaveBytes, "SAVEVAULT_MAX_SAVE_BYTES")
	setInt64(&cfg.Limits.MaxSavesPerUser, "SAVEVAULT_MAX_SAVES_PER_USER")
	setInt64(&cfg.Limits.MaxUserBytes, "SAVEVAULT_MAX_USER_BYTES")

	setBool(&cfg.Telemetry.Enabled, "SAVEVAULT_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "SAVEVAULT_TELEMETRY_ENDPOINT")

	setString(&cfg.Logging.Level, "SAVEVAULT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SAVEVAULT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SAVEVAULT_LOG_ASYNC")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	switch cfg.Storage.Driver {
	case "s3":
		if cfg.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 driver")
		}
	case "bolt":
		if cfg.Storage.BoltPath == "" {
			return errors.New("storage.bolt_path is required for the bolt driver")
		}
	default:
		return fmt.Errorf("storage.driver must be s3 or bolt, got %q", cfg.Storage.Driver)
	}
	switch cfg.Cache.Driver {
	case "memory", "ristretto":
	default:
		return fmt.Errorf("cache.driver must be memory or ristretto, got %q", cfg.Cache.Driver)
	}
	if cfg.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats.enabled is true")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Limits.MaxSaveBytes < 1 {
		return errors.New("limits.max_save_bytes must be >= 1")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
