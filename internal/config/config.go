package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/fnxL/favorit/pkg/config"
)

// Session store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const defaultSecretPlaceholder = "change-this-to-a-secure-secret"

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"AUTH_HTTP_PORT" envDefault:"5000"`

	// Session store backend: postgres or redis.
	SessionStore string `env:"SESSION_STORE" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"favorit"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"favorit_secret"`
	PostgresDB   string `env:"AUTH_DB_NAME" envDefault:"favorit"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (used when SESSION_STORE=redis)
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tokens. Access and refresh tokens are signed with independent secrets.
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" envDefault:"change-this-to-a-secure-secret"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"30s"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"24h"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.SessionStore != StorePostgres && cfg.SessionStore != StoreRedis {
		return nil, fmt.Errorf("invalid SESSION_STORE: %q (must be %q or %q)", cfg.SessionStore, StorePostgres, StoreRedis)
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}

	// In non-development environments, require explicitly set, strong,
	// distinct signing secrets.
	if cfg.Environment != "development" {
		secrets := []struct {
			name  string
			value string
		}{
			{"ACCESS_TOKEN_SECRET", cfg.AccessTokenSecret},
			{"REFRESH_TOKEN_SECRET", cfg.RefreshTokenSecret},
		}
		for _, s := range secrets {
			name, secret := s.name, s.value
			if secret == defaultSecretPlaceholder {
				return nil, fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, cfg.Environment)
			}
			if len(secret) < 32 {
				return nil, fmt.Errorf("%s must be at least 32 characters long, got %d", name, len(secret))
			}
		}
		if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
			return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
		}
	}

	return cfg, nil
}
