package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

// Ledger backends.
const (
	LedgerBackendCSV      = "csv"
	LedgerBackendPostgres = "postgres"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Ledger   LedgerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Model    ModelConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// LedgerConfig selects and locates the ticket ledger.
type LedgerConfig struct {
	Backend string
	Path    string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables the event stream.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	EventStream string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig holds the shared API secret. APIKeyBcrypt takes precedence over APIKey.
type AuthConfig struct {
	APIKey       string
	APIKeyBcrypt string
}

// ModelConfig points at the text-generation endpoint used for tagging.
type ModelConfig struct {
	Endpoint       string
	APIToken       string
	MaxTokens      int
	Temperature    float64
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	temperature, err := strconv.ParseFloat(getEnv("MODEL_TEMPERATURE", "0.1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_TEMPERATURE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-intake-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 120),
		},
		Ledger: LedgerConfig{
			Backend: getEnv("LEDGER_BACKEND", LedgerBackendCSV),
			Path:    getEnv("LEDGER_PATH", "tickets_log.csv"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:        os.Getenv("REDIS_ADDR"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			EventStream: getEnv("REDIS_EVENT_STREAM", "tickets:events"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			APIKey:       os.Getenv("AUTH_API_KEY"),
			APIKeyBcrypt: os.Getenv("AUTH_API_KEY_BCRYPT"),
		},
		Model: ModelConfig{
			Endpoint:       os.Getenv("MODEL_ENDPOINT"),
			APIToken:       os.Getenv("MODEL_API_TOKEN"),
			MaxTokens:      getEnvAsInt("MODEL_MAX_TOKENS", 512),
			Temperature:    temperature,
			TimeoutSeconds: getEnvAsInt("MODEL_TIMEOUT_SECONDS", 60),
		},
	}

	return cfg, nil
}

// Validate reports required configuration that is absent or inconsistent.
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case LedgerBackendCSV:
		if c.Ledger.Path == "" {
			return apperrors.NewConfigError("LEDGER_PATH required for csv ledger")
		}
	case LedgerBackendPostgres:
		if c.Postgres.DSN == "" {
			return apperrors.NewConfigError("POSTGRES_DSN required for postgres ledger")
		}
	default:
		return apperrors.NewConfigError(fmt.Sprintf("unknown LEDGER_BACKEND %q", c.Ledger.Backend))
	}
	if c.Model.Endpoint == "" {
		return apperrors.NewConfigError("MODEL_ENDPOINT required")
	}
	if c.Model.MaxTokens <= 0 {
		return apperrors.NewConfigError("MODEL_MAX_TOKENS must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout bounds a single generation call. Zero means unbounded.
func (m ModelConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Configured reports whether a credential has been set up.
func (a AuthConfig) Configured() bool {
	return a.APIKey != "" || a.APIKeyBcrypt != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
