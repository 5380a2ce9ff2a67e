package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/sandbox/core/db"
	"basegraph.app/sandbox/core/docdb"
)

type Config struct {
	OTel            OTelConfig
	HintLLM         LLMConfig
	Redis           RedisConfig
	RateLimits      RateLimitConfig
	Env             string
	LogLevel        string
	Port            string
	CORSOrigins     []string
	SnowflakeNodeID int64
	DB              db.Config
	Mongo           docdb.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Fraction of root traces kept; children follow their parent's decision.
	SampleRatio float64
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: any OpenAI-compatible endpoint
	Model     string
	MaxTokens int
}

type RedisConfig struct {
	URL string
}

// RateLimitConfig mirrors the per-route budgets of the public API.
type RateLimitConfig struct {
	Enabled   bool
	API       Limit
	Workspace Limit
	Table     Limit
	Query     Limit
	Hint      Limit
}

type Limit struct {
	Max    int
	Window time.Duration
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeCLI    ServiceType = "cli"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//   - .env.cli for sandboxctl
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("SANDBOX_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:             getEnv("SANDBOX_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", ""),
		Port:            getEnv("PORT", "8080"),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		SnowflakeNodeID: int64(getEnvInt("SNOWFLAKE_NODE_ID", 1)),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 20),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		Mongo: docdb.Config{
			URI:        getEnv("MONGODB_URI", ""),
			Database:   getEnv("MONGODB_DATABASE", "sandbox"),
			Collection: getEnv("MONGODB_COLLECTION", "workspaces"),
			Timeout:    getEnvDuration("MONGODB_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "sandbox"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("SANDBOX_ENV", "development"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
		HintLLM: LLMConfig{
			Provider:  getEnv("HINT_LLM_PROVIDER", "openai"),
			APIKey:    getEnv("HINT_LLM_API_KEY", ""),
			BaseURL:   getEnv("HINT_LLM_BASE_URL", ""),
			Model:     getEnv("HINT_LLM_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("HINT_LLM_MAX_TOKENS", 512),
		},
		RateLimits: RateLimitConfig{
			Enabled:   getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			API:       Limit{Max: getEnvInt("RATE_LIMIT_API_MAX", 100), Window: 15 * time.Minute},
			Workspace: Limit{Max: getEnvInt("RATE_LIMIT_WORKSPACE_MAX", 10), Window: time.Hour},
			Table:     Limit{Max: getEnvInt("RATE_LIMIT_TABLE_MAX", 20), Window: 5 * time.Minute},
			Query:     Limit{Max: getEnvInt("RATE_LIMIT_QUERY_MAX", 30), Window: time.Minute},
			Hint:      Limit{Max: getEnvInt("RATE_LIMIT_HINT_MAX", 10), Window: time.Minute},
		},
	}

	if cfg.DB.DSN == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.Mongo.URI == "" {
		return Config{}, fmt.Errorf("MONGODB_URI is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
