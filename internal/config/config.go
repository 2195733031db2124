// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv            string        `env:"APP_ENV" envDefault:"dev"`
	Port              int           `env:"PORT" envDefault:"8080"`
	OpenRouterAPIKey  string        `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterReferer string        `env:"OPENROUTER_REFERER"`
	OpenRouterTitle   string        `env:"OPENROUTER_TITLE" envDefault:"Roadmap Generator"`
	// ModelCandidates is the fixed preference list tried after any
	// user-requested model, in order.
	ModelCandidates []string `env:"MODEL_CANDIDATES" envSeparator:"," envDefault:"deepseek/deepseek-chat-v3-0324:free,meta-llama/llama-3.3-70b-instruct:free,google/gemini-2.0-flash-exp:free,qwen/qwen-2.5-72b-instruct:free"`
	// ModelsRefresh: how often to refresh the provider model catalog.
	ModelsRefresh time.Duration `env:"MODELS_REFRESH" envDefault:"1h"`
	// MaxRetries caps attempts per model; the effective cap is
	// min(MaxRetries, len(RetryDelays)).
	MaxRetries int `env:"MAX_RETRIES" envDefault:"3"`
	// RetryDelays is the fixed sleep schedule between attempts for one
	// model; RetryDelays[n] is slept after failed attempt n.
	RetryDelays []time.Duration `env:"RETRY_DELAYS" envSeparator:"," envDefault:"1s,2s,4s"`
	// MaxTokens is the completion budget passed to the provider.
	MaxTokens int `env:"MAX_TOKENS" envDefault:"4096"`
	// PromptTokenBudget rejects oversized prompts before any provider call.
	PromptTokenBudget int `env:"PROMPT_TOKEN_BUDGET" envDefault:"8000"`
	// RoadmapsFile is the flat JSON-array store for saved roadmaps.
	RoadmapsFile string `env:"ROADMAPS_FILE" envDefault:"data/roadmaps.json"`
	// StaticDir serves the browser frontend when present.
	StaticDir             string        `env:"STATIC_DIR" envDefault:"web"`
	OTLPEndpoint          string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName       string        `env:"OTEL_SERVICE_NAME" envDefault:"roadmap-generator"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ChatTimeout           time.Duration `env:"CHAT_TIMEOUT" envDefault:"90s"`
	// Catalog fetch backoff (cenkalti/backoff)
	CatalogBackoffMaxElapsedTime  time.Duration `env:"CATALOG_BACKOFF_MAX_ELAPSED_TIME" envDefault:"30s"`
	CatalogBackoffInitialInterval time.Duration `env:"CATALOG_BACKOFF_INITIAL_INTERVAL" envDefault:"1s"`
	CatalogBackoffMaxInterval     time.Duration `env:"CATALOG_BACKOFF_MAX_INTERVAL" envDefault:"10s"`
	CatalogBackoffMultiplier      float64       `env:"CATALOG_BACKOFF_MULTIPLIER" envDefault:"2.0"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// MaxAttempts returns the per-model attempt cap: min(MaxRetries, len(RetryDelays)).
func (c Config) MaxAttempts() int {
	n := c.MaxRetries
	if len(c.RetryDelays) < n {
		n = len(c.RetryDelays)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// GetCatalogBackoffConfig returns backoff settings for the model catalog
// fetch. Test environments use much shorter intervals.
func (c Config) GetCatalogBackoffConfig() (maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 2 * time.Second, 50 * time.Millisecond, 500 * time.Millisecond, 2.0
	}
	return c.CatalogBackoffMaxElapsedTime, c.CatalogBackoffInitialInterval, c.CatalogBackoffMaxInterval, c.CatalogBackoffMultiplier
}
