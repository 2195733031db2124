package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouterBaseURL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, cfg.RetryDelays)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.Equal(t, "data/roadmaps.json", cfg.RoadmapsFile)
	assert.Len(t, cfg.ModelCandidates, 4)
	assert.Equal(t, "deepseek/deepseek-chat-v3-0324:free", cfg.ModelCandidates[0])
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("MODEL_CANDIDATES", "a/one,b/two")
	t.Setenv("RETRY_DELAYS", "100ms,200ms")
	t.Setenv("MAX_RETRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProd())
	assert.Equal(t, []string{"a/one", "b/two"}, cfg.ModelCandidates)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, cfg.RetryDelays)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestMaxAttempts(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		delays     []time.Duration
		want       int
	}{
		{name: "retries_is_binding", maxRetries: 2, delays: []time.Duration{1, 2, 3}, want: 2},
		{name: "delays_is_binding", maxRetries: 5, delays: []time.Duration{1, 2}, want: 2},
		{name: "equal", maxRetries: 3, delays: []time.Duration{1, 2, 3}, want: 3},
		{name: "zero_clamps_to_one", maxRetries: 0, delays: nil, want: 1},
		{name: "negative_clamps_to_one", maxRetries: -1, delays: []time.Duration{1}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{MaxRetries: tt.maxRetries, RetryDelays: tt.delays}
			assert.Equal(t, tt.want, cfg.MaxAttempts())
		})
	}
}

func TestGetCatalogBackoffConfig(t *testing.T) {
	prod := Config{AppEnv: "prod", CatalogBackoffMaxElapsedTime: time.Minute, CatalogBackoffInitialInterval: time.Second, CatalogBackoffMaxInterval: 10 * time.Second, CatalogBackoffMultiplier: 1.5}
	maxElapsed, initial, maxInterval, mult := prod.GetCatalogBackoffConfig()
	assert.Equal(t, time.Minute, maxElapsed)
	assert.Equal(t, time.Second, initial)
	assert.Equal(t, 10*time.Second, maxInterval)
	assert.Equal(t, 1.5, mult)

	test := Config{AppEnv: "test"}
	maxElapsed, initial, _, _ = test.GetCatalogBackoffConfig()
	assert.Equal(t, 2*time.Second, maxElapsed)
	assert.Equal(t, 50*time.Millisecond, initial)
}
