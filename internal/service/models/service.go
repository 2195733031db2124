// Package models fetches and caches the provider model catalog so the
// frontend can offer a model picker and readiness can probe the provider.
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"log/slog"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/jerwingubat/RoadMapGenerator/internal/config"
)

// Model is one entry of the provider catalog.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type catalogResponse struct {
	Data []Model `json:"data"`
}

// Service caches the provider model catalog with a TTL. When the provider
// is unreachable the static candidate list from config is served instead.
type Service struct {
	cfg        config.Config
	httpClient *http.Client

	mu        sync.Mutex
	models    []Model
	lastFetch time.Time
}

// NewService creates a catalog service.
func NewService(cfg config.Config) *Service {
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Models returns the cached catalog, refreshing when stale. A fetch
// failure degrades to the previous cache, then to the static candidates.
func (s *Service) Models(ctx context.Context) ([]Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.models != nil && time.Since(s.lastFetch) <= s.cfg.ModelsRefresh {
		return s.models, nil
	}
	fetched, err := s.fetch(ctx)
	if err != nil {
		if s.models != nil {
			slog.Warn("using cached model catalog after fetch failure",
				slog.Any("error", err),
				slog.Int("cached_count", len(s.models)))
			return s.models, nil
		}
		slog.Warn("model catalog unavailable, serving static candidates",
			slog.Any("error", err))
		return s.static(), nil
	}
	s.models = fetched
	s.lastFetch = time.Now()
	slog.Info("model catalog refreshed", slog.Int("count", len(fetched)))
	return s.models, nil
}

// Ping probes the provider models endpoint once, for readiness checks.
func (s *Service) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.OpenRouterBaseURL+"/models", nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("models endpoint status %d", resp.StatusCode)
	}
	return nil
}

func (s *Service) static() []Model {
	out := make([]Model, 0, len(s.cfg.ModelCandidates))
	for _, id := range s.cfg.ModelCandidates {
		out = append(out, Model{ID: id, Name: id})
	}
	return out
}

// fetch retrieves the catalog with exponential backoff.
func (s *Service) fetch(ctx context.Context) ([]Model, error) {
	var out []Model
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.OpenRouterBaseURL+"/models", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if s.cfg.OpenRouterAPIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.OpenRouterAPIKey)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("models status %d: %s", resp.StatusCode, body))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("models status %d", resp.StatusCode)
		}
		var cr catalogResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return err
		}
		out = cr.Data
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxInterval, multiplier := s.cfg.GetCatalogBackoffConfig()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier

	if err := backoff.Retry(op, backoff.WithContext(expo, ctx)); err != nil {
		return nil, fmt.Errorf("op=models.fetch: %w", err)
	}
	return out, nil
}
