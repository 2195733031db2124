// Package openrouter implements the AI client against the OpenRouter
// (OpenAI-compatible) chat completions API with model fallback.
package openrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jerwingubat/RoadMapGenerator/internal/adapter/observability"
	"github.com/jerwingubat/RoadMapGenerator/internal/config"
	"github.com/jerwingubat/RoadMapGenerator/internal/domain"
)

// Client implements domain.AIClient using OpenRouter chat completions.
type Client struct {
	cfg    config.Config
	chatHC *http.Client
	sleep  func(domain.Context, time.Duration) error
}

// New constructs a client with a bounded per-request timeout.
func New(cfg config.Config) *Client {
	return &Client{
		cfg:    cfg,
		chatHC: &http.Client{Timeout: cfg.ChatTimeout},
		sleep:  sleepCtx,
	}
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx domain.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// candidates returns the model order for one request: the user-requested
// model (if any) first, then the configured preference list, deduplicated.
func (c *Client) candidates(requested string) []string {
	out := make([]string, 0, len(c.cfg.ModelCandidates)+1)
	seen := make(map[string]bool, len(c.cfg.ModelCandidates)+1)
	if requested != "" {
		out = append(out, requested)
		seen[requested] = true
	}
	for _, m := range c.cfg.ModelCandidates {
		if m == "" || seen[m] {
			continue
		}
		out = append(out, m)
		seen[m] = true
	}
	return out
}

// attemptError captures a single failed provider call.
type attemptError struct {
	status    int
	body      string
	transport error
	// skipModel marks statuses (429, 404) that abort the current model
	// immediately instead of retrying it.
	skipModel bool
}

func (a *attemptError) Error() string {
	if a.transport != nil {
		return a.transport.Error()
	}
	return fmt.Sprintf("chat status %d", a.status)
}

// ChatJSON tries each candidate model in order with bounded retries and
// the fixed delay schedule. The first successful response wins; when every
// candidate is exhausted the last upstream error body is wrapped in
// domain.ErrUpstreamExhausted for the 502 path.
func (c *Client) ChatJSON(ctx domain.Context, requested, systemPrompt, userPrompt string, maxTokens int) (string, string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		slog.Error("OpenRouter API key missing", slog.String("provider", "openrouter"))
		return "", "", fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrInvalidArgument)
	}

	models := c.candidates(requested)
	if len(models) == 0 {
		return "", "", fmt.Errorf("%w: no candidate models configured", domain.ErrInvalidArgument)
	}

	maxAttempts := c.cfg.MaxAttempts()
	var last *attemptError

	for modelIndex, model := range models {
		slog.Info("trying model",
			slog.String("model", model),
			slog.Int("model_index", modelIndex),
			slog.Int("total_models", len(models)),
			slog.Int("max_attempts", maxAttempts))

		for attempt := 0; attempt < maxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", "", err
			}
			content, aerr := c.callModel(ctx, model, systemPrompt, userPrompt, maxTokens)
			if aerr == nil {
				observability.AIRequestsTotal.WithLabelValues(model, "success").Inc()
				slog.Info("model succeeded",
					slog.String("model", model),
					slog.Int("attempt", attempt))
				return content, model, nil
			}
			last = aerr
			slog.Warn("model attempt failed",
				slog.String("model", model),
				slog.Int("attempt", attempt),
				slog.Int("status", aerr.status),
				slog.Any("error", aerr))
			if aerr.skipModel {
				observability.AIRequestsTotal.WithLabelValues(model, "skipped").Inc()
				break
			}
			observability.AIRequestsTotal.WithLabelValues(model, "retry").Inc()
			if attempt+1 < maxAttempts {
				delay := c.cfg.RetryDelays[attempt]
				slog.Info("waiting before model retry",
					slog.String("model", model),
					slog.Duration("delay", delay))
				if err := c.sleep(ctx, delay); err != nil {
					return "", "", err
				}
			}
		}
	}

	slog.Error("all models failed", slog.Int("total_models", len(models)))
	uerr := &domain.UpstreamError{Model: models[len(models)-1]}
	if last != nil {
		uerr.Status = last.status
		uerr.Body = last.body
		if last.transport != nil {
			uerr.Body = last.transport.Error()
		}
	}
	return "", "", fmt.Errorf("all models failed: %w: %w", domain.ErrUpstreamExhausted, uerr)
}

// callModel makes a single chat completions call with a specific model.
func (c *Client) callModel(ctx domain.Context, model, systemPrompt, userPrompt string, maxTokens int) (string, *attemptError) {
	ctx, span := otel.Tracer("ai.openrouter").Start(ctx, "openrouter.chat")
	defer span.End()
	span.SetAttributes(attribute.String("ai.model", model))

	body := map[string]any{
		"model":       model,
		"temperature": 0.2,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	b, _ := json.Marshal(body)

	var out struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	start := time.Now()
	// Recreate request each attempt to avoid reusing consumed bodies
	r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(b))
	r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
	r.Header.Set("Content-Type", "application/json")
	if c.cfg.OpenRouterReferer != "" {
		r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
	}
	if c.cfg.OpenRouterTitle != "" {
		r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
	}
	resp, err := c.chatHC.Do(r)
	observability.AIRequestDuration.WithLabelValues(model, "chat").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", &attemptError{transport: err}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("failed to read response body", slog.String("provider", "openrouter"), slog.Any("error", err))
		return "", &attemptError{transport: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusNotFound {
		// Rate limited or unknown model: give up on this model and move on.
		slog.Warn("ai provider rejected model",
			slog.String("provider", "openrouter"),
			slog.String("model", model),
			slog.Int("status", resp.StatusCode),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
		return "", &attemptError{status: resp.StatusCode, body: snippet(bodyBytes), skipModel: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("ai provider non-2xx",
			slog.String("provider", "openrouter"),
			slog.String("model", model),
			slog.Int("status", resp.StatusCode),
			slog.String("endpoint", c.cfg.OpenRouterBaseURL+"/chat/completions"),
			slog.String("x_request_id", resp.Header.Get("X-Request-Id")),
			slog.String("body", snippet(bodyBytes)))
		return "", &attemptError{status: resp.StatusCode, body: snippet(bodyBytes)}
	}
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		slog.Error("ai provider decode error", slog.String("provider", "openrouter"), slog.String("model", model), slog.Any("error", err))
		return "", &attemptError{transport: err}
	}
	if len(out.Choices) == 0 {
		return "", &attemptError{transport: fmt.Errorf("empty choices from model %s", model)}
	}
	if out.Model != "" && out.Model != model {
		slog.Warn("model substitution detected",
			slog.String("requested_model", model),
			slog.String("actual_model", out.Model),
			slog.String("provider", "openrouter"))
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(b []byte) string {
	const max = 2048
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
