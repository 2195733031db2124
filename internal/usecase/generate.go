// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"strings"

	"log/slog"

	"github.com/jerwingubat/RoadMapGenerator/internal/adapter/ai"
	"github.com/jerwingubat/RoadMapGenerator/internal/adapter/ai/tokencount"
	"github.com/jerwingubat/RoadMapGenerator/internal/adapter/observability"
	"github.com/jerwingubat/RoadMapGenerator/internal/config"
	"github.com/jerwingubat/RoadMapGenerator/internal/domain"
	"github.com/jerwingubat/RoadMapGenerator/pkg/textx"
)

// GenerateService orchestrates prompt building, the provider call with model
// fallback, and extraction of the roadmap document from the response.
type GenerateService struct {
	Cfg       config.Config
	AI        domain.AIClient
	Extractor *ai.Extractor
	Tokens    *tokencount.Counter
}

// NewGenerateService constructs a GenerateService with its dependencies.
func NewGenerateService(cfg config.Config, client domain.AIClient) GenerateService {
	return GenerateService{
		Cfg:       cfg,
		AI:        client,
		Extractor: ai.NewExtractor(),
		Tokens:    tokencount.NewCounter(),
	}
}

const systemPrompt = `You are a learning-path planner. Respond with ONLY a valid JSON object, no prose and no markdown fences, matching this shape:
{
  "title": string,
  "overview": string,
  "milestones": [
    {"title": string, "duration": string, "topics": [string], "resources": [string]}
  ]
}
Milestone durations must sum to the requested timeframe.`

// BuildUserPrompt renders the user message for a generation request.
func BuildUserPrompt(req domain.GenerateRequest) string {
	topic := textx.CollapseSpaces(textx.SanitizeText(req.Topic))
	timeframe := textx.CollapseSpaces(textx.SanitizeText(req.Timeframe))
	var b strings.Builder
	fmt.Fprintf(&b, "Create a learning roadmap for %q at the %s level, to be completed in %s.", topic, req.Level, timeframe)
	b.WriteString(" Order milestones from fundamentals to advanced material and keep resources free where possible.")
	return b.String()
}

// Generate produces a roadmap for the request. The returned roadmap is not
// persisted; saving is an explicit separate call.
func (s GenerateService) Generate(ctx domain.Context, req domain.GenerateRequest) (domain.Roadmap, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return domain.Roadmap{}, fmt.Errorf("%w: topic required", domain.ErrInvalidArgument)
	}
	if req.Level == "" {
		req.Level = domain.LevelBeginner
	}
	switch req.Level {
	case domain.LevelBeginner, domain.LevelIntermediate, domain.LevelAdvanced:
	default:
		return domain.Roadmap{}, fmt.Errorf("%w: unknown level %q", domain.ErrInvalidArgument, req.Level)
	}
	if strings.TrimSpace(req.Timeframe) == "" {
		return domain.Roadmap{}, fmt.Errorf("%w: timeframe required", domain.ErrInvalidArgument)
	}

	userPrompt := BuildUserPrompt(req)

	// Budget-check the prompt before spending a provider call.
	promptTokens := s.Tokens.EstimateChatTokens(systemPrompt, userPrompt, req.Model)
	observability.PromptTokensHistogram.Observe(float64(promptTokens))
	if s.Cfg.PromptTokenBudget > 0 && promptTokens > s.Cfg.PromptTokenBudget {
		return domain.Roadmap{}, fmt.Errorf("%w: prompt exceeds token budget (%d > %d)",
			domain.ErrInvalidArgument, promptTokens, s.Cfg.PromptTokenBudget)
	}

	content, model, err := s.AI.ChatJSON(ctx, req.Model, systemPrompt, userPrompt, s.Cfg.MaxTokens)
	if err != nil {
		observability.GenerationsTotal.WithLabelValues("error").Inc()
		return domain.Roadmap{}, err
	}

	doc := s.Extractor.Extract(content)
	if doc.IsRaw() {
		slog.Warn("model output not parseable, returning raw",
			slog.String("model", model),
			slog.Int("content_length", len(content)))
		observability.GenerationsTotal.WithLabelValues("raw").Inc()
	} else {
		observability.GenerationsTotal.WithLabelValues("ok").Inc()
	}

	slog.Info("roadmap generated",
		slog.String("model", model),
		slog.String("topic", req.Topic),
		slog.String("level", req.Level),
		slog.Int("prompt_tokens", promptTokens),
		slog.Int("milestones", len(doc.Milestones)))

	return domain.Roadmap{
		Topic:     req.Topic,
		Level:     req.Level,
		Timeframe: req.Timeframe,
		Model:     model,
		Document:  doc,
	}, nil
}
