package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamExhausted = errors.New("upstream exhausted")
	ErrInternal          = errors.New("internal error")
)

// Level enumerates supported learner levels.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Milestone is a single stage of a roadmap document.
type Milestone struct {
	Title     string   `json:"title"`
	Duration  string   `json:"duration,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// Document is the structured roadmap produced by the model. When the model
// output could not be parsed into structured fields, Raw carries the
// unparsed text and all other fields are empty.
type Document struct {
	Title      string      `json:"title,omitempty"`
	Overview   string      `json:"overview,omitempty"`
	Milestones []Milestone `json:"milestones,omitempty"`
	Raw        string      `json:"raw,omitempty"`
}

// IsRaw reports whether the document is an unparsed fallback.
func (d Document) IsRaw() bool { return d.Raw != "" }

// Roadmap is a saved roadmap record.
// Invariants: Topic non-empty; Level in {beginner, intermediate, advanced}.
type Roadmap struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Level     string    `json:"level"`
	Timeframe string    `json:"timeframe"`
	Model     string    `json:"model,omitempty"`
	Document  Document  `json:"document"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateRequest carries validated input for roadmap generation.
type GenerateRequest struct {
	Topic     string
	Level     string
	Timeframe string
	Model     string
}

// RoadmapRepository (port)

type RoadmapRepository interface {
	List(ctx Context) ([]Roadmap, error)
	Get(ctx Context, id string) (Roadmap, error)
	Save(ctx Context, rm Roadmap) (string, error)
	Delete(ctx Context, id string) error
}

// AIClient (port)

type AIClient interface {
	// ChatJSON sends system+user prompts to the provider, trying the
	// requested model first and falling back across the configured
	// candidates. Returns the raw message content and the model that
	// produced it.
	ChatJSON(ctx Context, model, systemPrompt, userPrompt string, maxTokens int) (string, string, error)
}

// UpstreamError carries the final provider failure so the HTTP layer can
// surface the upstream error body on exhaustion.
type UpstreamError struct {
	Status int
	Model  string
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.Status, e.Model)
}

// Context is an alias to keep the domain decoupled from adapters; all
// layers pass context.Context through.
type Context = context.Context
