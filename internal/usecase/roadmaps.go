package usecase

import (
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/jerwingubat/RoadMapGenerator/internal/domain"
)

// RoadmapService provides CRUD access to saved roadmaps.
type RoadmapService struct {
	Repo domain.RoadmapRepository
}

// NewRoadmapService constructs a RoadmapService with the given repository.
func NewRoadmapService(repo domain.RoadmapRepository) RoadmapService {
	return RoadmapService{Repo: repo}
}

// Summary is the sidebar listing shape: no document body.
type Summary struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Level     string    `json:"level"`
	Timeframe string    `json:"timeframe"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns summaries of all saved roadmaps, newest first.
func (s RoadmapService) List(ctx domain.Context) ([]Summary, error) {
	items, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(items))
	for _, rm := range items {
		out = append(out, Summary{
			ID:        rm.ID,
			Topic:     rm.Topic,
			Level:     rm.Level,
			Timeframe: rm.Timeframe,
			Title:     rm.Document.Title,
			CreatedAt: rm.CreatedAt,
		})
	}
	return out, nil
}

// Get loads a full roadmap by id.
func (s RoadmapService) Get(ctx domain.Context, id string) (domain.Roadmap, error) {
	if id == "" {
		return domain.Roadmap{}, fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	return s.Repo.Get(ctx, id)
}

// Save persists a roadmap and returns its id. Client-supplied ids are
// ignored; the store generates them.
func (s RoadmapService) Save(ctx domain.Context, rm domain.Roadmap) (string, error) {
	if strings.TrimSpace(rm.Topic) == "" {
		return "", fmt.Errorf("%w: topic required", domain.ErrInvalidArgument)
	}
	rm.ID = ""
	rm.CreatedAt = time.Now().UTC()
	id, err := s.Repo.Save(ctx, rm)
	if err != nil {
		return "", err
	}
	slog.Info("roadmap saved", slog.String("id", id), slog.String("topic", rm.Topic))
	return id, nil
}

// Delete removes a saved roadmap by id.
func (s RoadmapService) Delete(ctx domain.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("roadmap deleted", slog.String("id", id))
	return nil
}
