package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jerwingubat/RoadMapGenerator/internal/config"
	"github.com/jerwingubat/RoadMapGenerator/internal/domain"
	"github.com/jerwingubat/RoadMapGenerator/internal/service/models"
	"github.com/jerwingubat/RoadMapGenerator/internal/usecase"
)

// Server aggregates handlers dependencies.
type Server struct {
	Cfg           config.Config
	Generate      usecase.GenerateService
	Roadmaps      usecase.RoadmapService
	Catalog       *models.Service
	StoreCheck    func(ctx context.Context) error
	ProviderCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, gen usecase.GenerateService, roadmaps usecase.RoadmapService, catalog *models.Service, storeCheck, providerCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Generate: gen, Roadmaps: roadmaps, Catalog: catalog, StoreCheck: storeCheck, ProviderCheck: providerCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// acceptsJSON rejects requests whose Accept header excludes JSON.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotAcceptable)
		_ = json.NewEncoder(w).Encode(errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a}}})
		return false
	}
	return true
}

// GenerateHandler builds prompts, runs model fallback, and returns the
// extracted roadmap. Nothing is persisted here.
func (s *Server) GenerateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
		var req struct {
			Topic     string `json:"topic" validate:"required,max=200"`
			Level     string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
			Timeframe string `json:"timeframe" validate:"required,max=100"`
			Model     string `json:"model" validate:"omitempty,max=200"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			verrs := map[string]string{}
			if ve, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range ve {
					verrs[strings.ToLower(fe.Field())] = fe.Tag()
				}
			}
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}
		rm, err := s.Generate.Generate(r.Context(), domain.GenerateRequest{
			Topic:     req.Topic,
			Level:     req.Level,
			Timeframe: req.Timeframe,
			Model:     req.Model,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rm)
	}
}

// ListRoadmapsHandler returns summaries of saved roadmaps, newest first.
func (s *Server) ListRoadmapsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		items, err := s.Roadmaps.List(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roadmaps": items})
	}
}

// SaveRoadmapHandler persists a roadmap document and returns its id.
func (s *Server) SaveRoadmapHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
		var rm domain.Roadmap
		if err := json.NewDecoder(r.Body).Decode(&rm); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		id, err := s.Roadmaps.Save(r.Context(), rm)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

// GetRoadmapHandler fetches one saved roadmap by id.
func (s *Server) GetRoadmapHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		rm, err := s.Roadmaps.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rm)
	}
}

// DeleteRoadmapHandler removes a saved roadmap by id.
func (s *Server) DeleteRoadmapHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		if err := s.Roadmaps.Delete(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
	}
}

// ModelsHandler returns the provider model catalog for the frontend picker.
func (s *Server) ModelsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		list, err := s.Catalog.Models(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": list})
	}
}

// ReadyzHandler probes the store and the provider.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.StoreCheck != nil {
			if err := s.StoreCheck(ctx); err != nil {
				checks = append(checks, check{Name: "store", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "store", OK: true})
			}
		}
		if s.ProviderCheck != nil {
			if err := s.ProviderCheck(ctx); err != nil {
				checks = append(checks, check{Name: "provider", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "provider", OK: true})
			}
		}
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
