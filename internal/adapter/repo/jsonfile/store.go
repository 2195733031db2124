// Package jsonfile persists roadmaps as a single JSON array file.
//
// Every mutation is a read-modify-write of the whole file guarded by an
// in-process mutex; last write wins. This is acceptable because the
// expected number of concurrent writers is effectively zero.
package jsonfile

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/jerwingubat/RoadMapGenerator/internal/domain"
)

// Store implements domain.RoadmapRepository on a flat JSON file.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New constructs a Store writing to path. The parent directory is created
// lazily on first write.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// NewID returns a unix-millisecond timestamp concatenated with a random
// hex suffix.
func NewID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + hex.EncodeToString(b[:])
}

// List returns all saved roadmaps, newest first.
func (s *Store) List(ctx domain.Context) ([]domain.Roadmap, error) {
	tracer := otel.Tracer("repo.roadmaps")
	_, span := tracer.Start(ctx, "roadmaps.List")
	defer span.End()
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

// Get loads a roadmap by id.
func (s *Store) Get(ctx domain.Context, id string) (domain.Roadmap, error) {
	tracer := otel.Tracer("repo.roadmaps")
	_, span := tracer.Start(ctx, "roadmaps.Get")
	defer span.End()
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return domain.Roadmap{}, err
	}
	for _, rm := range items {
		if rm.ID == id {
			return rm, nil
		}
	}
	return domain.Roadmap{}, fmt.Errorf("op=roadmap.get: %w", domain.ErrNotFound)
}

// Save appends a roadmap, generating an id when absent, and returns the id.
func (s *Store) Save(ctx domain.Context, rm domain.Roadmap) (string, error) {
	tracer := otel.Tracer("repo.roadmaps")
	_, span := tracer.Start(ctx, "roadmaps.Save")
	defer span.End()
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return "", err
	}
	if rm.ID == "" {
		rm.ID = NewID()
	}
	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = s.now().UTC()
	}
	items = append(items, rm)
	if err := s.persist(items); err != nil {
		return "", err
	}
	return rm.ID, nil
}

// Delete removes a roadmap by id.
func (s *Store) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.roadmaps")
	_, span := tracer.Start(ctx, "roadmaps.Delete")
	defer span.End()
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return err
	}
	kept := items[:0]
	found := false
	for _, rm := range items {
		if rm.ID == id {
			found = true
			continue
		}
		kept = append(kept, rm)
	}
	if !found {
		return fmt.Errorf("op=roadmap.delete: %w", domain.ErrNotFound)
	}
	return s.persist(kept)
}

// Ping reports whether the store location is usable, for readiness checks.
func (s *Store) Ping(_ domain.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("op=roadmap.ping: %w", err)
	}
	return nil
}

// load reads the whole file; a missing file is an empty list.
func (s *Store) load() ([]domain.Roadmap, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("op=roadmap.load: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	var items []domain.Roadmap
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("op=roadmap.load: corrupt store: %w", err)
	}
	return items, nil
}

// persist writes the whole array through a temp file and rename.
func (s *Store) persist(items []domain.Roadmap) error {
	if items == nil {
		items = []domain.Roadmap{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("op=roadmap.persist: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("op=roadmap.persist: %w", err)
	}
	tmp := s.path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("op=roadmap.persist: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("op=roadmap.persist: %w", err)
	}
	return nil
}
