package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragqa/internal/domain"
)

var _ domain.VectorStore = (*Storage)(nil)

// Storage is an in-memory vector store using brute-force cosine similarity.
// Each collection is an independent namespace keyed by point id.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	order     []string
	points    map[string]domain.Point
}

// NewStorage creates an empty store.
func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

// EnsureCollection creates the collection if missing. An existing collection
// with a different dimension is an error.
func (s *Storage) EnsureCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		if c.dimension != dimension {
			return fmt.Errorf("collection %s exists with dimension %d, want %d", name, c.dimension, dimension)
		}
		return nil
	}
	s.collections[name] = &collection{dimension: dimension, points: make(map[string]domain.Point)}
	return nil
}

// Upsert inserts or replaces points by id.
func (s *Storage) Upsert(_ context.Context, name string, points []domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("collection %s not found", name)
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for _, p := range points {
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = p
	}
	return nil
}

// Search returns up to limit hits ordered by descending cosine similarity.
func (s *Storage) Search(_ context.Context, name string, vector []float64, limit int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	if limit <= 0 {
		limit = 5
	}
	hits := make([]domain.Hit, 0, len(c.order))
	for _, id := range c.order {
		p := c.points[id]
		hits = append(hits, domain.Hit{ID: id, Score: cosine(p.Vector, vector), Payload: p.Payload})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > len(hits) {
		limit = len(hits)
	}
	return hits[:limit], nil
}

// Len reports the number of points stored in a collection.
func (s *Storage) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
