package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/sellerfin/offer-engine/internal/model"
)

// MemoryStore implements Store with an in-memory map. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu       sync.RWMutex
	analyses map[string]*model.Analysis
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		analyses: make(map[string]*model.Analysis),
	}
}

func (s *MemoryStore) SaveAnalysis(_ context.Context, a *model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.analyses[a.ID]; exists {
		return fmt.Errorf("analysis %s already exists", a.ID)
	}
	s.analyses[a.ID] = cloneAnalysis(a)
	return nil
}

func (s *MemoryStore) GetAnalysis(_ context.Context, id string) (*model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneAnalysis(a), nil
}

func (s *MemoryStore) ListAnalyses(_ context.Context, f ListFilter) ([]model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Analysis, 0, len(s.analyses))
	for _, a := range s.analyses {
		if f.Viability != "" && a.BestViability != f.Viability {
			continue
		}
		result = append(result, *cloneAnalysis(a))
	}

	slices.SortFunc(result, func(a, b model.Analysis) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	if limit := f.EffectiveLimit(); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) DeleteAnalysis(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.analyses, id)
	return nil
}
