package repository

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/metrics"
)

// MemoryStore keeps profiles in process. Stored and returned profiles are
// copies.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]model.Profile
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]model.Profile)}
}

func (s *MemoryStore) Get(_ context.Context, scope model.Scope) (*model.Profile, error) {
	s.mu.RLock()
	p, ok := s.profiles[scope.Key()]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (s *MemoryStore) Set(_ context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c := p.Clone()
	s.mu.Lock()
	s.profiles[p.Scope.Key()] = c
	s.mu.Unlock()
	metrics.RecordProfileWrite(string(p.Scope.Kind), "set")
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, scope model.Scope) error {
	s.mu.Lock()
	delete(s.profiles, scope.Key())
	s.mu.Unlock()
	metrics.RecordProfileWrite(string(scope.Kind), "delete")
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]model.Profile, error) {
	s.mu.RLock()
	out := make([]model.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()
	sortProfiles(out)
	return out, nil
}

func sortProfiles(ps []model.Profile) {
	slices.SortFunc(ps, func(a, b model.Profile) int {
		return strings.Compare(a.Scope.Key(), b.Scope.Key())
	})
}
