package labelstore

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/diarycal/internal/domain/dataset"
	"github.com/okian/diarycal/internal/domain/model"
)

// MemoryStore holds records in process, ordered by (observed_at, id).
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.Record
}

// NewMemoryStore creates a store holding records.
func NewMemoryStore(records ...model.Record) *MemoryStore {
	s := &MemoryStore{}
	s.Append(records...)
	return s
}

// Append adds records to the store.
func (s *MemoryStore) Append(records ...model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	slices.SortStableFunc(s.records, compareRecords)
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Scan(ctx context.Context, q dataset.Query, fn func(model.Record) error) error {
	s.mu.RLock()
	snapshot := slices.Clone(s.records)
	s.mu.RUnlock()

	for _, r := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !matches(q, r) {
			continue
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Subjects(_ context.Context, w model.Window) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range s.records {
		if w.Contains(r.ObservedAt) {
			seen[r.SubjectID] = struct{}{}
		}
	}
	return sortedSubjects(seen), nil
}
