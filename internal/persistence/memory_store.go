package persistence

import (
	"context"
	"sync"

	"github.com/petrijr/plano/internal/snapshot"
)

// InMemoryRunStore is a RunStore kept in process memory. Records are deep
// copied on the way in and out.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

var _ RunStore = (*InMemoryRunStore)(nil)

func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]*RunRecord)}
}

func (s *InMemoryRunStore) SaveRun(_ context.Context, rec *RunRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	cp := snapshot.Copy(*rec).(RunRecord)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.ID] = &cp
	return nil
}

func (s *InMemoryRunStore) GetRun(_ context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := snapshot.Copy(*rec).(RunRecord)
	return &cp, nil
}

func (s *InMemoryRunStore) ListRuns(_ context.Context, filter RunFilter) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*RunRecord
	for _, rec := range s.runs {
		if filter.match(rec) {
			cp := snapshot.Copy(*rec).(RunRecord)
			out = append(out, &cp)
		}
	}
	return sortAndLimit(out, filter.Limit), nil
}
