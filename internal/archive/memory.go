package archive

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps games for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(e, s.now())
	if _, exists := s.entries[e.ID]; exists {
		return fmt.Errorf("game %s already archived", e.ID)
	}
	entry := *e
	entry.Moves = append(Moves{}, e.Moves...)
	s.entries[e.ID] = entry
	s.order = append(s.order, e.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []Entry{}
	for i := len(s.order) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, s.entries[s.order[i]])
	}
	return res, nil
}

func (s *MemoryStore) Close() error { return nil }
