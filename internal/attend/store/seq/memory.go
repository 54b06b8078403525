package seq

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory. Fine for a single node;
// counters survive restarts only because the rotation service calls Ensure
// with the last persisted sequence before minting.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

func (s *MemoryStore) Next(ctx context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[sessionID]++
	return s.counters[sessionID], nil
}

func (s *MemoryStore) Ensure(ctx context.Context, sessionID string, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[sessionID] < floor {
		s.counters[sessionID] = floor
	}
	return nil
}

func (s *MemoryStore) Forget(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, sessionID)
	return nil
}
