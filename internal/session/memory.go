package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	userID int64
	exp    time.Time
}

// MemoryStore keeps sessions in an in-process TTL map. It backs tests
// and single-node local runs; production uses RedisStore.
type MemoryStore struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (s *MemoryStore) Set(_ context.Context, id string, userID int64, ttl time.Duration) error {
	s.mu.Lock()
	s.m[id] = entry{userID: userID, exp: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (int64, bool, error) {
	now := s.now()

	s.mu.RLock()
	e, ok := s.m[id]
	s.mu.RUnlock()

	if !ok {
		return 0, false, nil
	}

	if now.After(e.exp) {
		s.mu.Lock()
		delete(s.m, id)
		s.mu.Unlock()
		return 0, false, nil
	}

	return e.userID, true, nil
}

func (s *MemoryStore) Refresh(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	e, ok := s.m[id]
	if ok {
		e.exp = s.now().Add(ttl)
		s.m[id] = e
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
	return nil
}
