package session

import (
	"context"
	"sync"
	"time"

	"example.com/bc-solo/internal/game"
)

// InMemoryStore keeps snapshots in process memory with an expiry.
// ttl <= 0 keeps them forever.
type InMemoryStore struct {
	mu  sync.Mutex
	m   map[string]memEntry
	ttl time.Duration
}

type memEntry struct {
	snap    game.Snapshot
	expires time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		m:   make(map[string]memEntry),
		ttl: ttl,
	}
}

func (s *InMemoryStore) Save(ctx context.Context, id string, snap game.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memEntry{snap: snap}
	if s.ttl > 0 {
		e.expires = time.Now().Add(s.ttl)
	}
	s.m[id] = e
	return nil
}

func (s *InMemoryStore) Load(ctx context.Context, id string) (game.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[id]
	if !ok {
		return game.Snapshot{}, false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(s.m, id)
		return game.Snapshot{}, false, nil
	}
	return e.snap, true, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}
