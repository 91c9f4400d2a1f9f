package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps wishes in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	byName map[string][]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byName: make(map[string][]string)}
}

func (s *MemoryStore) Save(ctx context.Context, name, wish string) error {
	s.mu.Lock()
	s.byName[name] = append(s.byName[name], wish)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wishes := slices.Clone(s.byName[name])
	if wishes == nil {
		wishes = []string{}
	}
	return wishes, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
