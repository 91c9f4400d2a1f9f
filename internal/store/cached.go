package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/livetemplate/newyear/internal/cache"
)

// CachedStore serves List from a per-name cache and drops a name's entry
// whenever a wish is saved for it. A List that read the inner store before
// a concurrent Save finished does not fill the cache.
type CachedStore struct {
	inner WishStore
	cache *cache.MemoryCache[[]string]
	ttl   time.Duration

	mu  sync.Mutex
	gen map[string]uint64 // Bumped by every Save of a name
}

// NewCachedStore wraps inner with a read cache of the given TTL
func NewCachedStore(inner WishStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner: inner,
		cache: cache.NewMemoryCache[[]string](),
		ttl:   ttl,
		gen:   make(map[string]uint64),
	}
}

func (s *CachedStore) Save(ctx context.Context, name, wish string) error {
	if err := s.inner.Save(ctx, name, wish); err != nil {
		return err
	}
	s.mu.Lock()
	s.gen[name]++
	s.cache.Invalidate(name)
	s.mu.Unlock()
	return nil
}

func (s *CachedStore) List(ctx context.Context, name string) ([]string, error) {
	if wishes, ok := s.cache.Get(name); ok {
		return slices.Clone(wishes), nil
	}
	s.mu.Lock()
	gen := s.gen[name]
	s.mu.Unlock()

	wishes, err := s.inner.List(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.gen[name] == gen {
		s.cache.Set(name, slices.Clone(wishes), s.ttl)
	}
	s.mu.Unlock()
	return wishes, nil
}

// Inner returns the wrapped store
func (s *CachedStore) Inner() WishStore {
	return s.inner
}

// Close stops the cache and closes the wrapped store
func (s *CachedStore) Close() error {
	s.cache.Stop()
	return s.inner.Close()
}
