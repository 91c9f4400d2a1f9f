package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheBasic(t *testing.T) {
	c := NewMemoryCache[[]string]()
	defer c.Stop()

	_, found := c.Get("alice")
	assert.False(t, found)

	c.Set("alice", []string{"travel"}, time.Minute)
	got, found := c.Get("alice")
	assert.True(t, found)
	assert.Equal(t, []string{"travel"}, got)
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache[int]()
	defer c.Stop()

	c.Set("short", 1, 30*time.Millisecond)
	_, found := c.Get("short")
	assert.True(t, found)

	time.Sleep(60 * time.Millisecond)
	_, found = c.Get("short")
	assert.False(t, found)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := NewMemoryCache[int]()
	defer c.Stop()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Invalidate("a")

	_, found := c.Get("a")
	assert.False(t, found)
	assert.Equal(t, 1, c.Len())

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheCleanupSweepsExpired(t *testing.T) {
	c := newMemoryCache[int](10 * time.Millisecond)
	defer c.Stop()

	c.Set("gone", 1, time.Millisecond)
	c.Set("kept", 2, time.Minute)

	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCacheStopIsIdempotent(t *testing.T) {
	c := NewMemoryCache[int]()
	c.Stop()
	c.Stop()
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	c := NewMemoryCache[int]()
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("k", i, time.Minute)
			c.Get("k")
			c.Invalidate("k")
		}(i)
	}
	wg.Wait()
}
