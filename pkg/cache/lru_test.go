package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pushkit/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestLRU_Basic(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		c := cache.NewLRU[string, int](3)

		c.Put("a", 1)
		c.Put("b", 2)

		val, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, val)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("missing key", func(t *testing.T) {
		c := cache.NewLRU[string, int](3)

		val, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Zero(t, val)
	})

	t.Run("overwrite", func(t *testing.T) {
		c := cache.NewLRU[string, int](3)

		c.Put("a", 1)
		c.Put("a", 2)

		val, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, val)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		c := cache.NewLRU[string, int](3)
		c.Put("a", 1)

		assert.True(t, c.Remove("a"))
		assert.False(t, c.Remove("a"))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("non-positive capacity panics", func(t *testing.T) {
		assert.Panics(t, func() { cache.NewLRU[string, int](0) })
	})
}

func TestLRU_Eviction(t *testing.T) {
	var evicted []string
	c := cache.NewLRU[string, int](2, cache.WithEvictCallback(func(key string, _ int) {
		evicted = append(evicted, key)
	}))

	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a") // b becomes least recently used
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, evicted)

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.ElementsMatch(t, []string{"b", "a", "c"}, evicted)
}

func TestLRU_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.NewLRU[string, string](10,
		cache.WithTTL[string, string](time.Minute),
		cache.WithClock[string, string](clock.Now),
	)

	c.Put("u1", "Alice")

	clock.Advance(59 * time.Second)
	val, ok := c.Get("u1")
	assert.True(t, ok)
	assert.Equal(t, "Alice", val)

	clock.Advance(time.Second)
	_, ok = c.Get("u1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	c.Put("u1", "Alice")
	clock.Advance(30 * time.Second)
	c.Put("u1", "Alicia") // refreshes expiry
	clock.Advance(45 * time.Second)
	val, ok = c.Get("u1")
	assert.True(t, ok)
	assert.Equal(t, "Alicia", val)
}

func TestLRU_Concurrent(t *testing.T) {
	c := cache.NewLRU[int, int](64)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 200 {
				c.Put(g*1000+i, i)
				_, _ = c.Get(g*1000 + i/2)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
