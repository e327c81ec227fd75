package directory

import (
	"context"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/cache"
)

// Cached is a read-through cache in front of a Store. Only found profiles
// are cached; misses and errors always reach the backend. SetAdmin writes
// through and evicts the entry.
type Cached struct {
	next  Store
	cache *cache.LRU[string, Profile]
}

// NewCached wraps next with an LRU of size entries that expire after ttl.
// A zero ttl keeps entries until they are evicted.
func NewCached(next Store, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 1024
	}
	return &Cached{
		next:  next,
		cache: cache.NewLRU[string, Profile](size, cache.WithTTL[string, Profile](ttl)),
	}
}

func (c *Cached) Get(ctx context.Context, id string) (Profile, error) {
	if p, ok := c.cache.Get(id); ok {
		return p, nil
	}
	p, err := c.next.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	c.cache.Put(id, p)
	return p, nil
}

func (c *Cached) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	defer c.cache.Remove(id)
	return c.next.SetAdmin(ctx, id, isAdmin)
}
