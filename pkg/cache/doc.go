// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
//	c := cache.NewLRU[string, Profile](1024,
//	    cache.WithTTL[string, Profile](5*time.Minute),
//	)
//	c.Put("u1", profile)
//	if p, ok := c.Get("u1"); ok {
//	    // fresh hit
//	}
//
// Expired entries are removed lazily on Get. Eviction callbacks run while
// the cache lock is held and must not call back into the cache.
package cache
