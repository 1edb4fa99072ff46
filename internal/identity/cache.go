package identity

import (
	"sync"
	"sync/atomic"
	"time"
)

// contextCache is a TTL cache with stale-while-revalidate semantics.
// Uses sync.Map for lock-free reads on the hot path.
type contextCache struct {
	store sync.Map // map[string]*cacheEntry keyed by raw token
	ttl   time.Duration
}

type cacheEntry struct {
	caller     *CallerContext
	expiresAt  time.Time
	refreshing atomic.Bool
}

func newContextCache(ttl time.Duration) *contextCache {
	return &contextCache{ttl: ttl}
}

// get returns the cached context if present. A stale entry is still
// returned, with needsRefresh true for exactly one caller so a single
// goroutine refreshes it.
func (c *contextCache) get(token string) (caller *CallerContext, needsRefresh bool) {
	v, ok := c.store.Load(token)
	if !ok {
		return nil, false
	}
	entry := v.(*cacheEntry)
	if time.Now().Before(entry.expiresAt) {
		return entry.caller, false
	}
	return entry.caller, entry.refreshing.CompareAndSwap(false, true)
}

func (c *contextCache) set(token string, caller *CallerContext) {
	c.store.Store(token, &cacheEntry{
		caller:    caller,
		expiresAt: time.Now().Add(c.ttl),
	})
}
