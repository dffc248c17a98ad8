package cache

import (
	"sync"
	"time"
)

// Cache is a TTL map. Entries read through Touch get their expiry pushed out,
// which gives idle-timeout semantics to sessions.
type Cache[V any] struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry[V]
	now func() time.Time
}

type entry[V any] struct {
	val V
	exp time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache[V]{
		ttl: ttl,
		m:   make(map[string]entry[V]),
		now: time.Now,
	}
}

func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[V]) Get(key string) (V, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		// re-check under the write lock, a Set may have landed in between
		if cur, ok := c.m[key]; ok && now.After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return e.val, true
}

// Touch returns the value and extends its expiry by the cache TTL.
func (c *Cache[V]) Touch(key string) (V, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.m[key]
	if !ok {
		return zero, false
	}
	if now.After(e.exp) {
		delete(c.m, key)
		return zero, false
	}

	e.exp = now.Add(c.ttl)
	c.m[key] = e
	return e.val, true
}

func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	c.m[key] = entry[V]{val: val, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// GetOrSet returns the live value for key, or stores and returns the value
// built by fn. fn runs under the write lock and must not touch the cache.
func (c *Cache[V]) GetOrSet(key string, fn func() V) (V, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.m[key]; ok && !now.After(e.exp) {
		e.exp = now.Add(c.ttl)
		c.m[key] = e
		return e.val, true
	}

	v := fn()
	c.m[key] = entry[V]{val: v, exp: now.Add(c.ttl)}
	return v, false
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// SweepUnless is Sweep, except that expired entries for which keep reports
// true get a fresh TTL instead of being dropped. keep runs under the write
// lock and must not touch the cache.
func (c *Cache[V]) SweepUnless(keep func(key string, v V) bool) int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.m {
		if !now.After(e.exp) {
			continue
		}
		if keep(k, e.val) {
			e.exp = now.Add(c.ttl)
			c.m[k] = e
			continue
		}
		delete(c.m, k)
		n++
	}
	return n
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry[V])
	c.mu.Unlock()
}
