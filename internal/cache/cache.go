// Package cache holds loaded values for a short time so hot lookups, like
// the user behind every authenticated request, do not hit the database.
package cache

import (
	"sync"
	"time"
)

// Loader returns the value of key and whether it exists.
type Loader[K comparable, V any] func(key K) (V, bool)

// Cache keeps found values for ttl and misses for missTTL, so an unknown
// login retried in a loop is cheap while a new user shows up quickly.
type Cache[K comparable, V any] struct {
	mx      sync.Mutex
	items   map[K]*item[V]
	ttl     time.Duration
	missTTL time.Duration
	load    Loader[K, V]
	now     func() time.Time
}

type item[V any] struct {
	mx      sync.Mutex
	value   V
	expires time.Time
}

func New[K comparable, V any](ttl, missTTL time.Duration, load Loader[K, V]) *Cache[K, V] {
	return &Cache[K, V]{
		items:   make(map[K]*item[V]),
		ttl:     ttl,
		missTTL: missTTL,
		load:    load,
		now:     time.Now,
	}
}

func (c *Cache[K, V]) item(key K) *item[V] {
	c.mx.Lock()
	defer c.mx.Unlock()

	it, ok := c.items[key]
	if !ok {
		it = new(item[V])
		c.items[key] = it
	}

	return it
}

// Get returns the cached value of key, calling the loader when it expired.
// Concurrent calls for one key share a single load.
func (c *Cache[K, V]) Get(key K) V {
	it := c.item(key)

	it.mx.Lock()
	defer it.mx.Unlock()

	now := c.now()

	if now.Before(it.expires) {
		return it.value
	}

	v, found := c.load(key)
	it.value = v

	if found {
		it.expires = now.Add(c.ttl)
	} else {
		it.expires = now.Add(c.missTTL)
	}

	return v
}

// Invalidate forgets keys so the next Get calls the loader.
func (c *Cache[K, V]) Invalidate(keys ...K) {
	c.mx.Lock()
	defer c.mx.Unlock()

	for _, k := range keys {
		delete(c.items, k)
	}
}

// Purge drops expired entries and returns how many are left.
func (c *Cache[K, V]) Purge() int {
	c.mx.Lock()
	defer c.mx.Unlock()

	now := c.now()

	for k, it := range c.items {
		if !it.mx.TryLock() {
			continue
		}

		if !now.Before(it.expires) {
			delete(c.items, k)
		}

		it.mx.Unlock()
	}

	return len(c.items)
}
