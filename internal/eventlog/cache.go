package eventlog

import (
	"container/list"
	"sync"
)

// DefaultCacheSize bounds an executor's projection cache when the
// configured size is unusable
const DefaultCacheSize = 4096

type (
	constructor[T any] func() T

	// cacheEntry carries its own lock so loading and committing a cached
	// value serializes per key, never across the whole cache
	cacheEntry[T any] struct {
		value T
		key   string
		mu    sync.Mutex
	}

	// lruCache is a small bounded cache with least-recently-used
	// eviction. Get never fails; a missing key is constructed in place
	lruCache[T any] struct {
		mu      sync.Mutex
		entries map[string]*list.Element
		order   *list.List
		limit   int
	}
)

func newLRUCache[T any](limit int) *lruCache[T] {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &lruCache[T]{
		entries: map[string]*list.Element{},
		order:   list.New(),
		limit:   limit,
	}
}

// Get returns the entry for key, constructing it on first use. The entry
// is promoted to most recently used either way
func (c *lruCache[T]) Get(key string, cons constructor[T]) *cacheEntry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*cacheEntry[T])
	}

	entry := &cacheEntry[T]{key: key, value: cons()}
	c.entries[key] = c.order.PushFront(entry)

	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry[T]).key)
	}

	return entry
}
