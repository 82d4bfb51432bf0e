package cache

import (
	"container/list"
	"sync"
	"time"
)

// EvictFunc is called after an entry leaves the cache, whether by
// capacity, expiry, explicit deletion or Purge. It runs without the
// cache lock held so it may call back into the cache.
type EvictFunc[T any] func(key string, data T)

// Options tunes an LRUCache beyond size and TTL.
type Options[T any] struct {
	// OnEvict receives every removed entry.
	OnEvict EvictFunc[T]
	// Sliding refreshes an entry's expiry on every successful Get.
	Sliding bool
}

// LRUCache is an LRU cache with TTL and size-based eviction
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	onEvict EvictFunc[T]
	sliding bool
	now     func() time.Time
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return NewLRUCacheWithOptions[T](maxSize, ttl, Options[T]{})
}

// NewLRUCacheWithOptions creates an LRU cache with an eviction hook and
// optional sliding expiry.
func NewLRUCacheWithOptions[T any](maxSize int, ttl time.Duration, opts Options[T]) *LRUCache[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		onEvict: opts.OnEvict,
		sliding: opts.Sliding,
		now:     time.Now,
	}
}

// Get retrieves a value from the cache
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	now := c.now()
	if now.After(item.expiresAt) {
		evicted = append(evicted, c.removeElement(elem))
		return zero, false
	}

	if c.sliding {
		item.expiresAt = now.Add(c.ttl)
	}
	c.lru.MoveToFront(elem)
	return item.data, true
}

// Set stores a value in the cache. Replacing an existing key does not
// fire the eviction hook for the old value.
func (c *LRUCache[T]) Set(key string, data T) {
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(item)

	for c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		evicted = append(evicted, c.removeElement(oldest))
	}
}

// Delete removes a key from the cache
func (c *LRUCache[T]) Delete(key string) {
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		evicted = append(evicted, c.removeElement(elem))
	}
}

// Purge removes every entry and returns how many were dropped.
func (c *LRUCache[T]) Purge() int {
	c.mu.Lock()
	evicted := make([]*cacheItem[T], 0, c.lru.Len())
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		evicted = append(evicted, c.removeElement(elem))
		elem = next
	}
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

func (c *LRUCache[T]) removeElement(elem *list.Element) *cacheItem[T] {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
	return item
}

func (c *LRUCache[T]) notify(evicted []*cacheItem[T]) {
	if c.onEvict == nil {
		return
	}
	for _, item := range evicted {
		c.onEvict(item.key, item.data)
	}
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	now := c.now()
	var evicted []*cacheItem[T]
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			evicted = append(evicted, c.removeElement(elem))
		}
		elem = next
	}
	c.mu.Unlock()

	c.notify(evicted)
	return len(evicted)
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
