package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// LRU is a concurrent least-recently-used cache with per-entry eviction
// eligibility.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int
	items     map[K]*list.Element
	evictList *list.List // front = most recently used
	onEvict   func(K, V)

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	evictable bool
}

type evicted[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates a cache that keeps at most capacity entries after
// PerformEviction. onEvict may be nil.
func NewLRU[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &LRU[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
		onEvict:   onEvict,
	}
}

// Add inserts or replaces key and marks it most recently used.
// A replaced value is passed to the eviction callback.
func (c *LRU[K, V]) Add(key K, value V, evictable bool) {
	var old []evicted[K, V]

	c.mu.Lock()
	if ent, ok := c.items[key]; ok {
		e := ent.Value.(*entry[K, V])
		old = append(old, evicted[K, V]{key: key, value: e.value})
		e.value = value
		e.evictable = evictable
		c.evictList.MoveToFront(ent)
	} else {
		c.items[key] = c.evictList.PushFront(&entry[K, V]{key: key, value: value, evictable: evictable})
	}
	c.mu.Unlock()

	c.release(old)
}

// Find returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Find(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// SetEvictable changes the eviction eligibility of key without touching
// its recency. It returns false if key is not cached.
func (c *LRU[K, V]) SetEvictable(key K, evictable bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return false
	}
	ent.Value.(*entry[K, V]).evictable = evictable
	return true
}

// PerformEviction removes least recently used evictable entries until the
// cache holds at most capacity entries or no evictable entry is left.
// It returns the number of evicted entries.
func (c *LRU[K, V]) PerformEviction() int {
	var victims []evicted[K, V]

	c.mu.Lock()
	excess := c.evictList.Len() - c.capacity
	for ent := c.evictList.Back(); ent != nil && excess > 0; {
		prev := ent.Prev()
		e := ent.Value.(*entry[K, V])
		if e.evictable {
			c.evictList.Remove(ent)
			delete(c.items, e.key)
			victims = append(victims, evicted[K, V]{key: e.key, value: e.value})
			excess--
		}
		ent = prev
	}
	c.mu.Unlock()

	c.release(victims)
	return len(victims)
}

// Remove drops key regardless of its evictable flag.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	ent, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.evictList.Remove(ent)
	delete(c.items, key)
	e := ent.Value.(*entry[K, V])
	c.mu.Unlock()

	c.release([]evicted[K, V]{{key: e.key, value: e.value}})
	return true
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Capacity returns the configured capacity.
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.evictList.Len())
	for ent := c.evictList.Front(); ent != nil; ent = ent.Next() {
		keys = append(keys, ent.Value.(*entry[K, V]).key)
	}
	return keys
}

// Range calls fn for each entry from most to least recently used until fn
// returns false. fn runs under the cache lock and must not call back into
// the cache.
func (c *LRU[K, V]) Range(fn func(key K, value V, evictable bool) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ent := c.evictList.Front(); ent != nil; ent = ent.Next() {
		e := ent.Value.(*entry[K, V])
		if !fn(e.key, e.value, e.evictable) {
			return
		}
	}
}

// Stats returns hit and miss counts of Find.
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close removes every entry, evictable or not.
func (c *LRU[K, V]) Close() error {
	c.mu.Lock()
	victims := make([]evicted[K, V], 0, c.evictList.Len())
	for ent := c.evictList.Back(); ent != nil; ent = ent.Prev() {
		e := ent.Value.(*entry[K, V])
		victims = append(victims, evicted[K, V]{key: e.key, value: e.value})
	}
	c.items = make(map[K]*list.Element)
	c.evictList.Init()
	c.mu.Unlock()

	c.release(victims)
	return nil
}

func (c *LRU[K, V]) release(victims []evicted[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, v := range victims {
		c.onEvict(v.key, v.value)
	}
}
