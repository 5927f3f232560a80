package analysis

import (
	"container/list"
	"sync"
)

// cacheKey identifies one analysis run. Path and mtime pin the file
// content; the options are part of the key so runs with different
// settings never alias each other.
type cacheKey struct {
	path    string
	mtime   int64
	options Options
}

type cacheEntry struct {
	key   cacheKey
	value *Analysis
}

// lruCache is a fixed-capacity map plus a recency list. get promotes,
// put inserts at the front and evicts from the back. All methods hold
// the mutex for their full duration; entries are small and the work
// under lock is pointer shuffling only.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]*list.Element
	order    *list.List
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		entries:  make(map[cacheKey]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *lruCache) get(key cacheKey) (*Analysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *lruCache) put(key cacheKey, value *Analysis) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, value: value})
	c.entries[key] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}
