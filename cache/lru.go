package cache

import (
	"time"

	"github.com/karlseguin/ccache/v3"
)

// defaultTTL is long enough to be effectively "no expiry" for a cache whose
// eviction policy is driven by size, not time; Remove/Clear still apply.
const defaultTTL = 24 * time.Hour

// LRU bounds the cache by access order, evicting the least recently used
// entry once MaxSize is exceeded.
type LRU struct {
	id    string
	store *ccache.Cache[any]
}

// NewLRU builds an LRU-bounded cache holding up to maxSize items.
func NewLRU(id string, maxSize int64) *LRU {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &LRU{
		id:    id,
		store: ccache.New(ccache.Configure[any]().MaxSize(maxSize)),
	}
}

func (c *LRU) ID() string { return c.id }

func (c *LRU) Get(key Key) (any, bool) {
	item := c.store.Get(string(key))
	if item == nil || item.Expired() {
		return nil, false
	}
	return item.Value(), true
}

func (c *LRU) Put(key Key, value any) {
	c.store.Set(string(key), value, defaultTTL)
}

func (c *LRU) Remove(key Key) {
	c.store.Delete(string(key))
}

func (c *LRU) Clear() {
	c.store.Clear()
}

func (c *LRU) Size() int {
	return c.store.ItemCount()
}
