package cache

import (
	"container/list"
	"errors"
	"time"

	"github.com/allegro/bigcache"
	"github.com/vmihailenco/msgpack/v5"
)

// weakRecentWindow mirrors Soft's recency deque, sized smaller since bigcache's
// sharded map is itself GC-friendlier than fastcache's single arena.
const weakRecentWindow = 64

// Weak is the GC-pressure-sensitive analogue: a sharded, GC-avoiding map
// (bigcache) whose entries age out on their own eviction timer, softened by
// the same strong-reference recency deque Soft uses.
type Weak struct {
	id     string
	store  *bigcache.BigCache
	recent *list.List
	pinned map[Key]any
	window int
}

// NewWeak builds a Weak cache whose entries expire after ttl if untouched.
func NewWeak(id string, ttl time.Duration) (*Weak, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	store, err := bigcache.NewBigCache(bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, err
	}
	return &Weak{
		id:     id,
		store:  store,
		recent: list.New(),
		pinned: make(map[Key]any),
		window: weakRecentWindow,
	}, nil
}

func (c *Weak) ID() string { return c.id }

func (c *Weak) Get(key Key) (any, bool) {
	if v, ok := c.pinned[key]; ok {
		return v, true
	}
	raw, err := c.store.Get(string(key))
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false
		}
		return nil, false
	}
	var value any
	if err := msgpack.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (c *Weak) Put(key Key, value any) {
	raw, err := msgpack.Marshal(value)
	if err == nil {
		_ = c.store.Set(string(key), raw)
	}
	c.pin(key, value)
}

func (c *Weak) pin(key Key, value any) {
	c.pinned[key] = value
	c.recent.PushFront(key)
	for c.recent.Len() > c.window {
		oldest := c.recent.Back()
		c.recent.Remove(oldest)
		delete(c.pinned, oldest.Value.(Key))
	}
}

func (c *Weak) Remove(key Key) {
	_ = c.store.Delete(string(key))
	delete(c.pinned, key)
}

func (c *Weak) Clear() {
	_ = c.store.Reset()
	c.pinned = make(map[Key]any)
	c.recent.Init()
}

func (c *Weak) Size() int {
	return c.store.Len()
}
