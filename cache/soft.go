package cache

import (
	"container/list"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/vmihailenco/msgpack/v5"
)

// softRecentWindow is how many of the most recently put entries Soft keeps
// strong references to. Go has no soft-reference GC hook to lean on, so a
// bounded recency deque stands in for "resist collection while memory
// allows": entries inside the window survive even if fastcache's arena
// would otherwise have overwritten their slot.
const softRecentWindow = 128

// Soft is the memory-sensitive retention analogue: a fixed-arena cache
// (fastcache) that quietly overwrites its oldest slots under pressure,
// softened by keeping the most recently put entries pinned in a strong
// reference deque so a hot key surviving a sweep isn't immediately lost.
type Soft struct {
	id     string
	store  *fastcache.Cache
	recent *list.List // of Key, most-recent at Front
	pinned map[Key]any
	window int
}

// NewSoft builds a Soft cache over sizeBytes of fastcache arena storage.
func NewSoft(id string, sizeBytes int) *Soft {
	if sizeBytes <= 0 {
		sizeBytes = 32 * 1024 * 1024
	}
	return &Soft{
		id:     id,
		store:  fastcache.New(sizeBytes),
		recent: list.New(),
		pinned: make(map[Key]any),
		window: softRecentWindow,
	}
}

func (c *Soft) ID() string { return c.id }

func (c *Soft) Get(key Key) (any, bool) {
	if v, ok := c.pinned[key]; ok {
		return v, true
	}
	raw := c.store.Get(nil, []byte(key))
	if raw == nil {
		return nil, false
	}
	var value any
	if err := msgpack.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (c *Soft) Put(key Key, value any) {
	raw, err := msgpack.Marshal(value)
	if err == nil {
		c.store.Set([]byte(key), raw)
	}
	c.pin(key, value)
}

func (c *Soft) pin(key Key, value any) {
	c.pinned[key] = value
	c.recent.PushFront(key)
	for c.recent.Len() > c.window {
		oldest := c.recent.Back()
		c.recent.Remove(oldest)
		delete(c.pinned, oldest.Value.(Key))
	}
}

func (c *Soft) Remove(key Key) {
	c.store.Del([]byte(key))
	delete(c.pinned, key)
}

func (c *Soft) Clear() {
	c.store.Reset()
	c.pinned = make(map[Key]any)
	c.recent.Init()
}

func (c *Soft) Size() int {
	var stats fastcache.Stats
	c.store.UpdateStats(&stats)
	return int(stats.EntriesCount)
}
