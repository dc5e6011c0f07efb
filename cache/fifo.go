package cache

import (
	"errors"

	"github.com/coocood/freecache"
	"github.com/vmihailenco/msgpack/v5"
)

// fifoExpireSeconds is freecache's per-entry TTL; 0 would mean "never
// expire" to freecache, but 0 also collides with its segment-rotation
// eviction semantics, so a long finite TTL is used instead.
const fifoExpireSeconds = 24 * 60 * 60

// FIFO bounds the cache by insertion order via freecache's ring-buffer
// segments: once a segment wraps, its oldest entries are evicted regardless
// of how recently they were read. Values must be msgpack-encodable, since
// freecache only stores raw bytes.
type FIFO struct {
	id    string
	store *freecache.Cache
}

// NewFIFO builds a FIFO-bounded cache backed by sizeBytes of storage.
func NewFIFO(id string, sizeBytes int) *FIFO {
	if sizeBytes <= 0 {
		sizeBytes = 10 * 1024 * 1024
	}
	return &FIFO{id: id, store: freecache.NewCache(sizeBytes)}
}

func (c *FIFO) ID() string { return c.id }

func (c *FIFO) Get(key Key) (any, bool) {
	raw, err := c.store.Get([]byte(key))
	if err != nil {
		if !errors.Is(err, freecache.ErrNotFound) {
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

func (c *FIFO) Put(key Key, value any) {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	_ = c.store.Set([]byte(key), raw, fifoExpireSeconds)
}

func (c *FIFO) Remove(key Key) {
	c.store.Del([]byte(key))
}

func (c *FIFO) Clear() {
	c.store.Clear()
}

func (c *FIFO) Size() int {
	return int(c.store.EntryCount())
}
