package cache

import (
	"errors"
	"sync/atomic"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/vmihailenco/msgpack/v5"
)

// memcacheExpirationSeconds is memcache's per-item TTL; memcache treats 0 as
// "never expire" itself, so this is left as an explicit, generous default
// rather than relying on that special case.
const memcacheExpirationSeconds = 24 * 60 * 60

// MemcacheStore is a distributed second-level store backed by a memcached
// cluster. memcache has no server-side count or flush-one-db operation, so
// Size is a local approximation and Clear uses memcache's global FlushAll.
type MemcacheStore struct {
	id     string
	client *memcache.Client
	approx int64
}

// NewMemcacheStore builds a MemcacheStore over the given server addresses.
func NewMemcacheStore(id string, servers ...string) *MemcacheStore {
	return &MemcacheStore{id: id, client: memcache.New(servers...)}
}

func (c *MemcacheStore) ID() string { return c.id }

func (c *MemcacheStore) Get(key Key) (any, bool) {
	item, err := c.client.Get(string(key))
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false
		}
		return nil, false
	}
	var value any
	if err := msgpack.Unmarshal(item.Value, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (c *MemcacheStore) Put(key Key, value any) {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(&memcache.Item{
		Key:        string(key),
		Value:      raw,
		Expiration: memcacheExpirationSeconds,
	}); err == nil {
		atomic.AddInt64(&c.approx, 1)
	}
}

func (c *MemcacheStore) Remove(key Key) {
	if err := c.client.Delete(string(key)); err == nil {
		atomic.AddInt64(&c.approx, -1)
	}
}

func (c *MemcacheStore) Clear() {
	if err := c.client.DeleteAll(); err == nil {
		atomic.StoreInt64(&c.approx, 0)
	}
}

func (c *MemcacheStore) Size() int {
	return int(atomic.LoadInt64(&c.approx))
}
