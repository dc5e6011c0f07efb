package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisStore is a distributed second-level store: entries are visible to
// every process sharing the same Redis instance, at the cost of a network
// round trip per operation. Values are msgpack-encoded since redis stores
// strings/bytes, not Go values.
type RedisStore struct {
	id     string
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a RedisStore over an already-configured client.
// ttl of 0 means entries never expire on their own.
func NewRedisStore(id string, client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{id: id, client: client, ttl: ttl}
}

func (c *RedisStore) ID() string { return c.id }

func (c *RedisStore) Get(key Key) (any, bool) {
	raw, err := c.client.Get(context.Background(), string(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
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

func (c *RedisStore) Put(key Key, value any) {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(context.Background(), string(key), raw, c.ttl)
}

func (c *RedisStore) Remove(key Key) {
	c.client.Del(context.Background(), string(key))
}

func (c *RedisStore) Clear() {
	c.client.FlushDB(context.Background())
}

func (c *RedisStore) Size() int {
	n, err := c.client.DBSize(context.Background()).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
