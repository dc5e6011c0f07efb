package cache

import "github.com/dgraph-io/ristretto/v2"

// RistrettoStore is an in-process, cost-aware second-level store, suited to
// a single-process deployment that wants admission/eviction tuned by entry
// cost rather than a flat item count.
type RistrettoStore struct {
	id    string
	store *ristretto.Cache[string, any]
}

// NewRistrettoStore builds a RistrettoStore sized by maxCost (bytes, or any
// unit consistent with the costs passed to Put via PutWithCost).
func NewRistrettoStore(id string, maxCost int64) (*RistrettoStore, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoStore{id: id, store: store}, nil
}

func (c *RistrettoStore) ID() string { return c.id }

func (c *RistrettoStore) Get(key Key) (any, bool) {
	return c.store.Get(string(key))
}

func (c *RistrettoStore) Put(key Key, value any) {
	c.PutWithCost(key, value, 1)
}

// PutWithCost admits value at the given cost; ristretto's admission policy
// may reject the write under memory pressure, which callers accept as part
// of this store's tradeoff for cost-aware eviction.
func (c *RistrettoStore) PutWithCost(key Key, value any, cost int64) {
	c.store.Set(string(key), value, cost)
	c.store.Wait()
}

func (c *RistrettoStore) Remove(key Key) {
	c.store.Del(string(key))
}

func (c *RistrettoStore) Clear() {
	c.store.Clear()
}

func (c *RistrettoStore) Size() int {
	return int(c.store.Metrics.KeysAdded() - c.store.Metrics.KeysEvicted())
}

// Close releases ristretto's background goroutines.
func (c *RistrettoStore) Close() { c.store.Close() }
