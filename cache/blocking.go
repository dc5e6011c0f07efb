package cache

import "golang.org/x/sync/singleflight"

// Blocking collapses concurrent misses for the same key into a single
// fetch: the first caller computes the value and puts it; every other
// caller for that key blocks until the first one finishes and receives the
// same result, rather than each issuing its own redundant database round
// trip.
type Blocking struct {
	delegate Cache
	group    singleflight.Group
}

// NewBlocking wraps delegate with miss-collapsing via a singleflight.Group
// keyed on the cache key.
func NewBlocking(delegate Cache) *Blocking {
	return &Blocking{delegate: delegate}
}

func (c *Blocking) ID() string { return c.delegate.ID() }

// Get is a plain passthrough; use Load when the caller has a function that
// can recompute the value on a miss and wants concurrent misses collapsed.
func (c *Blocking) Get(key Key) (any, bool) { return c.delegate.Get(key) }

func (c *Blocking) Put(key Key, value any) { c.delegate.Put(key, value) }

func (c *Blocking) Remove(key Key) {
	c.delegate.Remove(key)
	c.group.Forget(string(key))
}

func (c *Blocking) Clear() { c.delegate.Clear() }

func (c *Blocking) Size() int { return c.delegate.Size() }

// Load returns the cached value for key, or, on a miss, calls fn exactly
// once per set of concurrent callers sharing that key, puts its result,
// and returns it to every waiter.
func (c *Blocking) Load(key Key, fn func() (any, error)) (any, error) {
	if v, ok := c.delegate.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(string(key), func() (any, error) {
		if v, ok := c.delegate.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.delegate.Put(key, v)
		return v, nil
	})
	return v, err
}
