package cache

// Transactional stages writes against an underlying (shared, second-level)
// cache for the lifetime of one session's transaction: reads pass through
// to the delegate and record misses, writes accumulate in an overlay
// instead of touching the delegate directly, and the overlay is only
// applied — or discarded — when the transaction concludes.
type Transactional struct {
	delegate     Cache
	pending      map[Key]any
	missed       map[Key]struct{}
	clearPending bool
}

// NewTransactional wraps delegate with commit/rollback staging.
func NewTransactional(delegate Cache) *Transactional {
	return &Transactional{
		delegate: delegate,
		pending:  make(map[Key]any),
		missed:   make(map[Key]struct{}),
	}
}

func (c *Transactional) ID() string { return c.delegate.ID() }

// Get reads through to the delegate; a miss is recorded so Rollback can
// remove the key from the delegate and release any blocking lock held on
// it, even though this cache never wrote there itself. While a Clear is
// pending, every key reads as a miss.
func (c *Transactional) Get(key Key) (any, bool) {
	v, ok := c.delegate.Get(key)
	if !ok {
		c.missed[key] = struct{}{}
	}
	if c.clearPending {
		return nil, false
	}
	return v, ok
}

// Put stages value in the overlay; the delegate is untouched until Commit.
func (c *Transactional) Put(key Key, value any) {
	c.pending[key] = value
}

// Remove leaves the delegate untouched: it drops any value staged for key
// and records the key as missed, so Rollback removes it from the delegate;
// Commit does not remove it there.
func (c *Transactional) Remove(key Key) {
	delete(c.pending, key)
	c.missed[key] = struct{}{}
}

// Clear empties the overlay and defers clearing the delegate until Commit;
// until then Get treats every key as a miss, so this transaction does not
// read entries the clear discarded.
func (c *Transactional) Clear() {
	c.pending = make(map[Key]any)
	c.clearPending = true
}

func (c *Transactional) Size() int { return c.delegate.Size() }

// Commit flushes the overlay into the delegate: a pending Clear runs
// first, then every staged entry is put.
func (c *Transactional) Commit() {
	if c.clearPending {
		c.delegate.Clear()
	}
	for k, v := range c.pending {
		c.delegate.Put(k, v)
	}
	c.reset()
}

// Rollback discards the overlay and removes every key this transaction
// missed on from the delegate, releasing any blocking-cache lock those
// misses acquired.
func (c *Transactional) Rollback() {
	for k := range c.missed {
		c.delegate.Remove(k)
	}
	c.reset()
}

func (c *Transactional) reset() {
	c.pending = make(map[Key]any)
	c.missed = make(map[Key]struct{})
	c.clearPending = false
}
