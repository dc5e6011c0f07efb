package cache

import "sync"

// Synchronized serializes all access to a delegate that isn't otherwise
// safe for concurrent use, via whole-cache mutual exclusion. A plain
// sync.RWMutex is the correct primitive here: no third-party "generic
// mutex" library exists in the dependency pack, and this is exactly what
// the standard library's own synchronization type is for.
type Synchronized struct {
	mu       sync.RWMutex
	delegate Cache
}

// NewSynchronized wraps delegate with a shared RWMutex.
func NewSynchronized(delegate Cache) *Synchronized {
	return &Synchronized{delegate: delegate}
}

func (c *Synchronized) ID() string { return c.delegate.ID() }

func (c *Synchronized) Get(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delegate.Get(key)
}

func (c *Synchronized) Put(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Put(key, value)
}

func (c *Synchronized) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Remove(key)
}

func (c *Synchronized) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate.Clear()
}

func (c *Synchronized) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delegate.Size()
}
