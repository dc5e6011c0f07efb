package cache

import "github.com/vmihailenco/msgpack/v5"

// Serialized deep-copies values through a msgpack marshal/unmarshal round
// trip on both Put and Get, so a caller mutating a value it got from the
// cache (or is about to put into it) can never corrupt another caller's
// view of the same entry.
type Serialized struct {
	delegate Cache
}

// NewSerialized wraps delegate with copy-on-put/copy-on-get semantics.
func NewSerialized(delegate Cache) *Serialized {
	return &Serialized{delegate: delegate}
}

func (c *Serialized) ID() string { return c.delegate.ID() }

func (c *Serialized) Get(key Key) (any, bool) {
	v, ok := c.delegate.Get(key)
	if !ok {
		return nil, false
	}
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, false
	}
	var copied any
	if err := msgpack.Unmarshal(raw, &copied); err != nil {
		return nil, false
	}
	return copied, true
}

func (c *Serialized) Put(key Key, value any) {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		return
	}
	var copied any
	if err := msgpack.Unmarshal(raw, &copied); err != nil {
		return
	}
	c.delegate.Put(key, copied)
}

func (c *Serialized) Remove(key Key) { c.delegate.Remove(key) }

func (c *Serialized) Clear() { c.delegate.Clear() }

func (c *Serialized) Size() int { return c.delegate.Size() }
