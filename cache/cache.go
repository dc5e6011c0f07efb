// Package cache implements the second-level (shared, cross-session) cache
// layer described by the mapping runtime: a small Cache interface plus a
// stack of decorators that compose eviction, memory-pressure, scheduling,
// stampede-protection, and serialization behavior around an in-process or
// remote store, each grounded on one of the domain-stack caching libraries.
package cache

import (
	"fmt"
	"strings"
)

// Cache is the shape every decorator and store implements. Implementations
// need not be safe for concurrent use on their own; wrap with Synchronized
// when the backing store doesn't already serialize access.
type Cache interface {
	// ID identifies the cache (typically the owning namespace).
	ID() string
	Get(key Key) (value any, ok bool)
	Put(key Key, value any)
	Remove(key Key)
	Clear()
	Size() int
}

// Key is an opaque, comparable cache key. Two keys compare equal exactly
// when their underlying strings compare equal, which is what gives the
// runtime its "equal keys return equal results without a round-trip"
// guarantee.
type Key string

// NewKey builds a Key from a statement id and its ordered parameter values,
// mirroring the composite (id, params, bounds) identity a mapped statement's
// cache key is built from. Components are rendered with fmt's %#v verb
// and joined so that distinct component boundaries can't collide (unlike a
// naive fmt.Sprint concatenation, "ab"+"c" and "a"+"bc" hash differently).
func NewKey(statementID string, components ...any) Key {
	var b strings.Builder
	b.WriteString(statementID)
	for _, c := range components {
		b.WriteByte(0x1f) // unit separator, won't appear in formatted values
		fmt.Fprintf(&b, "%#v", c)
	}
	return Key(b.String())
}
