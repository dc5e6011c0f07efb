package resultset

import (
	"context"
	"sync"
)

// Deferred is a lazily-resolved nested association or collection: the
// Open Question #2 redesign (spec.md §9) substitutes for an object-proxy
// interception mechanism Go has no facility for. The target struct field
// holds a *Deferred[V] instead of a V; callers invoke Load once they
// actually need the value, and every subsequent Load returns the same
// cached result without re-querying.
type Deferred[V any] struct {
	once    sync.Once
	value   V
	err     error
	resolved bool
	load    func(ctx context.Context) (V, error)
}

// NewDeferred wraps load so it runs at most once, the first time Load is
// called.
func NewDeferred[V any](load func(ctx context.Context) (V, error)) *Deferred[V] {
	return &Deferred[V]{load: load}
}

// Load runs the wrapped loader on first call and returns its cached result
// on every subsequent call, regardless of which context is passed then.
func (d *Deferred[V]) Load(ctx context.Context) (V, error) {
	d.once.Do(func() {
		d.value, d.err = d.load(ctx)
		d.resolved = true
	})
	return d.value, d.err
}

// Resolved reports whether Load has already run.
func (d *Deferred[V]) Resolved() bool { return d.resolved }
