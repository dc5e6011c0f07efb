package ognl

import "strings"

// Context is the object navigated by an expression: the current parameter
// value plus the case-insensitive bindings map seeded with synthetic names
// like "_parameter" and "_databaseId" (spec.md §4.5's Dynamic Context).
type Context struct {
	Root     any
	bindings map[string]any
	order    map[string]string // lowercased key -> original key, for case-insensitive lookup
}

// NewContext wraps root as the base of path navigation with an empty
// bindings map.
func NewContext(root any) *Context {
	return &Context{
		Root:     root,
		bindings: make(map[string]any),
		order:    make(map[string]string),
	}
}

// Bind stores name (case-insensitively) for later lookup by path
// expressions, dynamic-node iteration variables, or <bind> nodes.
func (c *Context) Bind(name string, value any) {
	lower := strings.ToLower(name)
	c.order[lower] = name
	c.bindings[lower] = value
}

// Lookup resolves name against the bindings map case-insensitively.
func (c *Context) Lookup(name string) (any, bool) {
	v, ok := c.bindings[strings.ToLower(name)]
	return v, ok
}

// EachBinding calls fn once per bound name (using its original, not
// lowercased, spelling) and value, in no particular order.
func (c *Context) EachBinding(fn func(name string, value any)) {
	for lower, value := range c.bindings {
		fn(c.order[lower], value)
	}
}

// Clone returns a Context sharing Root but with an independent copy of the
// bindings map, used by foreach iterations so that per-item bindings don't
// leak between siblings.
func (c *Context) Clone() *Context {
	cp := &Context{
		Root:     c.Root,
		bindings: make(map[string]any, len(c.bindings)),
		order:    make(map[string]string, len(c.order)),
	}
	for k, v := range c.bindings {
		cp.bindings[k] = v
	}
	for k, v := range c.order {
		cp.order[k] = v
	}
	return cp
}
