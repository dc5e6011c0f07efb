// Package typehandler converts between Go values and the database/sql
// driver value representation: registering, looking up, and applying
// handlers for scalar, temporal, and domain-stack types. Grounded on
// forbearing/gst's reflect-driven model-binding conventions, generalized
// into the (goType, jdbcType) registry spec.md §4.2 describes.
package typehandler

import (
	"reflect"

	"github.com/gobatis/gobatis/internal/xerrors"
)

// Handler converts a Go value to a driver-bindable value and back.
type Handler interface {
	// SetParameter returns the driver-bindable representation of v.
	SetParameter(v any) (any, error)
	// GetResult converts a value read from the driver (via *sql.Rows.Scan
	// through dest) into the Go-side representation for goType.
	GetResult(dest any) (any, error)
}

// HandlerFunc pairs let simple conversions be registered without a named
// type.
type HandlerFunc struct {
	Set func(v any) (any, error)
	Get func(dest any) (any, error)
}

func (h HandlerFunc) SetParameter(v any) (any, error) { return h.Set(v) }
func (h HandlerFunc) GetResult(dest any) (any, error) { return h.Get(dest) }

// key identifies one registered handler by the pair it was registered
// under. jdbcType == "" means "default handler for this goType".
type key struct {
	goType   reflect.Type
	jdbcType string
}

// Registry is the (goType, jdbcType) -> Handler lookup table described in
// spec.md §4.2. Create one with NewRegistry, which allocates its tables and
// seeds them with the built-in scalar/temporal/domain handlers; the zero
// value has nil tables, so Register and RegisterNamed panic on it.
type Registry struct {
	byPair   map[key]Handler
	byGoType map[reflect.Type][]Handler // every handler registered for a goType, any jdbcType
	byName   map[string]Handler         // explicit typeHandler="..." overrides, by registration name
}

// NewRegistry returns a Registry pre-populated with the built-in handlers.
func NewRegistry() *Registry {
	r := &Registry{
		byPair:   make(map[key]Handler),
		byGoType: make(map[reflect.Type][]Handler),
		byName:   make(map[string]Handler),
	}
	registerBuiltins(r)
	registerDomainHandlers(r)
	return r
}

// RegisterNamed associates handler with name, so a parameter or result
// mapping's explicit typeHandler="name" attribute resolves to it
// regardless of the value's runtime type.
func (r *Registry) RegisterNamed(name string, handler Handler) {
	r.byName[name] = handler
}

// Named resolves a handler registered under name.
func (r *Registry) Named(name string) (Handler, bool) {
	h, ok := r.byName[name]
	return h, ok
}

// Unknown returns a handler that defers type resolution to call time,
// consulting the actual parameter's runtime type (SetParameter) or the
// driver-reported column type (GetResult) instead of a type bound at
// registration — spec.md §4.2's UnknownTypeHandler, for parameters and
// result columns whose Go type isn't known until a value is in hand.
func (r *Registry) Unknown() Handler {
	return unknownTypeHandler{registry: r}
}

// Register associates handler with (goType, jdbcType). jdbcType may be ""
// to register a default for goType.
func (r *Registry) Register(goType reflect.Type, jdbcType string, handler Handler) {
	r.byPair[key{goType, jdbcType}] = handler
	r.byGoType[goType] = append(r.byGoType[goType], handler)
}

// Lookup resolves a handler for (goType, jdbcType) following spec.md
// §4.2's ordered rules: exact pair, then (goType, "") default, then the
// convertible-type chain, then enum synthesis, then the sole-registration
// fallback.
func (r *Registry) Lookup(goType reflect.Type, jdbcType string) (Handler, error) {
	if h, ok := r.byPair[key{goType, jdbcType}]; ok {
		return h, nil
	}
	if h, ok := r.byPair[key{goType, ""}]; ok {
		return h, nil
	}

	if walked := r.lookupConvertible(goType, jdbcType); walked != nil {
		return walked, nil
	}

	if synthesized := r.synthesizeEnum(goType); synthesized != nil {
		return synthesized, nil
	}

	if handlers := r.byGoType[goType]; len(handlers) == 1 {
		return handlers[0], nil
	}

	return nil, xerrors.TypeConversion("typehandler: no handler registered for go type %s, jdbc type %q", goType, jdbcType)
}

// lookupConvertible walks goType's underlying-kind chain: a named type
// over int, string, etc. resolves through its underlying kind's handler
// when nothing more specific is registered.
func (r *Registry) lookupConvertible(goType reflect.Type, jdbcType string) Handler {
	underlying := underlyingKindType(goType)
	if underlying == nil || underlying == goType {
		return nil
	}
	if h, ok := r.byPair[key{underlying, jdbcType}]; ok {
		return h
	}
	if h, ok := r.byPair[key{underlying, ""}]; ok {
		return h
	}
	return nil
}

// synthesizeEnum returns a handler that stores/reads goType's underlying
// kind while preserving the named type on read, for named int/string types
// with no bound handler anywhere.
func (r *Registry) synthesizeEnum(goType reflect.Type) Handler {
	switch goType.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String:
		if goType.Name() == "" {
			return nil // unnamed base type, not an enum-like alias
		}
		return namedTypeHandler{goType: goType}
	default:
		return nil
	}
}

// kindPrototype maps a reflect.Kind to the canonical unnamed Go type sharing
// it, e.g. reflect.Int -> reflect.TypeOf(int(0)). Named types walk to this
// type when no handler is registered for the named type itself.
var kindPrototype = map[reflect.Kind]reflect.Type{
	reflect.Int:     reflect.TypeOf(int(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
	reflect.String:  reflect.TypeOf(""),
	reflect.Bool:    reflect.TypeOf(false),
}

func underlyingKindType(t reflect.Type) reflect.Type {
	proto, ok := kindPrototype[t.Kind()]
	if !ok || proto == t {
		return nil
	}
	return proto
}
