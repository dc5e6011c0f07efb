package typehandler

import (
	"reflect"
	"time"

	"github.com/spf13/cast"

	"github.com/gobatis/gobatis/internal/xerrors"
)

// passthroughHandler binds and reads a value with no conversion beyond
// what database/sql's driver already performs for the given Go kind.
type passthroughHandler struct{}

func (passthroughHandler) SetParameter(v any) (any, error) { return v, nil }
func (passthroughHandler) GetResult(dest any) (any, error) { return dest, nil }

// castHandler converts results through spf13/cast, for goTypes the driver
// may return as a related but distinct Go type (e.g. an int column scanned
// into an int64, coerced down to int32).
type castHandler struct {
	convert func(any) (any, error)
}

func (h castHandler) SetParameter(v any) (any, error) { return v, nil }
func (h castHandler) GetResult(dest any) (any, error)  { return h.convert(dest) }

func registerBuiltins(r *Registry) {
	r.Register(reflect.TypeOf(""), "", passthroughHandler{})
	r.Register(reflect.TypeOf(false), "", passthroughHandler{})
	r.Register(reflect.TypeOf([]byte(nil)), "", passthroughHandler{})
	r.Register(reflect.TypeOf(time.Time{}), "", passthroughHandler{})

	r.Register(reflect.TypeOf(int(0)), "", castHandler{func(v any) (any, error) { return cast.ToIntE(v) }})
	r.Register(reflect.TypeOf(int8(0)), "", castHandler{func(v any) (any, error) { return cast.ToInt8E(v) }})
	r.Register(reflect.TypeOf(int16(0)), "", castHandler{func(v any) (any, error) { return cast.ToInt16E(v) }})
	r.Register(reflect.TypeOf(int32(0)), "", castHandler{func(v any) (any, error) { return cast.ToInt32E(v) }})
	r.Register(reflect.TypeOf(int64(0)), "", castHandler{func(v any) (any, error) { return cast.ToInt64E(v) }})
	r.Register(reflect.TypeOf(uint(0)), "", castHandler{func(v any) (any, error) { return cast.ToUintE(v) }})
	r.Register(reflect.TypeOf(uint8(0)), "", castHandler{func(v any) (any, error) { return cast.ToUint8E(v) }})
	r.Register(reflect.TypeOf(uint16(0)), "", castHandler{func(v any) (any, error) { return cast.ToUint16E(v) }})
	r.Register(reflect.TypeOf(uint32(0)), "", castHandler{func(v any) (any, error) { return cast.ToUint32E(v) }})
	r.Register(reflect.TypeOf(uint64(0)), "", castHandler{func(v any) (any, error) { return cast.ToUint64E(v) }})
	r.Register(reflect.TypeOf(float32(0)), "", castHandler{func(v any) (any, error) { return cast.ToFloat32E(v) }})
	r.Register(reflect.TypeOf(float64(0)), "", castHandler{func(v any) (any, error) { return cast.ToFloat64E(v) }})
}

// namedTypeHandler is the enum synthesis described by spec.md §4.2: it
// stores/reads a named type's underlying kind while restoring the named
// type on read via reflect.New(goType).Convert.
type namedTypeHandler struct {
	goType reflect.Type
}

func (h namedTypeHandler) SetParameter(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil
	}
	return rv.Convert(underlyingOrSelf(h.goType)).Interface(), nil
}

func (h namedTypeHandler) GetResult(dest any) (any, error) {
	rv := reflect.ValueOf(dest)
	if !rv.IsValid() {
		return reflect.Zero(h.goType).Interface(), nil
	}
	if !rv.Type().ConvertibleTo(h.goType) {
		return nil, xerrors.TypeConversion("typehandler: cannot convert %s to %s", rv.Type(), h.goType)
	}
	return rv.Convert(h.goType).Interface(), nil
}

func underlyingOrSelf(t reflect.Type) reflect.Type {
	if proto, ok := kindPrototype[t.Kind()]; ok {
		return proto
	}
	return t
}

// unknownTypeHandler defers resolution to the registry at call time, using
// the runtime type of whatever value it's handed.
type unknownTypeHandler struct {
	registry *Registry
}

func (h unknownTypeHandler) SetParameter(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	handler, err := h.registry.Lookup(reflect.TypeOf(v), "")
	if err != nil {
		return v, nil // no opinion registered, let the driver handle the raw value
	}
	return handler.SetParameter(v)
}

func (h unknownTypeHandler) GetResult(dest any) (any, error) {
	if dest == nil {
		return nil, nil
	}
	handler, err := h.registry.Lookup(reflect.TypeOf(dest), "")
	if err != nil {
		return dest, nil
	}
	return handler.GetResult(dest)
}
