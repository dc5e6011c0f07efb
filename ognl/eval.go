package ognl

import (
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/reflection"
)

// Evaluate parses and runs expression against ctx, returning its raw
// result (a string, a float64, a bool, nil, or whatever property value was
// reached).
func Evaluate(expression string, ctx *Context) (any, error) {
	tree, err := parse(expression)
	if err != nil {
		return nil, err
	}
	return eval(tree, ctx)
}

// Test evaluates expression and applies the truthiness rule: nil is false,
// bool is itself, a nonzero number is true, a nonempty string is true
// except for the literal "0" and "false" (spec.md §4.3).
func Test(expression string, ctx *Context) (bool, error) {
	v, err := Evaluate(expression, ctx)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy applies the dynamic-SQL truthiness rule to an already-evaluated
// value.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if t == "" || t == "0" || strings.EqualFold(t, "false") {
			return false
		}
		return true
	default:
		if f, err := cast.ToFloat64E(v); err == nil {
			return f != 0
		}
		rv := reflect.ValueOf(v)
		return !reflection.IsEmptyValue(rv)
	}
}

func eval(node expr, ctx *Context) (any, error) {
	switch n := node.(type) {
	case literal:
		return n.value, nil
	case pathExpr:
		return evalPath(n, ctx)
	case unaryExpr:
		return evalUnary(n, ctx)
	case binaryExpr:
		return evalBinary(n, ctx)
	default:
		return nil, xerrors.Build("ognl: unhandled expression node %T", node)
	}
}

func evalUnary(n unaryExpr, ctx *Context) (any, error) {
	v, err := eval(n.expr, ctx)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case tokNot:
		return !Truthy(v), nil
	case tokMinus:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, xerrors.Build("ognl: cannot negate non-numeric value %v: %v", v, err)
		}
		return -f, nil
	default:
		return nil, xerrors.Build("ognl: unknown unary operator")
	}
}

func evalBinary(n binaryExpr, ctx *Context) (any, error) {
	switch n.op {
	case tokAnd:
		l, err := eval(n.left, ctx)
		if err != nil {
			return nil, err
		}
		if !Truthy(l) {
			return false, nil
		}
		r, err := eval(n.right, ctx)
		if err != nil {
			return nil, err
		}
		return Truthy(r), nil
	case tokOr:
		l, err := eval(n.left, ctx)
		if err != nil {
			return nil, err
		}
		if Truthy(l) {
			return true, nil
		}
		r, err := eval(n.right, ctx)
		if err != nil {
			return nil, err
		}
		return Truthy(r), nil
	}

	l, err := eval(n.left, ctx)
	if err != nil {
		return nil, err
	}
	r, err := eval(n.right, ctx)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokEq:
		return equal(l, r), nil
	case tokNe:
		return !equal(l, r), nil
	case tokLt, tokLe, tokGt, tokGe:
		return compare(l, r, n.op)
	case tokPlus, tokMinus, tokStar, tokSlash:
		return arithmetic(l, r, n.op)
	default:
		return nil, xerrors.Build("ognl: unknown binary operator")
	}
}

func equal(l, r any) bool {
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			return ls == rs
		}
	}
	lf, lerr := cast.ToFloat64E(l)
	rf, rerr := cast.ToFloat64E(r)
	if lerr == nil && rerr == nil {
		return lf == rf
	}
	return reflect.DeepEqual(l, r)
}

func compare(l, r any, op tokenKind) (bool, error) {
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			c := strings.Compare(ls, rs)
			return compareResult(c, op), nil
		}
	}
	lf, err := cast.ToFloat64E(l)
	if err != nil {
		return false, xerrors.Build("ognl: cannot compare non-numeric value %v: %v", l, err)
	}
	rf, err := cast.ToFloat64E(r)
	if err != nil {
		return false, xerrors.Build("ognl: cannot compare non-numeric value %v: %v", r, err)
	}
	switch {
	case lf < rf:
		return compareResult(-1, op), nil
	case lf > rf:
		return compareResult(1, op), nil
	default:
		return compareResult(0, op), nil
	}
}

func compareResult(c int, op tokenKind) bool {
	switch op {
	case tokLt:
		return c < 0
	case tokLe:
		return c <= 0
	case tokGt:
		return c > 0
	case tokGe:
		return c >= 0
	default:
		return false
	}
}

func arithmetic(l, r any, op tokenKind) (any, error) {
	lf, err := cast.ToFloat64E(l)
	if err != nil {
		return nil, xerrors.Build("ognl: cannot apply arithmetic to non-numeric value %v: %v", l, err)
	}
	rf, err := cast.ToFloat64E(r)
	if err != nil {
		return nil, xerrors.Build("ognl: cannot apply arithmetic to non-numeric value %v: %v", r, err)
	}
	switch op {
	case tokPlus:
		return lf + rf, nil
	case tokMinus:
		return lf - rf, nil
	case tokStar:
		return lf * rf, nil
	case tokSlash:
		if rf == 0 {
			return nil, xerrors.Build("ognl: division by zero")
		}
		return lf / rf, nil
	default:
		return nil, xerrors.Build("ognl: unknown arithmetic operator")
	}
}

func evalPath(p pathExpr, ctx *Context) (any, error) {
	base, ok := ctx.Lookup(p.root)
	if !ok {
		var err error
		base, ok, err = readProperty(ctx.Root, p.root)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil // null-safe read: absent resolves to nil, renders falsy
		}
	}

	cur := base
	for _, seg := range p.segments {
		if cur == nil {
			return nil, nil
		}
		if seg.index != nil {
			idx, err := eval(seg.index, ctx)
			if err != nil {
				return nil, err
			}
			next, ok, err := readIndex(cur, idx)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			cur = next
			continue
		}
		next, ok, err := readProperty(cur, seg.name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}

// readProperty reads a named property off base: a map key, or a struct
// field resolved case/underscore-insensitively via the reflection package.
func readProperty(base any, name string) (any, bool, error) {
	if base == nil {
		return nil, false, nil
	}
	rv := reflect.ValueOf(base)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		return readMapKey(rv, name)
	case reflect.Struct:
		meta, err := reflection.Of(rv.Type())
		if err != nil {
			return nil, false, err
		}
		_, idx, ok := meta.FieldByColumn(name)
		if !ok {
			return nil, false, nil
		}
		return meta.FieldValue(rv, idx).Interface(), true, nil
	default:
		return nil, false, nil
	}
}

func readMapKey(rv reflect.Value, name string) (any, bool, error) {
	keyType := rv.Type().Key()
	if keyType.Kind() != reflect.String {
		return nil, false, nil
	}
	key := reflect.ValueOf(name).Convert(keyType)
	v := rv.MapIndex(key)
	if !v.IsValid() {
		return nil, false, nil
	}
	return v.Interface(), true, nil
}

// readIndex reads a numeric index off a slice/array, or a key off a map.
func readIndex(base any, idx any) (any, bool, error) {
	rv := reflect.ValueOf(base)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		i, err := cast.ToIntE(idx)
		if err != nil {
			return nil, false, xerrors.Build("ognl: non-numeric index %v: %v", idx, err)
		}
		if i < 0 || i >= rv.Len() {
			return nil, false, nil
		}
		return rv.Index(i).Interface(), true, nil
	case reflect.Map:
		key := reflect.ValueOf(idx)
		if key.Type() != rv.Type().Key() && key.Type().ConvertibleTo(rv.Type().Key()) {
			key = key.Convert(rv.Type().Key())
		}
		v := rv.MapIndex(key)
		if !v.IsValid() {
			return nil, false, nil
		}
		return v.Interface(), true, nil
	default:
		return nil, false, nil
	}
}
