package dynamicsql

import (
	"reflect"

	"go.uber.org/zap/buffer"

	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/ognl"
)

// ForeachNode iterates Collection (a property path or binding name,
// evaluated via ognl) and renders Nodes once per element, with Item/Index
// bound fresh for each iteration so positional parameter emission stays
// unambiguous across iterations.
type ForeachNode struct {
	Collection string
	Item       string
	Index      string
	Open       string
	Close      string
	Separator  string
	Nodes      NodeGroup
}

func (n ForeachNode) Render(ctx *ognl.Context, out *buffer.Buffer) error {
	value, err := ognl.Evaluate(n.Collection, ctx)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(value)
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return xerrors.Build("dynamicsql: foreach collection %q is nil", n.Collection)
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return n.renderSlice(rv, ctx, out)
	case reflect.Map:
		return n.renderMap(rv, ctx, out)
	default:
		return xerrors.Build("dynamicsql: foreach collection %q is not a slice, array, or map", n.Collection)
	}
}

func (n ForeachNode) renderSlice(rv reflect.Value, ctx *ognl.Context, out *buffer.Buffer) error {
	length := rv.Len()
	if length == 0 {
		return nil
	}
	if n.Open != "" {
		out.AppendString(n.Open)
	}
	for i := 0; i < length; i++ {
		iter := ctx.Clone()
		if n.Item != "" {
			iter.Bind(n.Item, rv.Index(i).Interface())
		}
		if n.Index != "" {
			iter.Bind(n.Index, i)
		}
		if i > 0 && n.Separator != "" {
			out.AppendString(n.Separator)
		}
		if err := n.Nodes.Render(iter, out); err != nil {
			return err
		}
	}
	if n.Close != "" {
		out.AppendString(n.Close)
	}
	return nil
}

func (n ForeachNode) renderMap(rv reflect.Value, ctx *ognl.Context, out *buffer.Buffer) error {
	keys := rv.MapKeys()
	if len(keys) == 0 {
		return nil
	}
	if n.Open != "" {
		out.AppendString(n.Open)
	}
	for i, key := range keys {
		iter := ctx.Clone()
		if n.Item != "" {
			iter.Bind(n.Item, rv.MapIndex(key).Interface())
		}
		if n.Index != "" {
			iter.Bind(n.Index, key.Interface())
		}
		if i > 0 && n.Separator != "" {
			out.AppendString(n.Separator)
		}
		if err := n.Nodes.Render(iter, out); err != nil {
			return err
		}
	}
	if n.Close != "" {
		out.AppendString(n.Close)
	}
	return nil
}
