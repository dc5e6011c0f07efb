package session

import (
	"context"
	"reflect"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/reflection"
	"github.com/gobatis/gobatis/statement"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Invoke dispatches one call of a binding.MapperDescriptor-bound method
// against s: the table-driven stand-in for the reflective mapper proxy the
// MyBatis family builds with a dynamic language's runtime proxy support.
// Stock reflect cannot synthesize a new type that implements an arbitrary
// caller-supplied interface — reflect.MakeFunc produces a func value, not a
// method set, and reflect.StructOf-built types carry no methods — so
// rather than fake a proxy, a mapper interface's thin implementation calls
// Invoke directly from each of its own methods:
//
//	func (m *authorMapperImpl) SelectAuthor(ctx context.Context, id int64) (*Author, error) {
//	    v, err := session.Invoke(ctx, m.s, m.desc, "SelectAuthor", id)
//	    if err != nil || v == nil {
//	        return nil, err
//	    }
//	    return v.(*Author), nil
//	}
//
// methodName must be a key of desc.Methods (normally the interface method
// BindMapper resolved it from); args are the method's declared parameters
// with any leading context.Context already stripped by the caller.
func Invoke(ctx context.Context, s Session, desc *binding.MapperDescriptor, methodName string, args ...any) (any, error) {
	rm, ok := desc.Methods[methodName]
	if !ok {
		return nil, xerrors.Binding("session: %s has no bound method %q", desc.Interface, methodName)
	}

	param := bindParam(rm, args)

	switch rm.Config.Returns {
	case ReturnVoid:
		_, err := dispatchWrite(ctx, s, rm.Statement, param)
		return nil, err
	case ReturnCursor:
		return nil, xerrors.Binding("session: %s.%s: cursor results are not supported, use ReturnList or ReturnOptional", desc.Interface, methodName)
	case ReturnList:
		return invokeList(ctx, s, rm, param)
	case ReturnMap:
		return invokeMap(ctx, s, rm, param)
	default: // ReturnSingle, ReturnOptional
		return invokeOne(ctx, s, rm, param)
	}
}

// ReturnKind values are re-exported from binding so callers building a
// mapper implementation by hand don't need a second import.
const (
	ReturnSingle   = binding.ReturnSingle
	ReturnList     = binding.ReturnList
	ReturnMap      = binding.ReturnMap
	ReturnCursor   = binding.ReturnCursor
	ReturnOptional = binding.ReturnOptional
	ReturnVoid     = binding.ReturnVoid
)

// bindParam applies spec.md §4.7's single-parameter pass-through rule at
// the one call site that needs it literally: a lone, unannotated argument
// becomes the statement's root parameter value directly, rather than
// ResolvedMethod.BindParameters's map[string]any{"_parameter": value}
// wrapping, which would leave #{Property} resolving against the wrapper
// map instead of the struct it holds. Multi-parameter methods still go
// through BindParameters unchanged.
func bindParam(rm *binding.ResolvedMethod, args []any) any {
	if len(args) == 1 && len(rm.Config.ParamNames) == 0 {
		return args[0]
	}
	values := make([]reflect.Value, len(args))
	for i, a := range args {
		values[i] = reflect.ValueOf(a)
	}
	return rm.BindParameters(values)
}

func dispatchWrite(ctx context.Context, s Session, ms *statement.MappedStatement, param any) (any, error) {
	switch ms.Command {
	case statement.Insert:
		return s.Insert(ctx, ms.ID, param)
	case statement.Delete:
		return s.Delete(ctx, ms.ID, param)
	default:
		return s.Update(ctx, ms.ID, param)
	}
}

// elementType resolves the struct type Query should construct per row from
// a method's declared return type, unwrapping one level of pointer/slice.
func elementType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func outValueType(rm *binding.ResolvedMethod) reflect.Type {
	mt := rm.Method.Type
	if mt.NumOut() == 0 {
		return nil
	}
	if mt.NumOut() == 1 && mt.Out(0) == errorType {
		return nil
	}
	return mt.Out(0)
}

func invokeOne(ctx context.Context, s Session, rm *binding.ResolvedMethod, param any) (any, error) {
	valueType := outValueType(rm)
	var target reflect.Type
	if valueType != nil {
		target = elementType(valueType)
	}
	rows, err := s.Query(ctx, rm.Statement.ID, param, target)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, xerrors.Build("session: statement %q returned %d rows, expected one", rm.Statement.ID, len(rows))
	}
}

func invokeList(ctx context.Context, s Session, rm *binding.ResolvedMethod, param any) (any, error) {
	valueType := outValueType(rm)
	var target reflect.Type
	if valueType != nil {
		target = elementType(valueType)
	}
	rows, err := s.Query(ctx, rm.Statement.ID, param, target)
	if err != nil {
		return nil, err
	}
	if valueType == nil || valueType.Kind() != reflect.Slice {
		return rows, nil
	}
	out := reflect.MakeSlice(valueType, 0, len(rows))
	for _, row := range rows {
		rv := reflect.ValueOf(row)
		if valueType.Elem().Kind() != reflect.Pointer && rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		out = reflect.Append(out, rv)
	}
	return out.Interface(), nil
}

func invokeMap(ctx context.Context, s Session, rm *binding.ResolvedMethod, param any) (any, error) {
	valueType := outValueType(rm)
	if valueType == nil || valueType.Kind() != reflect.Map {
		return nil, xerrors.Binding("session: statement %q is configured ReturnMap but the method's result type is not a map", rm.Statement.ID)
	}
	elemType := elementType(valueType)
	rows, err := s.Query(ctx, rm.Statement.ID, param, elemType)
	if err != nil {
		return nil, err
	}

	meta, err := reflection.Of(elemType)
	if err != nil {
		return nil, err
	}
	_, fieldIdx, ok := meta.FieldByName(rm.Config.MapKey)
	if !ok {
		return nil, xerrors.Binding("session: statement %q: ReturnMap key field %q not found on %s", rm.Statement.ID, rm.Config.MapKey, elemType)
	}

	out := reflect.MakeMapWithSize(valueType, len(rows))
	for _, row := range rows {
		rv := reflect.ValueOf(row)
		key := meta.FieldValue(rv, fieldIdx)
		mv := rv
		if valueType.Elem().Kind() != reflect.Pointer && rv.Kind() == reflect.Pointer {
			mv = rv.Elem()
		}
		out.SetMapIndex(key, mv)
	}
	return out.Interface(), nil
}
