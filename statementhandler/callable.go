package statementhandler

import (
	"context"
	"database/sql"
	"reflect"
	"strings"

	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/ognl"
	"github.com/gobatis/gobatis/reflection"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/typehandler"
)

// callableHandler binds IN/OUT/INOUT parameters via sql.Out, for drivers
// that support it — spec.md §4.9's Callable variant. An OUT or INOUT
// parameter's destination is the addressable struct field the property
// path resolves to in param itself, so database/sql writes the driver's
// returned value straight into the caller's struct with no separate
// copy-back step. Cursor OUT parameters (ResultMapID set on an OUT
// mapping) are a driver-specific extension left unimplemented: database/sql
// has no portable representation for a REF CURSOR OUT parameter, so one
// fails fast with a clear error instead of silently dropping it.
type callableHandler struct {
	handlers *typehandler.Registry
}

func (h *callableHandler) bind(ms *statement.MappedStatement, param any) (statement.BoundSQL, []any, error) {
	bound, err := ms.SQLSource.Bind(param)
	if err != nil {
		return statement.BoundSQL{}, nil, xerrors.Execution(err, ms.ID, "render SQL", "")
	}

	ctx := ognl.NewContext(bound.ParameterObject)
	ctx.Bind("_parameter", bound.ParameterObject)
	for name, value := range bound.AdditionalParams {
		ctx.Bind(name, value)
	}

	args := make([]any, 0, len(bound.ParameterMappings))
	for _, m := range bound.ParameterMappings {
		if m.ResultMapID != "" && m.Mode != statement.ModeIn {
			return statement.BoundSQL{}, nil, xerrors.Build("statementhandler: statement %q parameter %q is a cursor OUT parameter, not supported by database/sql", ms.ID, m.Property)
		}

		if m.Mode == statement.ModeOut || m.Mode == statement.ModeInOut {
			field, err := fieldAt(param, m.Property)
			if err != nil {
				return statement.BoundSQL{}, nil, err
			}
			args = append(args, sql.Out{Dest: field.Addr().Interface(), In: m.Mode == statement.ModeInOut})
			continue
		}

		handler, err := resolveHandler(h.handlers, m)
		if err != nil {
			return statement.BoundSQL{}, nil, err
		}
		raw, err := ognl.Evaluate(m.Property, ctx)
		if err != nil {
			return statement.BoundSQL{}, nil, xerrors.Execution(err, ms.ID, "resolve parameter "+m.Property, "")
		}
		bindable, err := handler.SetParameter(raw)
		if err != nil {
			return statement.BoundSQL{}, nil, xerrors.TypeConversion("statementhandler: statement %q parameter %q: %v", ms.ID, m.Property, err)
		}
		args = append(args, bindable)
	}
	return bound, args, nil
}

func (h *callableHandler) QueryContext(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, param any) (*sql.Rows, error) {
	bound, args, err := h.bind(ms, param)
	if err != nil {
		return nil, err
	}
	rows, err := queryer.QueryContext(ctx, bound.SQL, args...)
	if err != nil {
		return nil, xerrors.Execution(err, ms.ID, "query", bound.SQL)
	}
	return rows, nil
}

func (h *callableHandler) ExecContext(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, runner statement.KeyRunner, param any) (sql.Result, error) {
	bound, args, err := h.bind(ms, param)
	if err != nil {
		return nil, err
	}
	return runKeyGenerator(ctx, ms, queryer, runner, param, func() (sql.Result, error) {
		result, err := queryer.ExecContext(ctx, bound.SQL, args...)
		if err != nil {
			return nil, xerrors.Execution(err, ms.ID, "exec", bound.SQL)
		}
		return result, nil
	})
}

func (h *callableHandler) Close() error { return nil }

// fieldAt resolves path against param (a pointer to struct), returning the
// addressable reflect.Value of the named field, allocating intermediate
// nil pointers along the way.
func fieldAt(param any, path string) (reflect.Value, error) {
	rv := reflect.ValueOf(param)
	if rv.Kind() != reflect.Pointer {
		return reflect.Value{}, xerrors.Reflection("statementhandler: OUT/INOUT parameter %q requires a pointer parameter object, got %s", path, rv.Type())
	}
	cur := rv.Elem()

	segments := strings.Split(path, ".")
	for i, seg := range segments {
		for cur.Kind() == reflect.Pointer {
			if cur.IsNil() {
				cur.Set(reflect.New(cur.Type().Elem()))
			}
			cur = cur.Elem()
		}
		meta, err := reflection.Of(cur.Addr().Type())
		if err != nil {
			return reflect.Value{}, err
		}
		_, idx, ok := meta.FieldByName(seg)
		if !ok {
			return reflect.Value{}, xerrors.Reflection("statementhandler: %s has no field %q", cur.Type(), seg)
		}
		field := meta.FieldValue(cur.Addr(), idx)
		if i == len(segments)-1 {
			return field, nil
		}
		cur = field
	}
	return reflect.Value{}, xerrors.Reflection("statementhandler: empty property path for OUT/INOUT parameter")
}
