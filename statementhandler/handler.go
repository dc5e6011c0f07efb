// Package statementhandler executes one mapped statement's bound SQL
// against a live environment.Queryer: resolving each parameter mapping's
// property path to a driver-bindable value, dispatching to the Prepared,
// Simple, or Callable variant spec.md §4.9 describes, and running the
// statement's key generator (if any) around an insert. Grounded on
// 3d89b0bc_go-juicedev-juice__statement_handler.go.go's StatementHandler
// interface and preparedStatementHandler.getOrPrepare reuse idiom.
package statementhandler

import (
	"context"
	"database/sql"

	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/ognl"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/typehandler"
)

// Handler executes statements of one statement.Kind.
type Handler interface {
	QueryContext(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, param any) (*sql.Rows, error)
	// ExecContext runs ms. runner is passed to ms.KeyGenerator's hooks (if
	// any) for statements that need to run a nested select-key statement;
	// it may be nil for statements with no such generator.
	ExecContext(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, runner statement.KeyRunner, param any) (sql.Result, error)
	// Close releases any statement held across calls (Prepared only).
	Close() error
}

// New returns the Handler appropriate for ms.Kind.
func New(ms *statement.MappedStatement, handlers *typehandler.Registry) Handler {
	switch ms.Kind {
	case statement.Simple:
		return &simpleHandler{handlers: handlers}
	case statement.Callable:
		return &callableHandler{handlers: handlers}
	default:
		return &preparedHandler{handlers: handlers}
	}
}

// bindArgs renders ms's SQL source against param and resolves each
// parameter mapping to its driver-bindable value, in positional order.
func bindArgs(ms *statement.MappedStatement, param any, handlers *typehandler.Registry) (statement.BoundSQL, []any, error) {
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
		if m.Mode == statement.ModeOut {
			continue // OUT-only parameters carry no input value
		}
		raw, err := ognl.Evaluate(m.Property, ctx)
		if err != nil {
			return statement.BoundSQL{}, nil, xerrors.Execution(err, ms.ID, "resolve parameter "+m.Property, "")
		}
		handler, err := resolveHandler(handlers, m)
		if err != nil {
			return statement.BoundSQL{}, nil, err
		}
		bindable, err := handler.SetParameter(raw)
		if err != nil {
			return statement.BoundSQL{}, nil, xerrors.TypeConversion("statementhandler: statement %q parameter %q: %v", ms.ID, m.Property, err)
		}
		args = append(args, bindable)
	}
	return bound, args, nil
}

func resolveHandler(handlers *typehandler.Registry, m statement.ParameterMapping) (typehandler.Handler, error) {
	if m.TypeHandler != "" {
		if h, ok := handlers.Named(m.TypeHandler); ok {
			return h, nil
		}
	}
	return handlers.Unknown(), nil
}

// runKeyGenerator executes ms.KeyGenerator's before/after hooks (if one is
// configured) around fn, which performs the actual ExecContext call.
func runKeyGenerator(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, runner statement.KeyRunner, param any, fn func() (sql.Result, error)) (sql.Result, error) {
	if ms.KeyGenerator == nil {
		return fn()
	}
	if err := ms.KeyGenerator.ProcessBefore(ctx, queryer, runner, ms, param); err != nil {
		return nil, err
	}
	result, err := fn()
	if err != nil {
		return nil, err
	}
	if err := ms.KeyGenerator.ProcessAfter(ctx, queryer, runner, ms, param, result); err != nil {
		return nil, err
	}
	return result, nil
}
