package statementhandler

import (
	"context"
	"database/sql"

	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/typehandler"
)

// simpleHandler runs static SQL with no "#{...}" bindings directly against
// the queryer, with no prepare step — spec.md §4.9's Simple variant.
type simpleHandler struct {
	handlers *typehandler.Registry
}

func (h *simpleHandler) render(ms *statement.MappedStatement, param any) (statement.BoundSQL, error) {
	bound, args, err := bindArgs(ms, param, h.handlers)
	if err != nil {
		return statement.BoundSQL{}, err
	}
	if len(args) > 0 {
		return statement.BoundSQL{}, xerrors.Build("statementhandler: statement %q is statementType SIMPLE but declares %d parameter binding(s)", ms.ID, len(args))
	}
	return bound, nil
}

func (h *simpleHandler) QueryContext(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, param any) (*sql.Rows, error) {
	bound, err := h.render(ms, param)
	if err != nil {
		return nil, err
	}
	rows, err := queryer.QueryContext(ctx, bound.SQL)
	if err != nil {
		return nil, xerrors.Execution(err, ms.ID, "query", bound.SQL)
	}
	return rows, nil
}

func (h *simpleHandler) ExecContext(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, runner statement.KeyRunner, param any) (sql.Result, error) {
	bound, err := h.render(ms, param)
	if err != nil {
		return nil, err
	}
	return runKeyGenerator(ctx, ms, queryer, runner, param, func() (sql.Result, error) {
		result, err := queryer.ExecContext(ctx, bound.SQL)
		if err != nil {
			return nil, xerrors.Execution(err, ms.ID, "exec", bound.SQL)
		}
		return result, nil
	})
}

func (h *simpleHandler) Close() error { return nil }
