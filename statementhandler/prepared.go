package statementhandler

import (
	"context"
	"database/sql"

	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/typehandler"
)

// preparedHandler keeps a single *sql.Stmt alive across calls, reusing it
// whenever the rendered SQL and the queryer it was prepared against are
// unchanged; a session holding one instance per statement gets the
// Reuse-executor behavior for free. Grounded on
// preparedStatementHandler.getOrPrepare.
type preparedHandler struct {
	handlers *typehandler.Registry

	stmt    *sql.Stmt
	query   string
	queryer environment.Queryer
}

func (h *preparedHandler) getOrPrepare(ctx context.Context, queryer environment.Queryer, query string) (*sql.Stmt, error) {
	if h.stmt != nil && h.query == query && h.queryer == queryer {
		return h.stmt, nil
	}
	if h.stmt != nil {
		_ = h.stmt.Close()
		h.stmt = nil
	}
	stmt, err := queryer.PrepareContext(ctx, query)
	if err != nil {
		return nil, xerrors.Execution(err, "", "prepare statement", query)
	}
	h.stmt, h.query, h.queryer = stmt, query, queryer
	return stmt, nil
}

func (h *preparedHandler) QueryContext(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, param any) (*sql.Rows, error) {
	bound, args, err := bindArgs(ms, param, h.handlers)
	if err != nil {
		return nil, err
	}
	stmt, err := h.getOrPrepare(ctx, queryer, bound.SQL)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, xerrors.Execution(err, ms.ID, "query", bound.SQL)
	}
	return rows, nil
}

func (h *preparedHandler) ExecContext(ctx context.Context, ms *statement.MappedStatement, queryer environment.Queryer, runner statement.KeyRunner, param any) (sql.Result, error) {
	bound, args, err := bindArgs(ms, param, h.handlers)
	if err != nil {
		return nil, err
	}
	return runKeyGenerator(ctx, ms, queryer, runner, param, func() (sql.Result, error) {
		stmt, err := h.getOrPrepare(ctx, queryer, bound.SQL)
		if err != nil {
			return nil, err
		}
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, xerrors.Execution(err, ms.ID, "exec", bound.SQL)
		}
		return result, nil
	})
}

func (h *preparedHandler) Close() error {
	if h.stmt == nil {
		return nil
	}
	err := h.stmt.Close()
	h.stmt = nil
	return err
}
