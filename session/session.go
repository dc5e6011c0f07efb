// Package session implements the session-facade layer that sits above the
// executor stack: one Session owns one transaction and one executor, and
// is the call surface mapped statements actually run through. Grounded on
// 458dcfc9_zsy619-yyhertz__framework-mybatis-session-sql_session.go.go's
// SqlSession/DefaultSqlSession shape — statement ids dispatched through a
// Configuration lookup, dirty-tracking around autoCommit, Commit/Rollback
// deferring to the executor — adapted to this runtime's executor.Executor
// signatures and to Go generics for typed reads in place of Java's runtime
// casts.
package session

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/executor"
	"github.com/gobatis/gobatis/internal/xerrors"
)

// Session runs mapped statements against one transaction. Per spec.md §5 it
// is not safe for concurrent use: one logical caller (goroutine) at a time,
// opened, used, and closed exactly once.
type Session interface {
	// Query runs statementID's SELECT. target is the element type to
	// construct when the statement declares no result map of its own; the
	// generic SelectOne/SelectList helpers below fill it in from a type
	// parameter so callers rarely need to pass a reflect.Type by hand.
	Query(ctx context.Context, statementID string, param any, target reflect.Type) ([]any, error)
	Insert(ctx context.Context, statementID string, param any) (sql.Result, error)
	Update(ctx context.Context, statementID string, param any) (sql.Result, error)
	Delete(ctx context.Context, statementID string, param any) (sql.Result, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error

	// ClearCache discards the first-level (session) cache.
	ClearCache()
	Configuration() *binding.Configuration
}

type defaultSession struct {
	cfg        *binding.Configuration
	exec       executor.Executor
	autoCommit bool
	dirty      bool
	closed     bool
}

func newSession(cfg *binding.Configuration, exec executor.Executor, autoCommit bool) *defaultSession {
	return &defaultSession{cfg: cfg, exec: exec, autoCommit: autoCommit}
}

func (s *defaultSession) Configuration() *binding.Configuration { return s.cfg }

func (s *defaultSession) Query(ctx context.Context, statementID string, param any, target reflect.Type) ([]any, error) {
	if s.closed {
		return nil, xerrors.Build("session: statement %q run on a closed session", statementID)
	}
	ms, err := s.cfg.MappedStatement(statementID)
	if err != nil {
		return nil, err
	}
	return s.exec.Query(ctx, ms, param, target)
}

func (s *defaultSession) Insert(ctx context.Context, statementID string, param any) (sql.Result, error) {
	return s.write(ctx, statementID, param)
}

func (s *defaultSession) Update(ctx context.Context, statementID string, param any) (sql.Result, error) {
	return s.write(ctx, statementID, param)
}

func (s *defaultSession) Delete(ctx context.Context, statementID string, param any) (sql.Result, error) {
	return s.write(ctx, statementID, param)
}

func (s *defaultSession) write(ctx context.Context, statementID string, param any) (sql.Result, error) {
	if s.closed {
		return nil, xerrors.Build("session: statement %q run on a closed session", statementID)
	}
	ms, err := s.cfg.MappedStatement(statementID)
	if err != nil {
		return nil, err
	}
	s.dirty = true
	result, err := s.exec.Update(ctx, ms, param)
	if err != nil {
		return nil, err
	}
	if s.autoCommit {
		if err := s.Commit(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *defaultSession) Commit(ctx context.Context) error {
	if err := s.exec.FlushStatements(ctx); err != nil {
		return err
	}
	if err := s.exec.Commit(ctx); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *defaultSession) Rollback(ctx context.Context) error {
	if err := s.exec.Rollback(ctx); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Close rolls back any uncommitted work left on a non-autocommit session
// before releasing the underlying transaction, matching
// DefaultSqlSession.Close's "dirty and not autoCommit" rollback-on-close
// rule.
func (s *defaultSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.dirty && !s.autoCommit {
		if err := s.exec.Rollback(context.Background()); err != nil {
			return err
		}
	}
	return s.exec.Close()
}

func (s *defaultSession) ClearCache() { s.exec.ClearLocalCache() }

// SelectList runs statementID and type-asserts each row to *T, using T as
// the fallback element type for statements that declare no result map.
func SelectList[T any](ctx context.Context, s Session, statementID string, param any) ([]*T, error) {
	target := reflect.TypeOf((*T)(nil)).Elem()
	rows, err := s.Query(ctx, statementID, param, target)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		v, ok := row.(*T)
		if !ok {
			return nil, xerrors.Reflection("session: statement %q produced %T, want *%s", statementID, row, target)
		}
		out = append(out, v)
	}
	return out, nil
}

// SelectOne runs statementID and expects at most one row: nil with no
// error if none matched, an error if more than one did — the same
// contract as the teacher's SelectOne built on top of SelectList.
func SelectOne[T any](ctx context.Context, s Session, statementID string, param any) (*T, error) {
	rows, err := SelectList[T](ctx, s, statementID, param)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, xerrors.Build("session: statement %q returned %d rows, expected one", statementID, len(rows))
	}
}
