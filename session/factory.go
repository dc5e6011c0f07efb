package session

import (
	"context"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/executor"
)

// Factory opens Sessions against one Environment, picking the executor
// variant and cache decoration from Configuration.Settings — the
// session-manager façade spec.md §5 describes sitting in front of the
// executor stack.
type Factory struct {
	cfg *binding.Configuration
	env *environment.Environment
}

// NewFactory returns a Factory that opens sessions against env using cfg's
// settings and mapped statements.
func NewFactory(cfg *binding.Configuration, env *environment.Environment) *Factory {
	return &Factory{cfg: cfg, env: env}
}

// Open starts a new auto-committed Session using cfg.Settings.DefaultExecutorType
// and, when CacheEnabled, the second-level cache decorator.
func (f *Factory) Open(ctx context.Context) (Session, error) {
	return f.OpenWithExecutorType(ctx, f.cfg.Settings.DefaultExecutorType, true)
}

// OpenWithExecutorType starts a new Session using an explicit executor
// variant and commit mode, bypassing Settings.DefaultExecutorType — for
// callers that need an explicit transaction (autoCommit=false) or a
// specific variant regardless of the configured default.
func (f *Factory) OpenWithExecutorType(ctx context.Context, execType binding.ExecutorType, autoCommit bool) (Session, error) {
	tx, err := f.env.TransactionFactory.NewTransaction(ctx, f.env.DataSource, nil)
	if err != nil {
		return nil, err
	}

	var exec executor.Executor
	switch execType {
	case binding.ExecutorReuse:
		exec = executor.NewReuse(f.cfg, tx)
	case binding.ExecutorBatch:
		exec = executor.NewBatch(f.cfg, tx)
	default:
		exec = executor.NewSimple(f.cfg, tx)
	}

	if f.cfg.Settings.CacheEnabled {
		exec = executor.NewCaching(f.cfg, exec)
	}

	return newSession(f.cfg, exec, autoCommit), nil
}

type sessionContextKey struct{}

// WithSession binds s to ctx, so calls routed through this context reuse it
// instead of each opening its own session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext returns the Session bound by WithSession, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	return s, ok
}

// Run invokes fn with the Session bound to ctx, if one was bound via
// WithSession; otherwise it opens a fresh auto-committed session for the
// single call and closes it afterward — spec.md §5's fallback rule for
// calls made outside an explicit session scope.
func (f *Factory) Run(ctx context.Context, fn func(Session) error) error {
	if s, ok := FromContext(ctx); ok {
		return fn(s)
	}
	s, err := f.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
