package executor

import (
	"context"
	"database/sql"
	"reflect"
	"sync"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/cache"
	"github.com/gobatis/gobatis/statement"
)

// CachingExecutor decorates another Executor with the second-level cache —
// spec.md §4.11's namespace caches, staged per transaction via
// cache.Transactional so a read-your-own-write inside an uncommitted
// transaction still sees the delegate's pre-write contents until Commit
// actually applies the overlay. All writes through the decorator propagate
// to the delegate first; this layer only ever touches the cache staging
// around them, never substitutes for running the statement.
type CachingExecutor struct {
	delegate Executor
	cfg      *binding.Configuration

	mu    sync.Mutex
	stage map[string]*cache.Transactional // namespace -> this transaction's overlay
}

// NewCaching wraps delegate with second-level cache staging.
func NewCaching(cfg *binding.Configuration, delegate Executor) *CachingExecutor {
	return &CachingExecutor{
		delegate: delegate,
		cfg:      cfg,
		stage:    make(map[string]*cache.Transactional),
	}
}

// stagingFor returns the namespace's staged cache, or (nil, false) if the
// namespace declared no second-level cache.
func (e *CachingExecutor) stagingFor(namespace string) (*cache.Transactional, bool) {
	underlying := e.cfg.Cache(namespace)
	if underlying == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.stage[namespace]
	if !ok {
		t = cache.NewTransactional(underlying)
		e.stage[namespace] = t
	}
	return t, true
}

func (e *CachingExecutor) Query(ctx context.Context, ms *statement.MappedStatement, param any, target reflect.Type) ([]any, error) {
	if ms.Command != statement.Select || !ms.UseCache {
		return e.delegate.Query(ctx, ms, param, target)
	}

	staged, ok := e.stagingFor(ms.Namespace)
	if !ok {
		return e.delegate.Query(ctx, ms, param, target)
	}

	key := cache.NewKey(ms.ID, param)
	if cached, hit := staged.Get(key); hit {
		return cached.([]any), nil
	}

	results, err := e.delegate.Query(ctx, ms, param, target)
	if err != nil {
		return nil, err
	}
	staged.Put(key, results)
	return results, nil
}

// Update runs ms through the delegate first; a statement flagged FlushCache
// (the common case for inserts/updates/deletes) also clears its namespace's
// staged cache, so a subsequent cached read inside the same transaction
// recomputes rather than serving stale rows once the overlay commits.
func (e *CachingExecutor) Update(ctx context.Context, ms *statement.MappedStatement, param any) (sql.Result, error) {
	result, err := e.delegate.Update(ctx, ms, param)
	if err != nil {
		return nil, err
	}
	if ms.FlushCache {
		if staged, ok := e.stagingFor(ms.Namespace); ok {
			staged.Clear()
		}
	}
	return result, nil
}

func (e *CachingExecutor) FlushStatements(ctx context.Context) error {
	return e.delegate.FlushStatements(ctx)
}

// ClearLocalCache only clears the delegate's first-level cache; the
// second-level staging overlay this decorator owns is untouched, matching
// the distinct lifetimes spec.md §4.8/§4.11 give the two cache levels.
func (e *CachingExecutor) ClearLocalCache() {
	e.delegate.ClearLocalCache()
}

func (e *CachingExecutor) Commit(ctx context.Context) error {
	if err := e.delegate.Commit(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, staged := range e.stage {
		staged.Commit()
	}
	e.stage = make(map[string]*cache.Transactional)
	return nil
}

func (e *CachingExecutor) Rollback(ctx context.Context) error {
	if err := e.delegate.Rollback(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, staged := range e.stage {
		staged.Rollback()
	}
	e.stage = make(map[string]*cache.Transactional)
	return nil
}

// Close rolls back any staged cache entries that were never committed
// before closing the delegate — the same discard-on-teardown rule Rollback
// applies, for a session that closes without an explicit Commit/Rollback.
func (e *CachingExecutor) Close() error {
	e.mu.Lock()
	for _, staged := range e.stage {
		staged.Rollback()
	}
	e.stage = make(map[string]*cache.Transactional)
	e.mu.Unlock()
	return e.delegate.Close()
}
