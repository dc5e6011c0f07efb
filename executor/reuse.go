package executor

import (
	"sync"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/statementhandler"
)

// reuseExecutor caches one statementhandler.Handler per statement id for the
// life of the session, instead of building and closing one per call like
// Simple — spec.md §4.8's Reuse variant: a prepared statement survives
// across calls to the same statement id and is closed only when the
// session closes.
type reuseExecutor struct {
	*base

	mu       sync.Mutex
	handlers map[string]statementhandler.Handler
}

// NewReuse returns a Reuse Executor over tx.
func NewReuse(cfg *binding.Configuration, tx environment.Transaction) Executor {
	e := &reuseExecutor{handlers: make(map[string]statementhandler.Handler)}
	e.base = newBase(cfg, tx, e.handlerFor, e.closeHandlers)
	return e
}

func (e *reuseExecutor) handlerFor(ms *statement.MappedStatement) statementhandler.Handler {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.handlers[ms.ID]; ok {
		return h
	}
	h := statementhandler.New(ms, e.cfg.TypeHandlers)
	e.handlers[ms.ID] = h
	return h
}

func (e *reuseExecutor) closeHandlers() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for id, h := range e.handlers {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.handlers, id)
	}
	return firstErr
}
