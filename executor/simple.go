package executor

import (
	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/statementhandler"
)

// simpleExecutor builds a fresh statementhandler.Handler for every call and
// closes it immediately after — spec.md §4.8's Simple variant: each call
// prepares and closes a statement.
type simpleExecutor struct {
	*base
}

// NewSimple returns a Simple Executor over tx.
func NewSimple(cfg *binding.Configuration, tx environment.Transaction) Executor {
	e := &simpleExecutor{}
	e.base = newBase(cfg, tx, e.handlerFor, nil)
	e.base.closeEachUse = true
	return e
}

func (e *simpleExecutor) handlerFor(ms *statement.MappedStatement) statementhandler.Handler {
	return statementhandler.New(ms, e.cfg.TypeHandlers)
}
