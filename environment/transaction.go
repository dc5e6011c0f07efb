package environment

import (
	"context"
	"database/sql"

	"github.com/gobatis/gobatis/internal/xerrors"
)

// Queryer is the subset of *sql.Tx / *sql.Conn / *sql.DB that a statement
// handler needs to run a bound statement, independent of which transaction
// mode produced the connection.
type Queryer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Transaction wraps the connection a session issues statements against,
// plus the commit/rollback semantics its TransactionFactory assigns.
type Transaction interface {
	Conn() *sql.Conn
	Queryer() Queryer
	Commit() error
	Rollback() error
	Close() error
}

// TransactionFactory constructs a Transaction over an open *sql.DB. Two
// implementations are provided, mirroring the classic JDBC vs. managed
// transaction manager split:
//
//   - JDBCTransactionFactory: the session owns begin/commit/rollback via
//     database/sql's own transaction support.
//   - ManagedTransactionFactory: an external container manages transaction
//     boundaries; the session only ever closes its connection.
type TransactionFactory interface {
	NewTransaction(ctx context.Context, db *sql.DB, opts *sql.TxOptions) (Transaction, error)
}

// JDBCTransactionFactory begins a *sql.Tx and exposes it as a Transaction.
type JDBCTransactionFactory struct{}

func (JDBCTransactionFactory) NewTransaction(ctx context.Context, db *sql.DB, opts *sql.TxOptions) (Transaction, error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return nil, xerrors.Execution(err, "", "begin transaction", "")
	}
	return &jdbcTransaction{tx: tx}, nil
}

type jdbcTransaction struct {
	tx *sql.Tx
}

func (t *jdbcTransaction) Conn() *sql.Conn    { return nil } // statements run through t.tx directly; see executor
func (t *jdbcTransaction) Queryer() Queryer   { return t.tx }

func (t *jdbcTransaction) Commit() error   { return t.tx.Commit() }
func (t *jdbcTransaction) Rollback() error { return t.tx.Rollback() }
func (t *jdbcTransaction) Close() error    { return nil } // Commit/Rollback already releases the underlying connection

// Tx exposes the underlying *sql.Tx for executors that need to prepare
// statements against it directly.
func (t *jdbcTransaction) Tx() *sql.Tx { return t.tx }

// ManagedTransactionFactory hands out a single pooled connection with no
// commit/rollback of its own: whatever is managing transaction boundaries
// (an external container, a surrounding business transaction) owns them.
type ManagedTransactionFactory struct{}

func (ManagedTransactionFactory) NewTransaction(ctx context.Context, db *sql.DB, _ *sql.TxOptions) (Transaction, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, xerrors.Execution(err, "", "acquire managed connection", "")
	}
	return &managedTransaction{conn: conn}, nil
}

type managedTransaction struct {
	conn *sql.Conn
}

func (t *managedTransaction) Conn() *sql.Conn  { return t.conn }
func (t *managedTransaction) Queryer() Queryer { return t.conn }
func (t *managedTransaction) Commit() error   { return nil } // boundary owned elsewhere
func (t *managedTransaction) Rollback() error { return nil } // boundary owned elsewhere
func (t *managedTransaction) Close() error    { return t.conn.Close() }
