package environment

import "database/sql"

// Environment is a named (transactionManager, dataSource) pair: the
// configuration document's <environments><environment> element. A
// Configuration selects exactly one as its active environment at build
// time (the document's "default" key, or an explicit override).
type Environment struct {
	ID                 string
	DataSource         *sql.DB
	TransactionFactory TransactionFactory
}

// Close releases the underlying data source. Call once, at factory
// shutdown.
func (e *Environment) Close() error {
	if e.DataSource == nil {
		return nil
	}
	return e.DataSource.Close()
}
