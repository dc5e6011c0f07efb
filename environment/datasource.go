// Package environment builds the runtime database handle a Configuration
// binds a namespace to: data source construction across vendor drivers and
// the transaction factory that wraps it. Grounded on the per-vendor
// connect-and-tune idiom of forbearing/gst/database/sqlite (DSN assembly,
// then explicit pool tuning), generalized across the vendor drivers the
// pack wires: github.com/go-sql-driver/mysql, github.com/glebarez/go-sqlite,
// github.com/microsoft/go-mssqldb.
package environment

import (
	"database/sql"
	"time"

	_ "github.com/glebarez/go-sqlite"    // registers driver "sqlite"
	_ "github.com/go-sql-driver/mysql"   // registers driver "mysql"
	_ "github.com/microsoft/go-mssqldb"  // registers driver "sqlserver"

	"github.com/gobatis/gobatis/internal/xerrors"
)

// DataSourceConfig describes one named <dataSource> entry: the driver to
// open, its DSN, and the connection-pool tuning forbearing/gst applies
// right after opening.
type DataSourceConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// OpenDataSource opens and pool-tunes a *sql.DB for cfg, validating the
// connection with a ping before returning it.
func OpenDataSource(cfg DataSourceConfig) (*sql.DB, error) {
	if _, ok := supportedDrivers[cfg.Driver]; !ok {
		return nil, xerrors.Build("environment: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, xerrors.Build("environment: opening %s data source: %v", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if cfg.Driver == "sqlite" {
		// SQLite tolerates little write concurrency; a single connection
		// avoids "database table is locked" errors under concurrent writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, xerrors.Build("environment: pinging %s data source: %v", cfg.Driver, err)
	}
	return db, nil
}

var supportedDrivers = map[string]string{
	"mysql":     "github.com/go-sql-driver/mysql",
	"sqlite":    "github.com/glebarez/go-sqlite",
	"sqlserver": "github.com/microsoft/go-mssqldb",
}
