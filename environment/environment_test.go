package environment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobatis/gobatis/environment"
)

func TestOpenDataSourceRejectsUnsupportedDriver(t *testing.T) {
	_, err := environment.OpenDataSource(environment.DataSourceConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestOpenDataSourceSQLiteMemory(t *testing.T) {
	db, err := environment.OpenDataSource(environment.DataSourceConfig{
		Driver: "sqlite",
		DSN:    "file::memory:?cache=shared",
	})
	require.NoError(t, err)
	defer db.Close()

	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	tx, err := env.TransactionFactory.NewTransaction(context.Background(), env.DataSource, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func TestManagedTransactionFactoryDoesNotCommitOrRollback(t *testing.T) {
	db, err := environment.OpenDataSource(environment.DataSourceConfig{
		Driver: "sqlite",
		DSN:    "file::memory:?cache=shared",
	})
	require.NoError(t, err)
	defer db.Close()

	factory := environment.ManagedTransactionFactory{}
	tx, err := factory.NewTransaction(context.Background(), db, nil)
	require.NoError(t, err)
	assert.NoError(t, tx.Commit())
	assert.NoError(t, tx.Close())
}
