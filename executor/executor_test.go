package executor_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/executor"
	"github.com/gobatis/gobatis/keygen"
)

type Author struct {
	ID   int64
	Name string
}

func testEnv() *environment.Environment {
	return &environment.Environment{ID: "test"}
}

func authorConfig(t *testing.T, settings *binding.Settings, withCache bool) *binding.Configuration {
	t.Helper()
	b := binding.NewBuilder(testEnv())
	if settings != nil {
		b.UseSettings(*settings)
	}
	b.RegisterAlias("Author", reflect.TypeOf(Author{}))

	doc := &binding.MapperDocument{
		Namespace: "AuthorMapper",
		ResultMaps: []binding.ResultMapDocument{
			{
				ID:   "authorMap",
				Type: "Author",
				IDs:  []binding.ResultDocument{{Property: "ID", Column: "id"}},
				Result: []binding.ResultDocument{
					{Property: "Name", Column: "name"},
				},
			},
		},
		Statements: []binding.StatementDocument{
			{
				ID:        "selectAuthor",
				Kind:      "select",
				ResultMap: "authorMap",
				Body:      []binding.NodeSpec{{Text: "SELECT id, name FROM authors WHERE id = #{ID}"}},
			},
			{
				ID:   "insertAuthor",
				Kind: "insert",
				Body: []binding.NodeSpec{{Text: "INSERT INTO authors (name) VALUES (#{Name})"}},
			},
		},
	}
	if withCache {
		doc.Cache = &binding.CacheDocument{Type: "LRU", Size: 16}
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

func newTx(t *testing.T) (environment.Transaction, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	tx, err := environment.JDBCTransactionFactory{}.NewTransaction(context.Background(), db, nil)
	require.NoError(t, err)
	return tx, mock, func() { db.Close() }
}

func TestSimpleExecutorFirstLevelCacheHitsWithinSession(t *testing.T) {
	cfg := authorConfig(t, nil, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))

	e := executor.NewSimple(cfg, tx)
	ms, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	out1, err := e.Query(context.Background(), ms, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	require.Len(t, out1, 1)

	// Second call with an equal parameter must be served from the
	// first-level cache: only one Prepare/Query pair is expected above.
	out2, err := e.Query(context.Background(), ms, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	assert.Same(t, out1[0], out2[0])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionLocalCacheScopeStatementDoesNotCacheAcrossCalls(t *testing.T) {
	settings := binding.DefaultSettings()
	settings.LocalCacheScope = binding.LocalCacheStatement
	cfg := authorConfig(t, &settings, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	prepared := mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?")
	prepared.ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	prepared.ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))

	e := executor.NewReuse(cfg, tx)
	ms, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	_, err = e.Query(context.Background(), ms, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	_, err = e.Query(context.Background(), ms, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReuseExecutorReusesHandlerAcrossCalls(t *testing.T) {
	cfg := authorConfig(t, nil, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	prepared := mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?")
	prepared.ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	prepared.ExpectQuery().WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "Bea"))

	e := executor.NewReuse(cfg, tx)
	ms, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	_, err = e.Query(context.Background(), ms, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	_, err = e.Query(context.Background(), ms, &Author{ID: 2}, reflect.TypeOf(Author{}))
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSimpleExecutorPreparesSeparatelyPerCall(t *testing.T) {
	cfg := authorConfig(t, nil, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "Bea"))

	e := executor.NewSimple(cfg, tx)
	ms, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	_, err = e.Query(context.Background(), ms, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	_, err = e.Query(context.Background(), ms, &Author{ID: 2}, reflect.TypeOf(Author{}))
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInvalidatesFirstLevelCache(t *testing.T) {
	cfg := authorConfig(t, nil, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	selectPrepared := mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?")
	selectPrepared.ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectPrepare("INSERT INTO authors").
		ExpectExec().WithArgs("Bea").
		WillReturnResult(sqlmock.NewResult(2, 1))
	selectPrepared.ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada (renamed)"))

	e := executor.NewReuse(cfg, tx)
	selectMS, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)
	insertMS, err := cfg.MappedStatement("AuthorMapper.insertAuthor")
	require.NoError(t, err)

	_, err = e.Query(context.Background(), selectMS, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)

	_, err = e.Update(context.Background(), insertMS, &Author{Name: "Bea"})
	require.NoError(t, err)

	out, err := e.Query(context.Background(), selectMS, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	assert.Equal(t, "Ada (renamed)", out[0].(*Author).Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreparedExecUsesIdentityKeyGenerator(t *testing.T) {
	cfg := authorConfig(t, nil, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	mock.ExpectPrepare("INSERT INTO authors").
		ExpectExec().WithArgs("Cleo").
		WillReturnResult(sqlmock.NewResult(9, 1))

	insertMS, err := cfg.MappedStatement("AuthorMapper.insertAuthor")
	require.NoError(t, err)
	insertMS.KeyProperty = []string{"ID"}
	insertMS.KeyGenerator = keygen.Identity{}

	e := executor.NewSimple(cfg, tx)
	author := &Author{Name: "Cleo"}
	_, err = e.Update(context.Background(), insertMS, author)
	require.NoError(t, err)
	assert.Equal(t, int64(9), author.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchExecutorQueuesThenFlushesOnExplicitFlush(t *testing.T) {
	cfg := authorConfig(t, nil, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	prepared := mock.ExpectPrepare("INSERT INTO authors")
	prepared.ExpectExec().WithArgs("Ada").WillReturnResult(sqlmock.NewResult(1, 1))
	prepared.ExpectExec().WithArgs("Bea").WillReturnResult(sqlmock.NewResult(2, 1))

	insertMS, err := cfg.MappedStatement("AuthorMapper.insertAuthor")
	require.NoError(t, err)

	e := executor.NewBatch(cfg, tx).(interface {
		executor.Executor
		Flush(ctx context.Context) ([]executor.BatchResult, error)
	})

	placeholder, err := e.Update(context.Background(), insertMS, &Author{Name: "Ada"})
	require.NoError(t, err)
	_, rerr := placeholder.RowsAffected()
	assert.Error(t, rerr, "a queued write's result is not available until flush")

	_, err = e.Update(context.Background(), insertMS, &Author{Name: "Bea"})
	require.NoError(t, err)

	results, err := e.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "AuthorMapper.insertAuthor", r.StatementID)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchExecutorFlushesBeforeARead(t *testing.T) {
	cfg := authorConfig(t, nil, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	mock.ExpectPrepare("INSERT INTO authors").
		ExpectExec().WithArgs("Ada").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))

	insertMS, err := cfg.MappedStatement("AuthorMapper.insertAuthor")
	require.NoError(t, err)
	selectMS, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	e := executor.NewBatch(cfg, tx)
	_, err = e.Update(context.Background(), insertMS, &Author{Name: "Ada"})
	require.NoError(t, err)

	out, err := e.Query(context.Background(), selectMS, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	require.Len(t, out, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchExecutorRollbackDiscardsQueue(t *testing.T) {
	cfg := authorConfig(t, nil, false)
	tx, mock, closeDB := newTx(t)
	defer closeDB()
	mock.ExpectRollback()

	insertMS, err := cfg.MappedStatement("AuthorMapper.insertAuthor")
	require.NoError(t, err)

	e := executor.NewBatch(cfg, tx)
	_, err = e.Update(context.Background(), insertMS, &Author{Name: "Ada"})
	require.NoError(t, err)

	// Nothing was ever sent, so rollback must not touch the database at
	// all beyond the rollback itself — no Exec expectation is set above.
	require.NoError(t, e.Rollback(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingExecutorStagesSecondLevelCacheUntilCommit(t *testing.T) {
	cfg := authorConfig(t, nil, true)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectCommit()

	selectMS, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	delegate := executor.NewReuse(cfg, tx)
	e := executor.NewCaching(cfg, delegate)

	out, err := e.Query(context.Background(), selectMS, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	require.Len(t, out, 1)

	require.NoError(t, e.Commit(context.Background()))

	namespaceCache := cfg.Cache("AuthorMapper")
	require.NotNil(t, namespaceCache)
	assert.Equal(t, 1, namespaceCache.Size())

	// A second session reading the same key now hits the committed
	// second-level cache with no further DB round trip.
	tx2, mock2, closeDB2 := newTx(t)
	defer closeDB2()
	delegate2 := executor.NewReuse(cfg, tx2)
	e2 := executor.NewCaching(cfg, delegate2)
	out2, err := e2.Query(context.Background(), selectMS, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	assert.Equal(t, "Ada", out2[0].(*Author).Name)
	require.NoError(t, mock2.ExpectationsWereMet())
}

func TestCachingExecutorRollbackDiscardsStagedEntries(t *testing.T) {
	cfg := authorConfig(t, nil, true)
	tx, mock, closeDB := newTx(t)
	defer closeDB()

	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectRollback()

	selectMS, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	delegate := executor.NewReuse(cfg, tx)
	e := executor.NewCaching(cfg, delegate)

	_, err = e.Query(context.Background(), selectMS, &Author{ID: 1}, reflect.TypeOf(Author{}))
	require.NoError(t, err)

	require.NoError(t, e.Rollback(context.Background()))

	namespaceCache := cfg.Cache("AuthorMapper")
	require.NotNil(t, namespaceCache)
	assert.Equal(t, 0, namespaceCache.Size())
}
