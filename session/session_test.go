package session_test

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/session"
)

type Author struct {
	ID   int64
	Name string
}

func authorConfig(t *testing.T, env *environment.Environment, settings *binding.Settings) *binding.Configuration {
	t.Helper()
	b := binding.NewBuilder(env)
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
				ID:        "selectAuthorsByName",
				Kind:      "select",
				ResultMap: "authorMap",
				Body:      []binding.NodeSpec{{Text: "SELECT id, name FROM authors WHERE name = #{Name}"}},
			},
			{
				ID:   "insertAuthor",
				Kind: "insert",
				Body: []binding.NodeSpec{{Text: "INSERT INTO authors (name) VALUES (#{Name})"}},
			},
		},
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

func testDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestSessionSelectOneReturnsSingleRow(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectCommit()

	s, err := f.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	got, err := session.SelectOne[Author](context.Background(), s, "AuthorMapper.selectAuthor", &Author{ID: 1})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionSelectOneZeroRowsReturnsNilNoError(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectCommit()

	s, err := f.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	got, err := session.SelectOne[Author](context.Background(), s, "AuthorMapper.selectAuthor", &Author{ID: 9})
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionSelectOneMultipleRowsErrors(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE name = ?").
		ExpectQuery().WithArgs("Ada").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Ada").
			AddRow(int64(2), "Ada"))
	mock.ExpectCommit()

	s, err := f.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	_, err = session.SelectOne[Author](context.Background(), s, "AuthorMapper.selectAuthorsByName", &Author{Name: "Ada"})
	assert.Error(t, err)
}

func TestSessionInsertAutoCommitsImmediately(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO authors").
		ExpectExec().WithArgs("Ada").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	s, err := f.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	result, err := s.Insert(context.Background(), "AuthorMapper.insertAuthor", &Author{Name: "Ada"})
	require.NoError(t, err)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionExplicitTransactionRollsBackOnCloseWhenDirty(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO authors").
		ExpectExec().WithArgs("Ada").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	s, err := f.OpenWithExecutorType(context.Background(), binding.ExecutorSimple, false)
	require.NoError(t, err)

	_, err = s.Insert(context.Background(), "AuthorMapper.insertAuthor", &Author{Name: "Ada"})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionClearCacheReachesFirstLevelCache(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectCommit()

	s, err := f.OpenWithExecutorType(context.Background(), binding.ExecutorSimple, false)
	require.NoError(t, err)
	defer s.Close()

	_, err = session.SelectOne[Author](context.Background(), s, "AuthorMapper.selectAuthor", &Author{ID: 1})
	require.NoError(t, err)

	s.ClearCache()

	// Cache was cleared, so the second identical call must hit the
	// database again — asserted by the second ExpectPrepare above.
	_, err = session.SelectOne[Author](context.Background(), s, "AuthorMapper.selectAuthor", &Author{ID: 1})
	require.NoError(t, err)

	require.NoError(t, s.Commit(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFactoryOpenUsesConfiguredExecutorType(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	settings := binding.DefaultSettings()
	settings.DefaultExecutorType = binding.ExecutorReuse
	cfg := authorConfig(t, env, &settings)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?")
	prepared.ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	prepared.ExpectQuery().WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "Bob"))
	mock.ExpectCommit()

	s, err := f.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	// Reuse keeps one prepared statement open across calls: both queries
	// above chain off a single ExpectPrepare.
	_, err = session.SelectOne[Author](context.Background(), s, "AuthorMapper.selectAuthor", &Author{ID: 1})
	require.NoError(t, err)
	_, err = session.SelectOne[Author](context.Background(), s, "AuthorMapper.selectAuthor", &Author{ID: 2})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFactoryRunUsesContextBoundSession(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectCommit()

	bound, err := f.OpenWithExecutorType(context.Background(), binding.ExecutorSimple, false)
	require.NoError(t, err)
	ctx := session.WithSession(context.Background(), bound)

	err = f.Run(ctx, func(s session.Session) error {
		_, err := session.SelectOne[Author](ctx, s, "AuthorMapper.selectAuthor", &Author{ID: 1})
		return err
	})
	require.NoError(t, err)

	// Run must not close a session it did not open itself.
	require.NoError(t, bound.Commit(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFactoryRunOpensFreshSessionWithNoBoundContext(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	mock.ExpectBegin()
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectCommit()

	var got *Author
	err := f.Run(context.Background(), func(s session.Session) error {
		var err error
		got, err = session.SelectOne[Author](context.Background(), s, "AuthorMapper.selectAuthor", &Author{ID: 1})
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

// authorMapper is a hand-written thin implementation of the kind a caller
// builds over session.Invoke, since Go cannot synthesize one purely via
// reflection (see session.Invoke's doc comment).
type authorMapper struct {
	s    session.Session
	desc *binding.MapperDescriptor
}

func (m *authorMapper) SelectAuthor(ctx context.Context, id int64) (*Author, error) {
	v, err := session.Invoke(ctx, m.s, m.desc, "SelectAuthor", &Author{ID: id})
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*Author), nil
}

func (m *authorMapper) InsertAuthor(ctx context.Context, name string) error {
	_, err := session.Invoke(ctx, m.s, m.desc, "InsertAuthor", &Author{Name: name})
	return err
}

type authorMapperInterface interface {
	SelectAuthor(ctx context.Context, id int64) (*Author, error)
	InsertAuthor(ctx context.Context, name string) error
}

func TestMapperInvokeSingleUnwrappedParamAndVoidInsert(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)
	f := session.NewFactory(cfg, env)

	desc, err := binding.BindMapper(cfg, reflect.TypeOf((*authorMapperInterface)(nil)).Elem(), map[string]binding.MethodConfig{
		"SelectAuthor": {StatementID: "AuthorMapper.selectAuthor", Returns: binding.ReturnOptional},
		"InsertAuthor": {StatementID: "AuthorMapper.insertAuthor", Returns: binding.ReturnVoid},
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectPrepare("SELECT id, name FROM authors WHERE id = ?").
		ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
	mock.ExpectPrepare("INSERT INTO authors").
		ExpectExec().WithArgs("Bob").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	s, err := f.OpenWithExecutorType(context.Background(), binding.ExecutorSimple, false)
	require.NoError(t, err)
	defer s.Close()

	var mapper authorMapperInterface = &authorMapper{s: s, desc: desc}

	author, err := mapper.SelectAuthor(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "Ada", author.Name)

	require.NoError(t, mapper.InsertAuthor(context.Background(), "Bob"))
	require.NoError(t, s.Commit(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapperInvokeReturnCursorFailsFast(t *testing.T) {
	db, mock := testDB(t)
	env := &environment.Environment{ID: "test", DataSource: db, TransactionFactory: environment.JDBCTransactionFactory{}}
	cfg := authorConfig(t, env, nil)

	desc, err := binding.BindMapper(cfg, reflect.TypeOf((*authorMapperInterface)(nil)).Elem(), map[string]binding.MethodConfig{
		"SelectAuthor": {StatementID: "AuthorMapper.selectAuthor", Returns: binding.ReturnCursor},
		"InsertAuthor": {StatementID: "AuthorMapper.insertAuthor", Returns: binding.ReturnVoid},
	})
	require.NoError(t, err)

	mock.ExpectBegin()

	s, err := session.NewFactory(cfg, env).OpenWithExecutorType(context.Background(), binding.ExecutorSimple, false)
	require.NoError(t, err)
	defer s.Close()

	_, err = session.Invoke(context.Background(), s, desc, "SelectAuthor", &Author{ID: 1})
	assert.Error(t, err)
}
