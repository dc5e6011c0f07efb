package statementhandler_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobatis/gobatis/keygen"
	"github.com/gobatis/gobatis/sqlsource"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/statementhandler"
	"github.com/gobatis/gobatis/typehandler"
)

type User struct {
	ID   int64
	Name string
}

func rawStatement(t *testing.T, id string, kind statement.Kind, text string) *statement.MappedStatement {
	t.Helper()
	src, err := sqlsource.NewRaw(text)
	require.NoError(t, err)
	return &statement.MappedStatement{ID: id, Kind: kind, Command: statement.Select, SQLSource: src}
}

func TestPreparedHandlerReusesStatementForSameQueryer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ms := rawStatement(t, "UserMapper.selectUser", statement.Prepared, "SELECT id, name FROM users WHERE id = #{ID}")

	prepared := mock.ExpectPrepare("SELECT id, name FROM users WHERE id = ?")
	prepared.ExpectQuery().WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ada"))
	prepared.ExpectQuery().WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "bea"))

	h := statementhandler.New(ms, typehandler.NewRegistry())
	defer h.Close()

	rows1, err := h.QueryContext(context.Background(), ms, db, &User{ID: 1})
	require.NoError(t, err)
	rows1.Close()

	rows2, err := h.QueryContext(context.Background(), ms, db, &User{ID: 2})
	require.NoError(t, err)
	rows2.Close()

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSimpleHandlerRejectsParameterBindings(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ms := rawStatement(t, "UserMapper.selectAll", statement.Simple, "SELECT id, name FROM users WHERE id = #{ID}")

	h := statementhandler.New(ms, typehandler.NewRegistry())
	defer h.Close()

	_, err = h.QueryContext(context.Background(), ms, db, &User{ID: 1})
	assert.Error(t, err)
}

func TestSimpleHandlerRunsStaticSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ms := rawStatement(t, "UserMapper.selectAll", statement.Simple, "SELECT id, name FROM users")
	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ada"))

	h := statementhandler.New(ms, typehandler.NewRegistry())
	defer h.Close()

	rows, err := h.QueryContext(context.Background(), ms, db, nil)
	require.NoError(t, err)
	rows.Close()
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreparedHandlerExecRunsKeyGenerator(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ms := rawStatement(t, "UserMapper.insertUser", statement.Prepared, "INSERT INTO users (name) VALUES (#{Name})")
	ms.Command = statement.Insert
	ms.KeyProperty = []string{"ID"}
	ms.KeyGenerator = keygen.Identity{}

	mock.ExpectPrepare("INSERT INTO users").
		ExpectExec().WithArgs("ada").
		WillReturnResult(sqlmock.NewResult(42, 1))

	h := statementhandler.New(ms, typehandler.NewRegistry())
	defer h.Close()

	user := &User{Name: "ada"}
	_, err = h.ExecContext(context.Background(), ms, db, nil, user)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
}
