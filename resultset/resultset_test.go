package resultset_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/resultset"
)

type Author struct {
	ID   int64
	Name string
}

type Comment struct {
	ID   int64
	Body string
}

type Post struct {
	ID           int64
	Title        string
	Body         string
	Author       Author
	Comments     []Comment
	LazyComments *resultset.Deferred[[]any]
}

func testEnv() *environment.Environment {
	return &environment.Environment{ID: "test"}
}

func TestHandleRowsFlatMapping(t *testing.T) {
	b := binding.NewBuilder(testEnv())
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
				Body:      []binding.NodeSpec{{Text: "SELECT id, name FROM authors WHERE id = #{id}"}},
			},
		},
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT id, name FROM authors").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))

	rows, err := db.QueryContext(context.Background(), "SELECT id, name FROM authors WHERE id = ?", 1)
	require.NoError(t, err)

	ms, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	h := resultset.NewHandler(cfg, nil)
	out, err := h.HandleRows(context.Background(), ms, rows, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	author := out[0].(*Author)
	assert.Equal(t, int64(1), author.ID)
	assert.Equal(t, "Ada", author.Name)
}

func TestHandleRowsAutoMappingFull(t *testing.T) {
	b := binding.NewBuilder(testEnv())
	b.UseSettings(binding.Settings{AutoMappingBehavior: binding.AutoMappingFull})
	doc := &binding.MapperDocument{
		Namespace: "AuthorMapper",
		Statements: []binding.StatementDocument{
			{ID: "selectAuthor", Kind: "select", Body: []binding.NodeSpec{{Text: "SELECT id, name FROM authors"}}},
		},
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT id, name FROM authors").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "Grace"))
	rows, err := db.QueryContext(context.Background(), "SELECT id, name FROM authors")
	require.NoError(t, err)

	ms, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	h := resultset.NewHandler(cfg, nil)
	out, err := h.HandleRows(context.Background(), ms, rows, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	author := out[0].(*Author)
	assert.Equal(t, int64(2), author.ID)
	assert.Equal(t, "Grace", author.Name)
}

func TestHandleRowsAutoMappingNoneLeavesFieldsZero(t *testing.T) {
	b := binding.NewBuilder(testEnv())
	b.UseSettings(binding.Settings{AutoMappingBehavior: binding.AutoMappingNone})
	doc := &binding.MapperDocument{
		Namespace: "AuthorMapper",
		Statements: []binding.StatementDocument{
			{ID: "selectAuthor", Kind: "select", Body: []binding.NodeSpec{{Text: "SELECT id, name FROM authors"}}},
		},
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT id, name FROM authors").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "Barbara"))
	rows, err := db.QueryContext(context.Background(), "SELECT id, name FROM authors")
	require.NoError(t, err)

	ms, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	h := resultset.NewHandler(cfg, nil)
	out, err := h.HandleRows(context.Background(), ms, rows, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	author := out[0].(*Author)
	assert.Zero(t, author.ID)
	assert.Zero(t, author.Name)
}

func TestHandleRowsNestedEagerAssociationAndCollection(t *testing.T) {
	b := binding.NewBuilder(testEnv())
	b.RegisterAlias("Author", reflect.TypeOf(Author{}))
	b.RegisterAlias("Comment", reflect.TypeOf(Comment{}))
	b.RegisterAlias("Post", reflect.TypeOf(Post{}))
	doc := &binding.MapperDocument{
		Namespace: "PostMapper",
		ResultMaps: []binding.ResultMapDocument{
			{
				ID:   "authorMap",
				Type: "Author",
				IDs:  []binding.ResultDocument{{Property: "ID", Column: "id"}},
				Result: []binding.ResultDocument{
					{Property: "Name", Column: "name"},
				},
			},
			{
				ID:   "commentMap",
				Type: "Comment",
				IDs:  []binding.ResultDocument{{Property: "ID", Column: "id"}},
				Result: []binding.ResultDocument{
					{Property: "Body", Column: "body"},
				},
			},
			{
				ID:   "postMap",
				Type: "Post",
				IDs:  []binding.ResultDocument{{Property: "ID", Column: "id"}},
				Result: []binding.ResultDocument{
					{Property: "Title", Column: "title"},
				},
				Association: []binding.AssociationDocument{
					{Property: "Author", ResultMap: "authorMap", ColumnPrefix: "author_", NotNullColumn: "id"},
				},
				Collection: []binding.CollectionDocument{
					{Property: "Comments", OfType: "Comment", ResultMap: "commentMap", ColumnPrefix: "comment_", NotNullColumn: "id"},
				},
			},
		},
		Statements: []binding.StatementDocument{
			{ID: "selectPost", Kind: "select", ResultMap: "postMap", Body: []binding.NodeSpec{{Text: "SELECT * FROM posts_join"}}},
		},
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	cols := []string{"id", "title", "author_id", "author_name", "comment_id", "comment_body"}
	mock.ExpectQuery("SELECT \\* FROM posts_join").WillReturnRows(
		sqlmock.NewRows(cols).
			AddRow(int64(1), "Hello", int64(10), "Ada", int64(100), "first").
			AddRow(int64(1), "Hello", int64(10), "Ada", int64(101), "second"),
	)
	rows, err := db.QueryContext(context.Background(), "SELECT * FROM posts_join")
	require.NoError(t, err)

	ms, err := cfg.MappedStatement("PostMapper.selectPost")
	require.NoError(t, err)

	h := resultset.NewHandler(cfg, nil)
	out, err := h.HandleRows(context.Background(), ms, rows, reflect.TypeOf(Post{}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	post := out[0].(*Post)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "Ada", post.Author.Name)
	require.Len(t, post.Comments, 2)
	assert.Equal(t, "first", post.Comments[0].Body)
	assert.Equal(t, "second", post.Comments[1].Body)
}

func TestHandleRowsLeftJoinMissAssociationStaysZero(t *testing.T) {
	b := binding.NewBuilder(testEnv())
	b.RegisterAlias("Author", reflect.TypeOf(Author{}))
	b.RegisterAlias("Post", reflect.TypeOf(Post{}))
	doc := &binding.MapperDocument{
		Namespace: "PostMapper",
		ResultMaps: []binding.ResultMapDocument{
			{
				ID:   "authorMap",
				Type: "Author",
				IDs:  []binding.ResultDocument{{Property: "ID", Column: "id"}},
			},
			{
				ID:   "postMap",
				Type: "Post",
				IDs:  []binding.ResultDocument{{Property: "ID", Column: "id"}},
				Result: []binding.ResultDocument{
					{Property: "Title", Column: "title"},
				},
				Association: []binding.AssociationDocument{
					{Property: "Author", ResultMap: "authorMap", ColumnPrefix: "author_", NotNullColumn: "id"},
				},
			},
		},
		Statements: []binding.StatementDocument{
			{ID: "selectPost", Kind: "select", ResultMap: "postMap", Body: []binding.NodeSpec{{Text: "SELECT * FROM posts_leftjoin"}}},
		},
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	cols := []string{"id", "title", "author_id"}
	mock.ExpectQuery("SELECT \\* FROM posts_leftjoin").WillReturnRows(
		sqlmock.NewRows(cols).AddRow(int64(1), "Orphan", nil),
	)
	rows, err := db.QueryContext(context.Background(), "SELECT * FROM posts_leftjoin")
	require.NoError(t, err)

	ms, err := cfg.MappedStatement("PostMapper.selectPost")
	require.NoError(t, err)

	h := resultset.NewHandler(cfg, nil)
	out, err := h.HandleRows(context.Background(), ms, rows, reflect.TypeOf(Post{}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	post := out[0].(*Post)
	assert.Equal(t, "Orphan", post.Title)
	assert.Zero(t, post.Author)
}

func TestHandleRowsDiscriminator(t *testing.T) {
	b := binding.NewBuilder(testEnv())
	b.RegisterAlias("Author", reflect.TypeOf(Author{}))
	doc := &binding.MapperDocument{
		Namespace: "AuthorMapper",
		ResultMaps: []binding.ResultMapDocument{
			{
				ID:   "namedAuthorMap",
				Type: "Author",
				Result: []binding.ResultDocument{
					{Property: "Name", Column: "name"},
				},
			},
			{
				ID:            "authorMap",
				Type:          "Author",
				IDs:           []binding.ResultDocument{{Property: "ID", Column: "id"}},
				Discriminator: &binding.DiscriminatorDocument{Column: "kind", Cases: map[string]string{"named": "namedAuthorMap"}},
			},
		},
		Statements: []binding.StatementDocument{
			{ID: "selectAuthor", Kind: "select", ResultMap: "authorMap", Body: []binding.NodeSpec{{Text: "SELECT id, kind, name FROM authors"}}},
		},
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT id, kind, name FROM authors").WillReturnRows(
		sqlmock.NewRows([]string{"id", "kind", "name"}).AddRow(int64(5), "named", "Margaret"),
	)
	rows, err := db.QueryContext(context.Background(), "SELECT id, kind, name FROM authors")
	require.NoError(t, err)

	ms, err := cfg.MappedStatement("AuthorMapper.selectAuthor")
	require.NoError(t, err)

	h := resultset.NewHandler(cfg, nil)
	out, err := h.HandleRows(context.Background(), ms, rows, reflect.TypeOf(Author{}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Margaret", out[0].(*Author).Name)
}

type countingNestedExecutor struct {
	calls int
	rows  []any
}

func (c *countingNestedExecutor) Query(ctx context.Context, statementID string, param any) ([]any, error) {
	c.calls++
	return c.rows, nil
}

func TestHandleRowsLazyNestedSelectResolvesOnce(t *testing.T) {
	b := binding.NewBuilder(testEnv())
	b.RegisterAlias("Post", reflect.TypeOf(Post{}))
	doc := &binding.MapperDocument{
		Namespace: "PostMapper",
		ResultMaps: []binding.ResultMapDocument{
			{
				ID:   "postMap",
				Type: "Post",
				IDs:  []binding.ResultDocument{{Property: "ID", Column: "id"}},
				Result: []binding.ResultDocument{
					{Property: "Title", Column: "title"},
				},
				Collection: []binding.CollectionDocument{
					{Property: "LazyComments", OfType: "Comment", Column: "id", Select: "CommentMapper.selectByPostID", FetchType: "lazy"},
				},
			},
		},
		Statements: []binding.StatementDocument{
			{ID: "selectPost", Kind: "select", ResultMap: "postMap", Body: []binding.NodeSpec{{Text: "SELECT id, title FROM posts"}}},
		},
	}
	require.NoError(t, b.AddMapperDocument(doc))
	cfg, err := b.Build()
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT id, title FROM posts").WillReturnRows(
		sqlmock.NewRows([]string{"id", "title"}).AddRow(int64(1), "Lazy"),
	)
	rows, err := db.QueryContext(context.Background(), "SELECT id, title FROM posts")
	require.NoError(t, err)

	ms, err := cfg.MappedStatement("PostMapper.selectPost")
	require.NoError(t, err)

	nested := &countingNestedExecutor{rows: []any{&Comment{ID: 1, Body: "deferred"}}}
	h := resultset.NewHandler(cfg, nested)
	out, err := h.HandleRows(context.Background(), ms, rows, reflect.TypeOf(Post{}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	post := out[0].(*Post)
	require.NotNil(t, post.LazyComments)
	assert.False(t, post.LazyComments.Resolved())
	assert.Equal(t, 0, nested.calls)

	loaded, err := post.LazyComments.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 1, nested.calls)
	assert.True(t, post.LazyComments.Resolved())

	_, err = post.LazyComments.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, nested.calls)
}
