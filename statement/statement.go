// Package statement holds the immutable data records produced by the
// configuration builder: mapped statements, result maps, and parameter
// mappings. None of these types carry behavior beyond simple accessors —
// the executor, statement handler, and result-set packages interpret them.
// Grounded on spec.md §3's Data Model section, translated field-for-field.
package statement

import (
	"context"
	"database/sql"
	"time"

	"github.com/gobatis/gobatis/dynamicsql"
	"github.com/gobatis/gobatis/environment"
)

// CommandKind classifies what kind of SQL a statement issues.
type CommandKind int

const (
	Select CommandKind = iota
	Insert
	Update
	Delete
)

func (c CommandKind) String() string {
	switch c {
	case Select:
		return "SELECT"
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Kind classifies how a statement is prepared against the driver.
type Kind int

const (
	Prepared Kind = iota
	Simple
	Callable
)

// KeyRunner executes a mapped statement by id and returns its result rows.
// A select-key generator uses it to run its lookup statement through
// whichever executor is driving the owning insert — the Configuration a
// KeyGenerator is attached to is read-mostly and shared across sessions, so
// the runner must arrive per-call rather than be fixed at bind time.
type KeyRunner interface {
	Query(ctx context.Context, statementID string, param any) ([]any, error)
}

// KeyGenerator assigns or retrieves generated primary keys around
// statement execution: a select-key generator runs before an insert that
// needs an explicitly-chosen key, an identity generator reads the driver's
// reported key after an auto-increment insert.
type KeyGenerator interface {
	Name() string

	// ProcessBefore runs ahead of the statement's own execution. A
	// select-key generator configured with order BEFORE writes its
	// retrieved values into param here; other generators no-op.
	ProcessBefore(ctx context.Context, queryer environment.Queryer, runner KeyRunner, ms *MappedStatement, param any) error

	// ProcessAfter runs once the statement has executed successfully,
	// writing retrieved key values into param's KeyProperty paths.
	ProcessAfter(ctx context.Context, queryer environment.Queryer, runner KeyRunner, ms *MappedStatement, param any, result sql.Result) error
}

// MappedStatement is the immutable, build-time-complete description of one
// mapper method: "{namespace}.{methodName}" uniquely identifies it within
// a Configuration.
type MappedStatement struct {
	ID        string
	Namespace string

	Command CommandKind
	Kind    Kind

	SQLSource SQLSource

	ParameterType string // type alias or Go type name, informational
	ResultMapIDs  []string

	FetchSize       int
	Timeout         time.Duration
	FlushCache      bool
	UseCache        bool
	KeyGenerator    KeyGenerator
	KeyProperty     []string
	KeyColumn       []string
	DatabaseID      string
	LangDriver      string
}

// SQLSource produces a BoundSQL for a given runtime parameter value. Raw
// and Dynamic sources (sqlsource package) both implement it.
type SQLSource interface {
	Bind(parameter any) (BoundSQL, error)
}

// BoundSQL is the per-invocation result of rendering a SQLSource: the
// final SQL text with positional placeholders and the ordered parameter
// mappings describing how to read each bound value.
type BoundSQL struct {
	SQL               string
	ParameterMappings []ParameterMapping
	ParameterObject   any
	AdditionalParams  map[string]any
}

// ParameterMode classifies a stored-procedure parameter's direction.
type ParameterMode int

const (
	ModeIn ParameterMode = iota
	ModeOut
	ModeInOut
)

// ParameterMapping is one element of a BoundSQL's ordered parameter list,
// produced by parsing a single "#{...}" token.
type ParameterMapping struct {
	Property     string // dotted property path, e.g. "Author.Name"
	GoType       string
	JdbcType     string
	TypeHandler  string // registered type handler name, empty = infer
	Mode         ParameterMode
	NumericScale int
	ResultMapID  string // for OUT cursor parameters
	Expression   string // reserved
}

// Discriminator picks a nested ResultMap id based on a column's value.
type Discriminator struct {
	Column string
	Cases  map[string]string // value -> result map id
}

// ResultFlag marks special handling for a ResultMapping.
type ResultFlag int

const (
	FlagNone ResultFlag = iota
	FlagID
	FlagConstructor
)

// ResultMapping describes how one column feeds one target property (or
// constructor argument).
type ResultMapping struct {
	Property    string
	Column      string
	GoType      string
	JdbcType    string
	TypeHandler string
	Flag        ResultFlag

	NestedSelect    string // statement id, for a lazy/eager association
	NestedResultMap string // result map id, for an eager join
	ColumnPrefix    string
	Lazy            bool
	IsCollection    bool // true for <collection>, false for <association>; Property holds a slice

	ForeignColumns []string
	NotNullColumns []string
}

// ResultMap is the immutable tree describing how a row (or a join's worth
// of rows) becomes a Go value.
type ResultMap struct {
	ID            string
	Type          string // type alias or Go type name
	Discriminator *Discriminator
	Mappings      []ResultMapping
}

// SQLFragment is a reusable, named dynamic SQL node, referenced by
// dynamicsql.IncludeNode.
type SQLFragment struct {
	ID   string
	Node dynamicsql.Node
}
