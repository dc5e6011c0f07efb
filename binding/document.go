// Package binding builds a Configuration from YAML configuration and
// mapper documents (or from a descriptor table bound directly to a Go
// mapper interface), resolving forward references — result map
// inheritance, cache refs, sql fragment includes — in a two-phase pass.
// Grounded on the teacher's nested-document decoding idiom
// (forbearing/gst/config/config.go's viper-backed struct unmarshal) and on
// 18f1d870_..._configuration.go.go's Configuration/MapperRegistry shape.
package binding

// ConfigDocument is the YAML root: <configuration> in the source system's
// terms, here just the top-level document key.
type ConfigDocument struct {
	Properties         map[string]string            `yaml:"properties"`
	Settings           map[string]string             `yaml:"settings"`
	TypeAliases        map[string]string              `yaml:"typeAliases"`
	TypeHandlers       []TypeHandlerDocument           `yaml:"typeHandlers"`
	Environments       EnvironmentsDocument            `yaml:"environments"`
	DatabaseIDProvider DatabaseIDProviderDocument       `yaml:"databaseIdProvider"`
	Mappers            []MapperRefDocument             `yaml:"mappers"`
}

// TypeHandlerDocument registers a handler for one (goType, jdbcType) pair.
type TypeHandlerDocument struct {
	GoType      string `yaml:"goType"`
	JdbcType    string `yaml:"jdbcType"`
	TypeHandler string `yaml:"typeHandler"`
}

// EnvironmentsDocument lists named <environment> entries and the default.
type EnvironmentsDocument struct {
	Default     string                          `yaml:"default"`
	Environment []EnvironmentEntryDocument       `yaml:"environment"`
}

// EnvironmentEntryDocument is one named (transactionManager, dataSource).
type EnvironmentEntryDocument struct {
	ID                 string            `yaml:"id"`
	TransactionManager string            `yaml:"transactionManager"` // "JDBC" or "MANAGED"
	DataSource         DataSourceDocument `yaml:"dataSource"`
}

// DataSourceDocument is the driver + DSN + pool tuning for one environment.
type DataSourceDocument struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime string `yaml:"connMaxLifetime"`
	ConnMaxIdleTime string `yaml:"connMaxIdleTime"`
}

// DatabaseIDProviderDocument maps a DSN vendor substring to a database id.
type DatabaseIDProviderDocument struct {
	Type       string            `yaml:"type"` // "DB_VENDOR"
	Properties map[string]string `yaml:"properties"`
}

// MapperRefDocument is one <mappers><mapper> entry naming a mapper by one
// of its three fields. Build does not read these entries, so nothing checks
// that exactly one field is set.
type MapperRefDocument struct {
	Resource string `yaml:"resource"`
	URL      string `yaml:"url"`
	Package  string `yaml:"package"`
}

// MapperDocument is one mapper YAML file's root.
type MapperDocument struct {
	Namespace  string                `yaml:"namespace"`
	CacheRef   string                `yaml:"cacheRef"`
	Cache      *CacheDocument        `yaml:"cache"`
	ResultMaps []ResultMapDocument   `yaml:"resultMaps"`
	SQL        []SQLFragmentDocument `yaml:"sql"`
	Statements []StatementDocument   `yaml:"statements"`
}

// CacheDocument is the mapper's own <cache> element.
type CacheDocument struct {
	Type          string            `yaml:"type"` // LRU, FIFO, SOFT, WEAK, SCHEDULED
	Eviction      string            `yaml:"eviction"`
	FlushInterval string            `yaml:"flushInterval"`
	Size          int               `yaml:"size"` // entry count for LRU; kilobytes of backing storage for FIFO/SOFT (see buildCacheChain)
	ReadOnly      bool              `yaml:"readOnly"`
	Blocking      bool              `yaml:"blocking"`
	Properties    map[string]string `yaml:"properties"`
}

// SQLFragmentDocument is one reusable, named <sql> block.
type SQLFragmentDocument struct {
	ID         string `yaml:"id"`
	DatabaseID string `yaml:"databaseId"`
	Text       string `yaml:"text"`
}

// ResultMapDocument is one <resultMap>.
type ResultMapDocument struct {
	ID            string                   `yaml:"id"`
	Type          string                   `yaml:"type"`
	Extends       string                   `yaml:"extends"`
	AutoMapping   *bool                    `yaml:"autoMapping"`
	Constructor   *ConstructorDocument     `yaml:"constructor"`
	IDs           []ResultDocument         `yaml:"ids"` // <id> mappings; named "ids" to avoid colliding with the resultMap's own "id" key
	Result        []ResultDocument         `yaml:"result"`
	Association   []AssociationDocument    `yaml:"association"`
	Collection    []CollectionDocument     `yaml:"collection"`
	Discriminator *DiscriminatorDocument   `yaml:"discriminator"`
}

// ConstructorDocument lists constructor-argument mappings in order.
type ConstructorDocument struct {
	IDArgs []ResultDocument `yaml:"idArgs"`
	Args   []ResultDocument `yaml:"args"`
}

// ResultDocument maps one column to one property.
type ResultDocument struct {
	Property    string `yaml:"property"`
	Column      string `yaml:"column"`
	GoType      string `yaml:"goType"`
	JdbcType    string `yaml:"jdbcType"`
	TypeHandler string `yaml:"typeHandler"`
}

// AssociationDocument is a nested single-valued result (eager join or lazy
// select).
type AssociationDocument struct {
	Property     string `yaml:"property"`
	Column       string `yaml:"column"`
	Select       string `yaml:"select"`
	ResultMap    string `yaml:"resultMap"`
	ColumnPrefix string `yaml:"columnPrefix"`
	FetchType    string `yaml:"fetchType"` // "lazy" or "eager"
	NotNullColumn string `yaml:"notNullColumn"`
}

// CollectionDocument is a nested multi-valued result.
type CollectionDocument struct {
	Property      string `yaml:"property"`
	Column        string `yaml:"column"`
	OfType        string `yaml:"ofType"`
	Select        string `yaml:"select"`
	ResultMap     string `yaml:"resultMap"`
	ColumnPrefix  string `yaml:"columnPrefix"`
	FetchType     string `yaml:"fetchType"`
	ForeignColumn string `yaml:"foreignColumn"`
	NotNullColumn string `yaml:"notNullColumn"`
}

// DiscriminatorDocument picks a nested result map by a column's value.
type DiscriminatorDocument struct {
	Column      string            `yaml:"column"`
	GoType      string            `yaml:"goType"`
	JdbcType    string            `yaml:"jdbcType"`
	TypeHandler string            `yaml:"typeHandler"`
	Cases       map[string]string `yaml:"cases"`
}

// StatementDocument is one <select>/<insert>/<update>/<delete>.
type StatementDocument struct {
	ID               string     `yaml:"id"`
	Kind             string     `yaml:"kind"` // select, insert, update, delete
	ParameterType    string     `yaml:"parameterType"`
	ResultType       string     `yaml:"resultType"`
	ResultMap        string     `yaml:"resultMap"`
	FlushCache       *bool      `yaml:"flushCache"`
	UseCache         *bool      `yaml:"useCache"`
	Timeout          string     `yaml:"timeout"`
	FetchSize        int        `yaml:"fetchSize"`
	StatementType    string     `yaml:"statementType"` // PREPARED, STATEMENT (simple), CALLABLE
	ResultSetType    string     `yaml:"resultSetType"`
	KeyProperty      string     `yaml:"keyProperty"`
	KeyColumn        string     `yaml:"keyColumn"`
	UseGeneratedKeys *bool      `yaml:"useGeneratedKeys"`
	DatabaseID       string     `yaml:"databaseId"`
	ResultSets       string     `yaml:"resultSets"`
	Body             []NodeSpec `yaml:"body"`
}
