package binding

import "time"

// ExecutorType selects the executor variant a session opens by default.
type ExecutorType int

const (
	ExecutorSimple ExecutorType = iota
	ExecutorReuse
	ExecutorBatch
)

// AutoMappingBehavior controls how unmapped result columns are handled.
type AutoMappingBehavior int

const (
	AutoMappingNone AutoMappingBehavior = iota
	AutoMappingPartial
	AutoMappingFull
)

// LocalCacheScope controls how long the first-level cache holds entries.
type LocalCacheScope int

const (
	LocalCacheSession LocalCacheScope = iota
	LocalCacheStatement
)

// Settings is the recognized <settings> surface of the configuration
// document, given the teacher's nested-struct-with-defaults shape
// (forbearing/gst/config.Config's setDefault cascade).
type Settings struct {
	CacheEnabled                     bool
	LazyLoadingEnabled               bool
	AggressiveLazyLoading            bool
	MultipleResultSetsEnabled        bool
	UseColumnLabel                   bool
	UseGeneratedKeys                 bool
	AutoMappingBehavior              AutoMappingBehavior
	AutoMappingUnknownColumnBehavior string
	DefaultExecutorType              ExecutorType
	DefaultStatementTimeout          time.Duration
	DefaultFetchSize                 int
	SafeRowBoundsEnabled             bool
	SafeResultHandlerEnabled         bool
	MapUnderscoreToCamelCase         bool
	LocalCacheScope                  LocalCacheScope
	JdbcTypeForNull                  string
	LazyLoadTriggerMethods           []string // documented for compatibility; not operative in Go
	CallSettersOnNulls               bool
	UseActualParamName               bool
	ReturnInstanceForEmptyRow        bool
	ShrinkWhitespacesInSQL           bool
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		CacheEnabled:                     true,
		MultipleResultSetsEnabled:        true,
		UseColumnLabel:                   true,
		AutoMappingBehavior:              AutoMappingPartial,
		AutoMappingUnknownColumnBehavior: "NONE",
		DefaultExecutorType:              ExecutorSimple,
		SafeResultHandlerEnabled:         true,
		LocalCacheScope:                  LocalCacheSession,
		JdbcTypeForNull:                  "OTHER",
		LazyLoadTriggerMethods:           []string{"equals", "clone", "hashCode", "toString"},
		UseActualParamName:               true,
	}
}
