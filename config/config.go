// Package config loads runtime Settings the same way the host application
// loads its application config: creasty/defaults seeds struct zero values,
// viper layers a config file over those defaults, then environment
// variables (GOBATIS_*) take final precedence — a narrowed version of
// forbearing/gst/config's setDefault()-then-viper cascade, scoped to the
// settings table spec.md §6 enumerates instead of a whole application.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"

	"github.com/gobatis/gobatis/internal/xerrors"
)

// ExecutorType selects the default executor variant (spec.md §4.8).
type ExecutorType string

const (
	ExecutorSimple ExecutorType = "simple"
	ExecutorReuse  ExecutorType = "reuse"
	ExecutorBatch  ExecutorType = "batch"
)

// AutoMappingBehavior controls unmapped-column auto-binding (spec.md §4.10).
type AutoMappingBehavior string

const (
	AutoMappingNone    AutoMappingBehavior = "none"
	AutoMappingPartial AutoMappingBehavior = "partial"
	AutoMappingFull    AutoMappingBehavior = "full"
)

// UnknownColumnBehavior controls what happens when FULL auto-mapping meets
// a column with no writable property.
type UnknownColumnBehavior string

const (
	UnknownColumnNone    UnknownColumnBehavior = "none"
	UnknownColumnWarning UnknownColumnBehavior = "warning"
	UnknownColumnFailing UnknownColumnBehavior = "failing"
)

// LocalCacheScope controls the granularity of the first-level cache.
type LocalCacheScope string

const (
	LocalCacheSession   LocalCacheScope = "session"
	LocalCacheStatement LocalCacheScope = "statement"
)

// Settings mirrors the recognized settings table in spec.md §6. Field tags
// carry both the YAML document key and the default value applied by
// creasty/defaults before any file/env overlay.
type Settings struct {
	CacheEnabled                     bool                  `yaml:"cacheEnabled" mapstructure:"cacheEnabled" default:"true"`
	LazyLoadingEnabled               bool                  `yaml:"lazyLoadingEnabled" mapstructure:"lazyLoadingEnabled" default:"false"`
	AggressiveLazyLoading            bool                  `yaml:"aggressiveLazyLoading" mapstructure:"aggressiveLazyLoading" default:"false"`
	MultipleResultSetsEnabled        bool                  `yaml:"multipleResultSetsEnabled" mapstructure:"multipleResultSetsEnabled" default:"true"`
	UseColumnLabel                   bool                  `yaml:"useColumnLabel" mapstructure:"useColumnLabel" default:"true"`
	UseGeneratedKeys                 bool                  `yaml:"useGeneratedKeys" mapstructure:"useGeneratedKeys" default:"false"`
	AutoMappingBehavior              AutoMappingBehavior   `yaml:"autoMappingBehavior" mapstructure:"autoMappingBehavior" default:"partial"`
	AutoMappingUnknownColumnBehavior UnknownColumnBehavior `yaml:"autoMappingUnknownColumnBehavior" mapstructure:"autoMappingUnknownColumnBehavior" default:"none"`
	DefaultExecutorType              ExecutorType          `yaml:"defaultExecutorType" mapstructure:"defaultExecutorType" default:"simple"`
	DefaultStatementTimeout          time.Duration         `yaml:"defaultStatementTimeout" mapstructure:"defaultStatementTimeout" default:"0"`
	DefaultFetchSize                 int                   `yaml:"defaultFetchSize" mapstructure:"defaultFetchSize" default:"0"`
	SafeRowBoundsEnabled             bool                  `yaml:"safeRowBoundsEnabled" mapstructure:"safeRowBoundsEnabled" default:"false"`
	SafeResultHandlerEnabled         bool                  `yaml:"safeResultHandlerEnabled" mapstructure:"safeResultHandlerEnabled" default:"true"`
	MapUnderscoreToCamelCase         bool                  `yaml:"mapUnderscoreToCamelCase" mapstructure:"mapUnderscoreToCamelCase" default:"false"`
	LocalCacheScope                  LocalCacheScope       `yaml:"localCacheScope" mapstructure:"localCacheScope" default:"session"`
	JdbcTypeForNull                  string                `yaml:"jdbcTypeForNull" mapstructure:"jdbcTypeForNull" default:"OTHER"`
	LazyLoadTriggerMethods           []string              `yaml:"lazyLoadTriggerMethods" mapstructure:"lazyLoadTriggerMethods" default:"[\"equals\",\"clone\",\"hashCode\",\"toString\"]"`
	CallSettersOnNulls               bool                  `yaml:"callSettersOnNulls" mapstructure:"callSettersOnNulls" default:"false"`
	UseActualParamName               bool                  `yaml:"useActualParamName" mapstructure:"useActualParamName" default:"true"`
	ReturnInstanceForEmptyRow        bool                  `yaml:"returnInstanceForEmptyRow" mapstructure:"returnInstanceForEmptyRow" default:"false"`
	ShrinkWhitespacesInSQL           bool                  `yaml:"shrinkWhitespacesInSql" mapstructure:"shrinkWhitespacesInSql" default:"false"`
}

// SetDefault applies creasty/defaults tag values to the zero-value struct.
func (s *Settings) SetDefault() error {
	return defaults.Set(s)
}

// LoggerSettings controls the logger/zap package's rotation behavior,
// modeled on forbearing/gst's Logger config section.
type LoggerSettings struct {
	Dir        string `yaml:"dir" mapstructure:"dir" default:"logs"`
	Production bool   `yaml:"production" mapstructure:"production" default:"false"`
	MaxSizeMB  int    `yaml:"maxSizeMb" mapstructure:"maxSizeMb" default:"100"`
	MaxBackups int    `yaml:"maxBackups" mapstructure:"maxBackups" default:"10"`
	MaxAgeDays int    `yaml:"maxAgeDays" mapstructure:"maxAgeDays" default:"30"`
	Compress   bool   `yaml:"compress" mapstructure:"compress" default:"true"`
}

func (l *LoggerSettings) SetDefault() error { return defaults.Set(l) }

// Root is the top-level on-disk configuration document: runtime settings
// plus logger rotation config. Environments and mappers are parsed
// separately by the binding package's document ingestion (they are part of
// the mapping-document grammar, not ambient config).
type Root struct {
	Settings Settings       `yaml:"settings" mapstructure:"settings"`
	Logger   LoggerSettings `yaml:"logger" mapstructure:"logger"`
}

var (
	mu   sync.RWMutex
	cv   *viper.Viper
	root = new(Root)
)

// Load reads defaults, then an optional file at path (if non-empty and
// present), then GOBATIS_-prefixed environment variables, in that order of
// increasing precedence.
func Load(path string) (*Root, error) {
	mu.Lock()
	defer mu.Unlock()

	r := new(Root)
	if err := r.Settings.SetDefault(); err != nil {
		return nil, xerrors.Build("applying default settings: %v", err)
	}
	if err := r.Logger.SetDefault(); err != nil {
		return nil, xerrors.Build("applying default logger settings: %v", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GOBATIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, xerrors.Build("reading config file %q: %v", path, err)
		}
	}
	if err := v.Unmarshal(r); err != nil {
		return nil, xerrors.Build("unmarshaling config: %v", err)
	}

	cv = v
	root = r
	return r, nil
}

// Current returns the most recently loaded Root, or defaults if Load was
// never called.
func Current() *Root {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

func init() {
	_ = root.Settings.SetDefault()
	_ = root.Logger.SetDefault()
}
