package binding

import (
	"reflect"

	"github.com/gobatis/gobatis/cache"
	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/typehandler"
)

// Configuration is the immutable, build-time-complete aggregate every
// runtime component is constructed from: an active Environment, the
// recognized Settings, and the id-addressable tables of mapped
// statements, result maps, sql fragments, and namespace caches. It is
// published once by Build and shared read-only thereafter.
type Configuration struct {
	Environment *environment.Environment
	Settings    Settings
	DatabaseID  string

	TypeAliases  map[string]reflect.Type
	TypeHandlers *typehandler.Registry

	statements map[string]*statement.MappedStatement
	resultMaps map[string]*statement.ResultMap
	fragments  map[string]*statement.SQLFragment
	caches     map[string]cache.Cache // namespace -> its second-level cache, if any
}

// MappedStatement looks up a statement by its fully qualified id
// ("namespace.methodName").
func (c *Configuration) MappedStatement(id string) (*statement.MappedStatement, error) {
	ms, ok := c.statements[id]
	if !ok {
		return nil, xerrors.Binding("binding: no mapped statement %q", id)
	}
	return ms, nil
}

// ResultMap looks up a result map by id.
func (c *Configuration) ResultMap(id string) (*statement.ResultMap, error) {
	rm, ok := c.resultMaps[id]
	if !ok {
		return nil, xerrors.Binding("binding: no result map %q", id)
	}
	return rm, nil
}

// Cache returns namespace's second-level cache, or nil if it declared none.
func (c *Configuration) Cache(namespace string) cache.Cache {
	return c.caches[namespace]
}

// HasStatement reports whether id names a mapped statement.
func (c *Configuration) HasStatement(id string) bool {
	_, ok := c.statements[id]
	return ok
}

// StatementIDs returns every mapped statement id, for diagnostics and tests.
func (c *Configuration) StatementIDs() []string {
	ids := make([]string, 0, len(c.statements))
	for id := range c.statements {
		ids = append(ids, id)
	}
	return ids
}
