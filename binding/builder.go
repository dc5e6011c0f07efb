package binding

import (
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gobatis/gobatis/cache"
	"github.com/gobatis/gobatis/dynamicsql"
	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/sqlsource"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/typehandler"
)

// Builder assembles a Configuration from one environment plus any number
// of mapper documents. Grounded on 18f1d870_..._configuration.go.go's
// NewConfiguration()/registration shape, and on the Builder.Build()
// single-use guard this spec adopts from the same source's "parsed" flag.
type Builder struct {
	parsed bool

	settings   Settings
	databaseID string
	env        *environment.Environment
	aliases    map[string]reflect.Type
	handlers   *typehandler.Registry

	statements map[string]*statement.MappedStatement
	resultMaps map[string]*resultMapBuild
	fragments  map[string]*statement.SQLFragment
	cacheDocs  map[string]*CacheDocument // namespace -> its own <cache>, if declared
	cacheRefs  map[string]string         // namespace -> namespace it shares a cache with

	pendingIncludes []*dynamicsql.IncludeNode
}

type resultMapBuild struct {
	doc     ResultMapDocument
	built   *statement.ResultMap
	merging bool // cycle guard while resolving "extends"
}

// NewBuilder starts a Builder over env, seeded with the default Settings
// and a fresh typehandler.Registry.
func NewBuilder(env *environment.Environment) *Builder {
	return &Builder{
		settings:   DefaultSettings(),
		env:        env,
		aliases:    make(map[string]reflect.Type),
		handlers:   typehandler.NewRegistry(),
		statements: make(map[string]*statement.MappedStatement),
		resultMaps: make(map[string]*resultMapBuild),
		fragments:  make(map[string]*statement.SQLFragment),
		cacheDocs:  make(map[string]*CacheDocument),
		cacheRefs:  make(map[string]string),
	}
}

// UseSettings overrides the default settings wholesale.
func (b *Builder) UseSettings(s Settings) *Builder {
	b.settings = s
	return b
}

// UseDatabaseID fixes the active database id (resolved up front by the
// caller from the databaseIdProvider against the active driver name,
// since that resolution needs the live *sql.DB, not just the document).
func (b *Builder) UseDatabaseID(id string) *Builder {
	b.databaseID = id
	return b
}

// RegisterAlias records a type alias usable as a statement's parameterType
// or resultType.
func (b *Builder) RegisterAlias(name string, t reflect.Type) *Builder {
	b.aliases[name] = t
	return b
}

// TypeHandlers exposes the registry so callers can register custom
// handlers before Build.
func (b *Builder) TypeHandlers() *typehandler.Registry { return b.handlers }

// AddMapperYAML parses data as a MapperDocument and registers it.
func (b *Builder) AddMapperYAML(data []byte) error {
	var doc MapperDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return xerrors.Build("binding: parsing mapper document: %v", err)
	}
	return b.AddMapperDocument(&doc)
}

// AddMapperDocument registers one already-decoded mapper document: its sql
// fragments, result maps, and statements. References to as-yet-unseen
// fragments or parent result maps are recorded for Build's resolution
// pass, so documents may be added in any order.
func (b *Builder) AddMapperDocument(doc *MapperDocument) error {
	if b.parsed {
		return xerrors.Build("binding: cannot add mapper documents after Build")
	}
	ns := doc.Namespace
	if ns == "" {
		return xerrors.Build("binding: mapper document missing namespace")
	}

	if doc.Cache != nil && doc.CacheRef != "" {
		return xerrors.Build("binding: mapper %q declares both cache and cacheRef", ns)
	}
	if doc.Cache != nil {
		b.cacheDocs[ns] = doc.Cache
	}
	if doc.CacheRef != "" {
		b.cacheRefs[ns] = doc.CacheRef
	}

	resolver := nsResolver{builder: b, namespace: ns}

	for _, frag := range doc.SQL {
		id := qualify(ns, frag.ID)
		group, err := buildNodeGroup([]NodeSpec{{Text: frag.Text}}, resolver)
		if err != nil {
			return err
		}
		b.fragments[id] = &statement.SQLFragment{ID: id, Node: group}
	}

	for _, rm := range doc.ResultMaps {
		id := qualify(ns, rm.ID)
		b.resultMaps[id] = &resultMapBuild{doc: rm}
	}

	for _, st := range doc.Statements {
		ms, err := b.buildStatement(resolver, st)
		if err != nil {
			return err
		}
		if _, exists := b.statements[ms.ID]; exists {
			return xerrors.Build("binding: duplicate statement id %q", ms.ID)
		}
		b.statements[ms.ID] = ms
	}

	return nil
}

// nsResolver implements fragmentResolver for one mapper document: it
// qualifies a bare include refid against that document's own namespace
// before recording it as a pending forward reference.
type nsResolver struct {
	builder   *Builder
	namespace string
}

func (r nsResolver) includeNode(refID string) *dynamicsql.IncludeNode {
	n := &dynamicsql.IncludeNode{RefID: qualify(r.namespace, refID)}
	r.builder.pendingIncludes = append(r.builder.pendingIncludes, n)
	return n
}

func (b *Builder) buildStatement(resolver nsResolver, doc StatementDocument) (*statement.MappedStatement, error) {
	ns := resolver.namespace
	id := qualify(ns, doc.ID)

	command, err := parseCommand(doc.Kind)
	if err != nil {
		return nil, xerrors.Build("binding: statement %q: %v", id, err)
	}

	kind := statement.Prepared
	switch strings.ToUpper(doc.StatementType) {
	case "", "PREPARED":
		kind = statement.Prepared
	case "STATEMENT", "SIMPLE":
		kind = statement.Simple
	case "CALLABLE":
		kind = statement.Callable
	default:
		return nil, xerrors.Build("binding: statement %q: unknown statementType %q", id, doc.StatementType)
	}

	src, err := buildSQLSource(doc.Body, resolver)
	if err != nil {
		return nil, xerrors.Build("binding: statement %q: %v", id, err)
	}

	var resultMapIDs []string
	if doc.ResultMap != "" {
		for _, one := range strings.Split(doc.ResultMap, ",") {
			resultMapIDs = append(resultMapIDs, qualify(ns, strings.TrimSpace(one)))
		}
	}

	timeout, _ := time.ParseDuration(doc.Timeout)

	ms := &statement.MappedStatement{
		ID:            id,
		Namespace:     ns,
		Command:       command,
		Kind:          kind,
		SQLSource:     src,
		ParameterType: doc.ParameterType,
		ResultMapIDs:  resultMapIDs,
		FetchSize:     doc.FetchSize,
		Timeout:       timeout,
		FlushCache:    boolOr(doc.FlushCache, command != selectCommand),
		UseCache:      boolOr(doc.UseCache, command == selectCommand && b.settings.CacheEnabled),
		KeyProperty:   splitCSV(doc.KeyProperty),
		KeyColumn:     splitCSV(doc.KeyColumn),
		DatabaseID:    doc.DatabaseID,
	}
	return ms, nil
}

const selectCommand = statement.Select

func buildSQLSource(specs []NodeSpec, frag fragmentResolver) (statement.SQLSource, error) {
	if isStaticBody(specs) {
		var text strings.Builder
		for i, s := range specs {
			if i > 0 {
				text.WriteByte(' ')
			}
			text.WriteString(s.Text)
		}
		return sqlsource.NewRaw(text.String())
	}
	group, err := buildNodeGroup(specs, frag)
	if err != nil {
		return nil, err
	}
	return sqlsource.NewDynamic(group), nil
}

func isStaticBody(specs []NodeSpec) bool {
	for _, s := range specs {
		if s.Text == "" {
			return false // some control node
		}
		if strings.Contains(s.Text, "${") {
			return false // runtime substitution needs per-call rendering
		}
	}
	return true
}

func parseCommand(kind string) (statement.CommandKind, error) {
	switch strings.ToUpper(kind) {
	case "SELECT":
		return statement.Select, nil
	case "INSERT":
		return statement.Insert, nil
	case "UPDATE":
		return statement.Update, nil
	case "DELETE":
		return statement.Delete, nil
	default:
		return 0, xerrors.Build("unknown statement kind %q", kind)
	}
}

// qualify resolves id against namespace, unless id already looks like a
// fully qualified "namespace.name" reference.
func qualify(namespace, id string) string {
	if strings.Contains(id, ".") {
		return id
	}
	return namespace + "." + id
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// Build resolves every forward reference — includes, result map
// inheritance, cache refs — and returns the immutable Configuration. A
// Builder may be built exactly once.
func (b *Builder) Build() (*Configuration, error) {
	if b.parsed {
		return nil, xerrors.Build("binding: Build called more than once on this Builder")
	}
	b.parsed = true

	if err := b.resolveIncludes(); err != nil {
		return nil, err
	}
	resultMaps, err := b.resolveResultMaps()
	if err != nil {
		return nil, err
	}
	caches, err := b.resolveCaches()
	if err != nil {
		return nil, err
	}

	return &Configuration{
		Environment:  b.env,
		Settings:     b.settings,
		DatabaseID:   b.databaseID,
		TypeAliases:  b.aliases,
		TypeHandlers: b.handlers,
		statements:   b.statements,
		resultMaps:   resultMaps,
		fragments:    b.fragments,
		caches:       caches,
	}, nil
}

func (b *Builder) resolveIncludes() error {
	for _, inc := range b.pendingIncludes {
		frag, ok := b.fragments[inc.RefID]
		if !ok {
			return xerrors.IncompleteReference("binding: sql fragment %q never defined", inc.RefID)
		}
		inc.Target = frag.Node
	}
	return nil
}

func (b *Builder) resolveResultMaps() (map[string]*statement.ResultMap, error) {
	out := make(map[string]*statement.ResultMap, len(b.resultMaps))
	for id := range b.resultMaps {
		rm, err := b.resolveResultMap(id)
		if err != nil {
			return nil, err
		}
		out[id] = rm
	}
	return out, nil
}

func (b *Builder) resolveResultMap(id string) (*statement.ResultMap, error) {
	entry, ok := b.resultMaps[id]
	if !ok {
		return nil, xerrors.IncompleteReference("binding: result map %q never defined", id)
	}
	if entry.built != nil {
		return entry.built, nil
	}
	if entry.merging {
		return nil, xerrors.Build("binding: result map %q has a cyclic extends chain", id)
	}
	entry.merging = true
	defer func() { entry.merging = false }()

	var mappings []statement.ResultMapping
	if entry.doc.Extends != "" {
		parentID := qualify(namespaceOf(id), entry.doc.Extends)
		parent, err := b.resolveResultMap(parentID)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, parent.Mappings...)
	}

	for _, r := range entry.doc.IDs {
		mappings = append(mappings, toResultMapping(r, statement.FlagID))
	}
	for _, r := range entry.doc.Result {
		mappings = append(mappings, toResultMapping(r, statement.FlagNone))
	}
	for _, a := range entry.doc.Association {
		mappings = append(mappings, toAssociationMapping(namespaceOf(id), a))
	}
	for _, col := range entry.doc.Collection {
		mappings = append(mappings, toCollectionMapping(namespaceOf(id), col))
	}
	if entry.doc.Constructor != nil {
		for _, r := range entry.doc.Constructor.IDArgs {
			mappings = append(mappings, toResultMapping(r, statement.FlagConstructor))
		}
		for _, r := range entry.doc.Constructor.Args {
			mappings = append(mappings, toResultMapping(r, statement.FlagConstructor))
		}
	}

	var disc *statement.Discriminator
	if entry.doc.Discriminator != nil {
		cases := make(map[string]string, len(entry.doc.Discriminator.Cases))
		for val, caseID := range entry.doc.Discriminator.Cases {
			cases[val] = qualify(namespaceOf(id), caseID)
		}
		disc = &statement.Discriminator{Column: entry.doc.Discriminator.Column, Cases: cases}
	}

	built := &statement.ResultMap{
		ID:            id,
		Type:          entry.doc.Type,
		Discriminator: disc,
		Mappings:      mappings,
	}
	entry.built = built
	return built, nil
}

func namespaceOf(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[:i]
	}
	return id
}

func toResultMapping(r ResultDocument, flag statement.ResultFlag) statement.ResultMapping {
	return statement.ResultMapping{
		Property:    r.Property,
		Column:      r.Column,
		GoType:      r.GoType,
		JdbcType:    r.JdbcType,
		TypeHandler: r.TypeHandler,
		Flag:        flag,
	}
}

func toAssociationMapping(namespace string, a AssociationDocument) statement.ResultMapping {
	m := statement.ResultMapping{
		Property:     a.Property,
		Column:       a.Column,
		ColumnPrefix: a.ColumnPrefix,
		Lazy:         strings.EqualFold(a.FetchType, "lazy"),
	}
	if a.Select != "" {
		m.NestedSelect = qualify(namespace, a.Select)
	}
	if a.ResultMap != "" {
		m.NestedResultMap = qualify(namespace, a.ResultMap)
	}
	if a.NotNullColumn != "" {
		m.NotNullColumns = splitCSV(a.NotNullColumn)
	}
	return m
}

func toCollectionMapping(namespace string, col CollectionDocument) statement.ResultMapping {
	m := statement.ResultMapping{
		Property:       col.Property,
		Column:         col.Column,
		GoType:         col.OfType,
		ColumnPrefix:   col.ColumnPrefix,
		Lazy:           strings.EqualFold(col.FetchType, "lazy"),
		ForeignColumns: splitCSV(col.ForeignColumn),
		IsCollection:   true,
	}
	if col.Select != "" {
		m.NestedSelect = qualify(namespace, col.Select)
	}
	if col.ResultMap != "" {
		m.NestedResultMap = qualify(namespace, col.ResultMap)
	}
	if col.NotNullColumn != "" {
		m.NotNullColumns = splitCSV(col.NotNullColumn)
	}
	return m
}

func (b *Builder) resolveCaches() (map[string]cache.Cache, error) {
	out := make(map[string]cache.Cache, len(b.cacheDocs)+len(b.cacheRefs))
	for ns, doc := range b.cacheDocs {
		c, err := buildCacheChain(ns, doc)
		if err != nil {
			return nil, err
		}
		out[ns] = c
	}
	for ns, target := range b.cacheRefs {
		resolved, ok := out[target]
		if !ok {
			return nil, xerrors.IncompleteReference("binding: namespace %q's cacheRef %q never defined a cache", ns, target)
		}
		out[ns] = resolved
	}
	return out, nil
}

// buildCacheChain constructs the decorator stack a mapper's <cache>
// element describes: a backing store chosen by Type, Serialized unless
// ReadOnly, Blocking if requested, then always Synchronized and Logging —
// spec.md §4.11's "Decorator stack... data-driven from the mapper
// document's cache element."
func buildCacheChain(namespace string, doc *CacheDocument) (cache.Cache, error) {
	// doc.Size means different units for different backing stores: LRU
	// (ccache) sizes by entry count, while FIFO and SOFT size their
	// byte-arena backing libraries (freecache, fastcache) in kilobytes.
	size := doc.Size
	if size <= 0 {
		size = 1024
	}
	flush, _ := time.ParseDuration(doc.FlushInterval)

	var base cache.Cache
	switch strings.ToUpper(doc.Type) {
	case "FIFO":
		base = cache.NewFIFO(namespace, size*1024)
	case "SOFT":
		base = cache.NewSoft(namespace, size*1024)
	case "WEAK":
		ttl := flush
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		w, err := cache.NewWeak(namespace, ttl)
		if err != nil {
			return nil, xerrors.Build("binding: building weak cache for %q: %v", namespace, err)
		}
		base = w
	case "SCHEDULED":
		interval := flush
		if interval <= 0 {
			interval = time.Minute
		}
		base = cache.NewScheduled(namespace, interval, interval)
	case "", "LRU":
		base = cache.NewLRU(namespace, int64(size))
	default:
		return nil, xerrors.Build("binding: namespace %q: unknown cache type %q", namespace, doc.Type)
	}

	c := base
	if !doc.ReadOnly {
		c = cache.NewSerialized(c)
	}
	if doc.Blocking {
		c = cache.NewBlocking(c)
	}
	c = cache.NewSynchronized(c)
	c = cache.NewLogging(c, 1000)
	return c, nil
}
