// Package resultset turns *sql.Rows into Go values: column discovery,
// auto-mapping, nested result maps (joined and lazily-loaded), discriminators,
// and multiple result sets. Grounded on spec.md §4.10; no direct teacher or
// pack analogue exists for nested-row grouping, so the row-construction
// idiom (reflect.New + field set, errors via internal/xerrors) follows the
// teacher's general reflection/error conventions instead of a specific file.
package resultset

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/reflection"
	"github.com/gobatis/gobatis/statement"
	"github.com/gobatis/gobatis/typehandler"
)

// NestedExecutor runs a nested select statement for an association or
// collection mapping. The executor/session layer implements this; resultset
// depends only on the interface to avoid importing back up the stack.
type NestedExecutor interface {
	Query(ctx context.Context, statementID string, param any) ([]any, error)
}

// Handler maps result sets for one Configuration's worth of result maps.
type Handler struct {
	cfg    *binding.Configuration
	nested NestedExecutor
}

// NewHandler builds a Handler. nested may be nil if the caller never
// expects nested-select associations/collections to resolve (a build-time
// guarantee the caller is responsible for).
func NewHandler(cfg *binding.Configuration, nested NestedExecutor) *Handler {
	return &Handler{cfg: cfg, nested: nested}
}

// rowCache deduplicates parent objects across rows within one execution,
// keyed by result-map id plus the parent's ID-column values.
type rowCache map[string]any

// HandleRows consumes rows to completion (closing it) and returns one Go
// value per distinct top-level object, in first-seen order. target is the
// element type to construct when ms declares no result map (resultType
// only, or no mapping information at all).
func (h *Handler) HandleRows(ctx context.Context, ms *statement.MappedStatement, rows *sql.Rows, target reflect.Type) ([]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, xerrors.Execution(err, ms.ID, "read columns", "")
	}
	colIndex := make(map[string]int, len(columns))
	for i, c := range columns {
		colIndex[strings.ToLower(c)] = i
	}

	rm, err := h.resolveResultMap(ms)
	if err != nil {
		return nil, err
	}

	cache := make(rowCache)
	var order []string
	results := make(map[string]any)

	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, xerrors.Execution(err, ms.ID, "scan row", "")
		}

		obj, key, isNew, err := h.mapRow(ctx, rm, raw, colIndex, "", cache, true, target)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			continue
		}
		if isNew {
			if key == "" {
				key = fmt.Sprintf("#%d", len(order))
			}
			order = append(order, key)
			results[key] = obj
		}
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Execution(err, ms.ID, "iterate rows", "")
	}

	out := make([]any, 0, len(order))
	for _, k := range order {
		out = append(out, results[k])
	}
	return out, nil
}

// resolveResultMap picks the result map governing ms's output: the first
// declared resultMap id, or (failing that) a synthetic map with no
// declared Type, which mapRow then falls back to its caller-supplied
// target type for.
func (h *Handler) resolveResultMap(ms *statement.MappedStatement) (*statement.ResultMap, error) {
	if len(ms.ResultMapIDs) > 0 {
		return h.cfg.ResultMap(ms.ResultMapIDs[0])
	}
	return &statement.ResultMap{ID: ms.ID + "$auto"}, nil
}

// mapRow maps one raw row against rm, honoring rm's discriminator, and
// returns the constructed (or reused, from cache) object, its dedup key,
// and whether it was newly constructed this call. fallback supplies the
// Go type when rm declares none (the top-level call's target type; nested
// calls always resolve their own declared Type).
func (h *Handler) mapRow(ctx context.Context, rm *statement.ResultMap, raw []any, colIndex map[string]int, prefix string, cache rowCache, topLevel bool, fallback reflect.Type) (any, string, bool, error) {
	rm, err := h.applyDiscriminator(rm, raw, colIndex, prefix)
	if err != nil {
		return nil, "", false, err
	}

	targetType, err := h.resolveGoType(rm.Type, fallback)
	if err != nil {
		return nil, "", false, err
	}

	key := dedupKey(rm, raw, colIndex, prefix)
	if key != "" {
		if existing, ok := cache[rm.ID+"|"+key]; ok {
			if err := h.appendCollections(ctx, rm, raw, colIndex, prefix, existing); err != nil {
				return nil, "", false, err
			}
			return existing, key, false, nil
		}
	}

	rv := reflect.New(targetType).Elem()
	anyNonNull := false

	for _, m := range rm.Mappings {
		if m.NestedResultMap != "" || m.NestedSelect != "" {
			continue // handled by association/collection passes below
		}
		col := prefix + m.Column
		idx, ok := colIndex[strings.ToLower(col)]
		if !ok {
			continue
		}
		val := raw[idx]
		if val != nil && (m.Flag == statement.FlagID || m.Flag == statement.FlagConstructor) {
			anyNonNull = true
		}
		if err := h.setField(rv, m.Property, m.GoType, m.TypeHandler, val); err != nil {
			return nil, "", false, err
		}
	}

	if !anyNonNull && !hasIDMapping(rm) {
		// no ID mappings declared: fall back to "any non-constructor mapping
		// is non-null" per spec.md §4.10's empty-row rule.
		for _, m := range rm.Mappings {
			if m.NestedResultMap != "" || m.NestedSelect != "" {
				continue
			}
			idx, ok := colIndex[strings.ToLower(prefix+m.Column)]
			if ok && raw[idx] != nil {
				anyNonNull = true
				break
			}
		}
	}
	if !anyNonNull && len(rm.Mappings) > 0 {
		return nil, "", false, nil
	}

	if err := h.applyAssociations(ctx, rm, raw, colIndex, prefix, rv, topLevel); err != nil {
		return nil, "", false, err
	}
	if err := h.applyAutoMapping(rm, raw, colIndex, prefix, rv, topLevel); err != nil {
		return nil, "", false, err
	}

	result := rv.Addr().Interface()
	if key != "" {
		cache[rm.ID+"|"+key] = result
	}
	if err := h.appendCollections(ctx, rm, raw, colIndex, prefix, result); err != nil {
		return nil, "", false, err
	}
	return result, key, true, nil
}

func hasIDMapping(rm *statement.ResultMap) bool {
	for _, m := range rm.Mappings {
		if m.Flag == statement.FlagID {
			return true
		}
	}
	return false
}

// dedupKey composes the row's identity from its ID-flagged mappings, so
// nested joined rows group correctly. A result map with no ID mapping
// yields "", and rows under it are never merged.
func dedupKey(rm *statement.ResultMap, raw []any, colIndex map[string]int, prefix string) string {
	var b strings.Builder
	found := false
	for _, m := range rm.Mappings {
		if m.Flag != statement.FlagID {
			continue
		}
		found = true
		idx, ok := colIndex[strings.ToLower(prefix+m.Column)]
		if ok {
			fmt.Fprintf(&b, "%v\x1f", raw[idx])
		}
	}
	if !found {
		return "" // no identity declared: every row is its own object, never merged
	}
	return b.String()
}

func (h *Handler) applyDiscriminator(rm *statement.ResultMap, raw []any, colIndex map[string]int, prefix string) (*statement.ResultMap, error) {
	return h.applyDiscriminatorDepth(rm, raw, colIndex, prefix, make(map[string]bool))
}

func (h *Handler) applyDiscriminatorDepth(rm *statement.ResultMap, raw []any, colIndex map[string]int, prefix string, seen map[string]bool) (*statement.ResultMap, error) {
	if rm.Discriminator == nil {
		return rm, nil
	}
	if seen[rm.ID] {
		return nil, xerrors.Build("resultset: result map %q has a cyclic discriminator chain", rm.ID)
	}
	seen[rm.ID] = true

	idx, ok := colIndex[strings.ToLower(prefix+rm.Discriminator.Column)]
	if !ok {
		return rm, nil
	}
	caseID, ok := rm.Discriminator.Cases[fmt.Sprintf("%v", raw[idx])]
	if !ok {
		return rm, nil
	}
	next, err := h.cfg.ResultMap(caseID)
	if err != nil {
		return nil, err
	}
	return h.applyDiscriminatorDepth(next, raw, colIndex, prefix, seen)
}

// setField writes val (after type-handler conversion) into rv's property
// path, which may be dotted ("Address.City") to reach a nested struct.
func (h *Handler) setField(rv reflect.Value, path, goType, handlerName string, val any) error {
	target, err := navigateTo(rv, path)
	if err != nil {
		return err
	}
	converted, err := h.convert(target.Type(), handlerName, val)
	if err != nil {
		return err
	}
	if converted == nil {
		return nil
	}
	cv := reflect.ValueOf(converted)
	if cv.Type() != target.Type() && cv.Type().ConvertibleTo(target.Type()) {
		cv = cv.Convert(target.Type())
	}
	if !cv.Type().AssignableTo(target.Type()) {
		return xerrors.TypeConversion("resultset: cannot assign %s to property %q of type %s", cv.Type(), path, target.Type())
	}
	target.Set(cv)
	return nil
}

func navigateTo(rv reflect.Value, path string) (reflect.Value, error) {
	segments := strings.Split(path, ".")
	cur := rv
	for _, seg := range segments {
		for cur.Kind() == reflect.Pointer {
			if cur.IsNil() {
				cur.Set(reflect.New(cur.Type().Elem()))
			}
			cur = cur.Elem()
		}
		meta, err := reflection.Of(cur.Addr().Type())
		if err != nil {
			return reflect.Value{}, err
		}
		_, idx, ok := meta.FieldByName(seg)
		if !ok {
			return reflect.Value{}, xerrors.Reflection("resultset: %s has no field %q", cur.Type(), seg)
		}
		cur = meta.FieldValue(cur.Addr(), idx)
	}
	return cur, nil
}

func (h *Handler) convert(goType reflect.Type, handlerName string, val any) (any, error) {
	var handler typehandler.Handler
	var err error
	if handlerName != "" {
		if named, ok := h.cfg.TypeHandlers.Named(handlerName); ok {
			handler = named
		}
	}
	if handler == nil {
		handler, err = h.cfg.TypeHandlers.Lookup(goType, "")
		if err != nil {
			handler = h.cfg.TypeHandlers.Unknown()
		}
	}
	return handler.GetResult(val)
}

func (h *Handler) resolveGoType(typeName string, fallback reflect.Type) (reflect.Type, error) {
	if typeName == "" {
		if fallback != nil {
			return fallback, nil
		}
		return reflect.TypeOf(map[string]any{}), nil
	}
	if t, ok := h.cfg.TypeAliases[typeName]; ok {
		return t, nil
	}
	return nil, xerrors.Build("resultset: unresolved go type alias %q", typeName)
}
