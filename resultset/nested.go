package resultset

import (
	"context"
	"reflect"
	"strings"

	"github.com/gobatis/gobatis/binding"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/reflection"
	"github.com/gobatis/gobatis/statement"
)

// applyAssociations resolves every non-collection nested mapping of rm
// against rv: an eager join (NestedResultMap) recurses into mapRow using
// the same raw row under a column prefix; a nested select resolves
// eagerly or is wrapped in a Deferred for lazy resolution.
func (h *Handler) applyAssociations(ctx context.Context, rm *statement.ResultMap, raw []any, colIndex map[string]int, prefix string, rv reflect.Value, topLevel bool) error {
	for _, m := range rm.Mappings {
		if m.IsCollection {
			continue
		}
		switch {
		case m.NestedResultMap != "":
			if err := h.applyEagerAssociation(ctx, m, raw, colIndex, prefix, rv); err != nil {
				return err
			}
		case m.NestedSelect != "":
			if err := h.applyNestedSelect(ctx, m, rv, raw, colIndex, prefix, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// appendCollections resolves every collection mapping of rm against
// target, appending to (or initializing) the target slice property.
// Called both for newly constructed parents and for parents reused from
// the row cache, since a later row may contribute another child.
func (h *Handler) appendCollections(ctx context.Context, rm *statement.ResultMap, raw []any, colIndex map[string]int, prefix string, target any) error {
	rv := reflect.ValueOf(target).Elem()
	for _, m := range rm.Mappings {
		if !m.IsCollection {
			continue
		}
		switch {
		case m.NestedResultMap != "":
			if err := h.appendEagerCollectionChild(ctx, m, raw, colIndex, prefix, rv); err != nil {
				return err
			}
		case m.NestedSelect != "":
			if err := h.applyNestedSelect(ctx, m, rv, raw, colIndex, prefix, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) applyEagerAssociation(ctx context.Context, m statement.ResultMapping, raw []any, colIndex map[string]int, prefix string, parent reflect.Value) error {
	if !nestedRowPresent(m, raw, colIndex, prefix) {
		return nil
	}
	childRM, err := h.cfg.ResultMap(m.NestedResultMap)
	if err != nil {
		return err
	}
	childPrefix := prefix + m.ColumnPrefix
	child, _, _, err := h.mapRow(ctx, childRM, raw, colIndex, childPrefix, make(rowCache), false, nil)
	if err != nil {
		return err
	}
	if child == nil {
		return nil
	}
	return setProperty(parent, m.Property, reflect.ValueOf(child))
}

func (h *Handler) appendEagerCollectionChild(ctx context.Context, m statement.ResultMapping, raw []any, colIndex map[string]int, prefix string, parent reflect.Value) error {
	if !nestedRowPresent(m, raw, colIndex, prefix) {
		return nil
	}
	childRM, err := h.cfg.ResultMap(m.NestedResultMap)
	if err != nil {
		return err
	}
	childPrefix := prefix + m.ColumnPrefix
	child, _, isNew, err := h.mapRow(ctx, childRM, raw, colIndex, childPrefix, make(rowCache), false, nil)
	if err != nil {
		return err
	}
	if child == nil || !isNew {
		return nil
	}
	return appendToSlice(parent, m.Property, child)
}

// nestedRowPresent reports whether this joined row actually carries a
// child at all (its notNullColumn, or its first mapped column, is
// non-null); a left join with no match must not synthesize an empty child.
func nestedRowPresent(m statement.ResultMapping, raw []any, colIndex map[string]int, prefix string) bool {
	checks := m.NotNullColumns
	if len(checks) == 0 && m.Column != "" {
		checks = []string{m.Column}
	}
	if len(checks) == 0 {
		return true
	}
	for _, col := range checks {
		idx, ok := colIndex[strings.ToLower(prefix+m.ColumnPrefix+col)]
		if ok && raw[idx] != nil {
			return true
		}
	}
	return false
}

// applyNestedSelect resolves m's nested select statement, eagerly or by
// wrapping a *Deferred in the target property, using the current row's
// m.Column value as the statement's parameter.
func (h *Handler) applyNestedSelect(ctx context.Context, m statement.ResultMapping, parent reflect.Value, raw []any, colIndex map[string]int, prefix string, collection bool) error {
	idx, ok := colIndex[strings.ToLower(prefix+m.Column)]
	if !ok {
		return nil
	}
	param := raw[idx]
	if param == nil {
		return nil
	}

	load := func(ctx context.Context) ([]any, error) {
		if h.nested == nil {
			return nil, xerrors.Build("resultset: nested select %q requires a NestedExecutor", m.NestedSelect)
		}
		return h.nested.Query(ctx, m.NestedSelect, param)
	}

	if !m.Lazy {
		rows, err := load(ctx)
		if err != nil {
			return err
		}
		return assignNestedResult(parent, m, rows, collection)
	}

	deferred := NewDeferred(load)
	field, err := navigateTo(parent, m.Property)
	if err != nil {
		return err
	}
	field.Set(reflect.ValueOf(deferred))
	return nil
}

func assignNestedResult(parent reflect.Value, m statement.ResultMapping, rows []any, collection bool) error {
	if collection {
		for _, row := range rows {
			if err := appendToSlice(parent, m.Property, row); err != nil {
				return err
			}
		}
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	return setProperty(parent, m.Property, reflect.ValueOf(rows[0]))
}

func setProperty(rv reflect.Value, path string, value reflect.Value) error {
	target, err := navigateTo(rv, path)
	if err != nil {
		return err
	}
	for value.Kind() == reflect.Pointer && target.Kind() != reflect.Pointer {
		value = value.Elem()
	}
	if !value.Type().AssignableTo(target.Type()) {
		if value.Type().ConvertibleTo(target.Type()) {
			value = value.Convert(target.Type())
		} else {
			return xerrors.TypeConversion("resultset: cannot assign %s to property %q of type %s", value.Type(), path, target.Type())
		}
	}
	target.Set(value)
	return nil
}

func appendToSlice(rv reflect.Value, path string, elem any) error {
	target, err := navigateTo(rv, path)
	if err != nil {
		return err
	}
	if target.Kind() != reflect.Slice {
		return xerrors.Build("resultset: property %q is not a slice", path)
	}
	ev := reflect.ValueOf(elem)
	elemType := target.Type().Elem()
	for ev.Kind() == reflect.Pointer && elemType.Kind() != reflect.Pointer {
		ev = ev.Elem()
	}
	if !ev.Type().AssignableTo(elemType) && ev.Type().ConvertibleTo(elemType) {
		ev = ev.Convert(elemType)
	}
	target.Set(reflect.Append(target, ev))
	return nil
}

// applyAutoMapping binds columns with no explicit mapping to same-named
// fields, subject to the configured AutoMappingBehavior: NONE maps
// nothing, PARTIAL only at the top level, FULL at every nesting level.
func (h *Handler) applyAutoMapping(rm *statement.ResultMap, raw []any, colIndex map[string]int, prefix string, rv reflect.Value, topLevel bool) error {
	behavior := h.cfg.Settings.AutoMappingBehavior
	allowed := behavior == binding.AutoMappingFull || (behavior == binding.AutoMappingPartial && topLevel)
	if !allowed {
		return nil
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	mapped := make(map[string]bool, len(rm.Mappings))
	for _, m := range rm.Mappings {
		mapped[strings.ToLower(prefix+m.Column)] = true
	}

	meta, err := reflection.Of(rv.Addr().Type())
	if err != nil {
		return err
	}

	for lowerCol, idx := range colIndex {
		if mapped[lowerCol] || !strings.HasPrefix(lowerCol, strings.ToLower(prefix)) {
			continue
		}
		bare := lowerCol[len(prefix):]
		if raw[idx] == nil {
			continue
		}
		_, fi, ok := meta.FieldByColumn(bare)
		if !ok {
			continue
		}
		field := meta.FieldValue(rv.Addr(), fi)
		converted, err := h.convert(field.Type(), "", raw[idx])
		if err != nil {
			return err
		}
		if converted == nil {
			continue
		}
		cv := reflect.ValueOf(converted)
		if cv.Type() != field.Type() && cv.Type().ConvertibleTo(field.Type()) {
			cv = cv.Convert(field.Type())
		}
		if cv.Type().AssignableTo(field.Type()) {
			field.Set(cv)
		}
	}
	return nil
}
