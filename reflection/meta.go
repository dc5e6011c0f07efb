// Package reflection provides the per-type metadata cache the rest of the
// runtime relies on for parameter binding and result-row construction:
// accessor tables, column-name candidates, and generic element-type
// resolution, computed once per reflect.Type and memoized in a sync.Map —
// grounded on forbearing/gst/internal/reflectmeta/meta.go.
package reflection

import (
	"reflect"
	"strings"
	"sync"

	"github.com/stoewer/go-strcase"

	"github.com/gobatis/gobatis/internal/xerrors"
)

// TypeMeta is the memoized description of one struct type's exported
// fields, keyed by reflect.Type. Immutable after first build.
type TypeMeta struct {
	Type reflect.Type

	fields      []reflect.StructField
	fieldIndex  [][]int // index path, supports embedded structs
	byName      map[string]int
	byFoldName  map[string]int // case-insensitive, snake_case-folded lookup
	byColumnTag map[string]int // "db" struct tag
}

var metaCache sync.Map // map[reflect.Type]*TypeMeta

// Of returns the memoized TypeMeta for t, building it on first access.
// t is dereferenced through any number of pointer levels first.
func Of(t reflect.Type) (*TypeMeta, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, xerrors.Reflection("reflection.Of: %s is not a struct", t)
	}
	if cached, ok := metaCache.Load(t); ok {
		return cached.(*TypeMeta), nil //nolint:errcheck
	}

	m := &TypeMeta{
		Type:        t,
		byName:      make(map[string]int),
		byFoldName:  make(map[string]int),
		byColumnTag: make(map[string]int),
	}

	var walk func(rt reflect.Type, prefix []int, depth int)
	depthOf := make(map[string]int)
	walk = func(rt reflect.Type, prefix []int, depth int) {
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			idx := append(append([]int{}, prefix...), i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				walk(f.Type, idx, depth+1)
				continue
			}

			if prevDepth, exists := depthOf[f.Name]; exists && prevDepth <= depth {
				continue // shallower field already won; ambiguity at equal depth keeps the first seen
			}
			depthOf[f.Name] = depth

			pos := len(m.fields)
			m.fields = append(m.fields, f)
			m.fieldIndex = append(m.fieldIndex, idx)
			m.byName[f.Name] = pos
			m.byFoldName[foldName(f.Name)] = pos

			if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
				m.byColumnTag[tag] = pos
			}
		}
	}
	walk(t, nil, 0)

	actual, _ := metaCache.LoadOrStore(t, m)
	return actual.(*TypeMeta), nil //nolint:errcheck
}

// foldName canonicalizes a Go field name for case-insensitive,
// underscore-agnostic column matching: "UserID" and "user_id" fold equal.
func foldName(name string) string {
	return strings.ToLower(strcase.SnakeCase(name))
}

// NumField returns the number of mapped exported fields (embedded structs
// flattened).
func (m *TypeMeta) NumField() int { return len(m.fields) }

// Field returns the i'th mapped field descriptor.
func (m *TypeMeta) Field(i int) reflect.StructField { return m.fields[i] }

// FieldByName looks up a field by its exact Go name.
func (m *TypeMeta) FieldByName(name string) (reflect.StructField, int, bool) {
	if i, ok := m.byName[name]; ok {
		return m.fields[i], i, true
	}
	return reflect.StructField{}, -1, false
}

// FieldByColumn resolves a SQL column name to a field, trying (in order) an
// explicit `db` tag, an exact Go field name, and finally a folded
// case/underscore-insensitive match — the rule autmapping (spec.md §4.10)
// and parameter property resolution both depend on.
func (m *TypeMeta) FieldByColumn(column string) (reflect.StructField, int, bool) {
	if i, ok := m.byColumnTag[column]; ok {
		return m.fields[i], i, true
	}
	if i, ok := m.byName[column]; ok {
		return m.fields[i], i, true
	}
	if i, ok := m.byFoldName[foldName(column)]; ok {
		return m.fields[i], i, true
	}
	return reflect.StructField{}, -1, false
}

// FieldValue returns the addressable reflect.Value for field i within v,
// which must be a (possibly multiply-indirected) struct of m's Type,
// allocating intermediate nil pointers along embedded paths.
func (m *TypeMeta) FieldValue(v reflect.Value, i int) reflect.Value {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	cur := v
	for _, step := range m.fieldIndex[i] {
		cur = cur.Field(step)
		if cur.Kind() == reflect.Pointer {
			if cur.IsNil() && cur.CanSet() {
				cur.Set(reflect.New(cur.Type().Elem()))
			}
		}
	}
	return cur
}

// ElementType reduces t to its concrete element type, unwrapping pointers
// and slices — the generic-resolution step spec.md §4.1 calls for, narrowed
// to what a statically-typed language needs (Go has no type erasure to
// recover from).
func ElementType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}
}

// IsEmptyValue reports whether v should be treated as "no value" when
// deciding if a constructed row object is non-empty (spec.md §4.10's
// "non-empty if any ID mapping is non-null" rule).
func IsEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	case reflect.Invalid:
		return true
	default:
		return v.IsZero()
	}
}
