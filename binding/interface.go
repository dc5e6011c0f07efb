package binding

import (
	"context"
	"reflect"

	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/statement"
)

// ReturnKind classifies what a mapper method's result disposition is:
// spec.md §9's re-architected interface-method binding, since Go has no
// annotation mechanism to read this off the interface itself.
type ReturnKind int

const (
	ReturnSingle ReturnKind = iota
	ReturnList
	ReturnMap
	ReturnCursor
	ReturnOptional
	ReturnVoid
)

// MethodConfig is one entry of the caller-supplied descriptor table that
// replaces interface-annotation-driven binding: which statement a method
// dispatches to, how its positional Go parameters map onto the
// statement's named bindings, and how its result is shaped.
type MethodConfig struct {
	StatementID string
	ParamNames  []string // positional parameter i binds under ParamNames[i]; empty uses "_parameter" when there's exactly one parameter (besides a leading context.Context)
	Returns     ReturnKind
	MapKey      string // property name used as the key when Returns == ReturnMap
}

// ResolvedMethod pairs one interface method with its statement and config,
// validated against the interface's actual signature at registration time.
type ResolvedMethod struct {
	Config    MethodConfig
	Statement *statement.MappedStatement
	Method    reflect.Method
}

// MapperDescriptor is the per-interface dispatch table a session facade
// routes calls through: method name -> resolved statement + shape, a table
// lookup standing in for the reflective proxy MyBatis-family runtimes use
// in languages with dynamic dispatch.
type MapperDescriptor struct {
	Interface reflect.Type
	Methods   map[string]*ResolvedMethod
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// BindMapper validates methods against mapperType's method set and
// resolves each entry's statement id against cfg, producing the
// descriptor table a session facade dispatches through.
func BindMapper(cfg *Configuration, mapperType reflect.Type, methods map[string]MethodConfig) (*MapperDescriptor, error) {
	if mapperType.Kind() != reflect.Interface {
		return nil, xerrors.Binding("binding: %s is not an interface type", mapperType)
	}

	resolved := make(map[string]*ResolvedMethod, len(methods))
	for name, mc := range methods {
		method, ok := mapperType.MethodByName(name)
		if !ok {
			return nil, xerrors.Binding("binding: %s has no method %q", mapperType, name)
		}
		ms, err := cfg.MappedStatement(mc.StatementID)
		if err != nil {
			return nil, xerrors.Binding("binding: %s.%s: %v", mapperType, name, err)
		}
		if mc.Returns == ReturnMap && mc.MapKey == "" {
			return nil, xerrors.Binding("binding: %s.%s: ReturnMap requires MapKey", mapperType, name)
		}
		resolved[name] = &ResolvedMethod{Config: mc, Statement: ms, Method: method}
	}

	for i := 0; i < mapperType.NumMethod(); i++ {
		name := mapperType.Method(i).Name
		if _, ok := resolved[name]; !ok {
			return nil, xerrors.Binding("binding: %s.%s has no MethodConfig entry", mapperType, name)
		}
	}

	return &MapperDescriptor{Interface: mapperType, Methods: resolved}, nil
}

// BindParameters maps a method's actual Go argument values onto a name ->
// value table using the method's ParamNames (skipping a leading
// context.Context argument, which callers use for cancellation/timeouts
// rather than as a bound value).
func (m *ResolvedMethod) BindParameters(args []reflect.Value) map[string]any {
	values := args
	if len(values) > 0 && values[0].Type().Implements(contextType) {
		values = values[1:]
	}

	bound := make(map[string]any, len(values))
	if len(values) == 1 && len(m.Config.ParamNames) == 0 {
		bound["_parameter"] = values[0].Interface()
		return bound
	}
	for i, v := range values {
		name := "_parameter"
		if i < len(m.Config.ParamNames) {
			name = m.Config.ParamNames[i]
		}
		bound[name] = v.Interface()
	}
	return bound
}
