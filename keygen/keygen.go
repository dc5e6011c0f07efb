// Package keygen implements statement.KeyGenerator: the two strategies
// MyBatis-family runtimes use to populate a generated primary key back
// into the parameter object around an insert. Grounded on spec.md §4.9's
// key-generation hooks and the teacher's reflection/error idiom — no pack
// example implements key generation directly, so the shape (pre/post hook
// pair called around one statement's execution) follows the interface this
// runtime already defines in statement.KeyGenerator.
package keygen

import (
	"context"
	"database/sql"
	"reflect"
	"strings"

	"github.com/gobatis/gobatis/environment"
	"github.com/gobatis/gobatis/internal/xerrors"
	"github.com/gobatis/gobatis/reflection"
	"github.com/gobatis/gobatis/statement"
)

// Identity reads the driver-reported auto-increment id via
// sql.Result.LastInsertId after the insert executes. It supports exactly
// one KeyProperty/KeyColumn pair; MySQL, SQLite, and most embedded drivers
// report only a single generated column this way.
type Identity struct{}

func (Identity) Name() string { return "IdentityKeyGenerator" }

func (Identity) ProcessBefore(context.Context, environment.Queryer, statement.KeyRunner, *statement.MappedStatement, any) error {
	return nil
}

func (Identity) ProcessAfter(_ context.Context, _ environment.Queryer, _ statement.KeyRunner, ms *statement.MappedStatement, param any, result sql.Result) error {
	if len(ms.KeyProperty) == 0 {
		return nil
	}
	if len(ms.KeyProperty) > 1 {
		return xerrors.Build("keygen: identity key generator supports one key property, statement %q declares %d", ms.ID, len(ms.KeyProperty))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return xerrors.Execution(err, ms.ID, "read generated key", "")
	}
	return setKeyProperty(param, ms.KeyProperty[0], id)
}

// SelectKey runs a separate statement that returns exactly one row and one
// column, and writes it into param's KeyProperty, either before or after
// the owning statement executes — the two orderings MyBatis's
// <selectKey order="BEFORE|AFTER"> supports. The statement runs through
// whichever KeyRunner the calling executor supplies at ProcessBefore/
// ProcessAfter time, not a runner fixed at bind time.
type SelectKey struct {
	StatementID string
	Before      bool
}

func (s *SelectKey) Name() string { return "SelectKeyGenerator" }

func (s *SelectKey) ProcessBefore(ctx context.Context, _ environment.Queryer, runner statement.KeyRunner, ms *statement.MappedStatement, param any) error {
	if !s.Before {
		return nil
	}
	return s.run(ctx, runner, ms, param)
}

func (s *SelectKey) ProcessAfter(ctx context.Context, _ environment.Queryer, runner statement.KeyRunner, ms *statement.MappedStatement, param any, _ sql.Result) error {
	if s.Before {
		return nil
	}
	return s.run(ctx, runner, ms, param)
}

func (s *SelectKey) run(ctx context.Context, runner statement.KeyRunner, ms *statement.MappedStatement, param any) error {
	if runner == nil {
		return xerrors.Build("keygen: select-key generator for statement %q has no KeyRunner", ms.ID)
	}
	rows, err := runner.Query(ctx, s.StatementID, param)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return xerrors.Build("keygen: select-key statement %q for %q returned no rows", s.StatementID, ms.ID)
	}
	if len(ms.KeyProperty) == 0 {
		return nil
	}
	return setKeyProperty(param, ms.KeyProperty[0], rows[0])
}

// setKeyProperty writes value into param's dotted property path,
// allocating intermediate nil pointers as needed.
func setKeyProperty(param any, path string, value any) error {
	rv := reflect.ValueOf(param)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return xerrors.Reflection("keygen: parameter object is not addressable (must be a pointer to struct) to receive key property %q", path)
	}

	segments := strings.Split(path, ".")
	cur := rv
	for i, seg := range segments {
		meta, err := reflection.Of(cur.Addr().Type())
		if err != nil {
			return err
		}
		_, idx, ok := meta.FieldByName(seg)
		if !ok {
			return xerrors.Reflection("keygen: %s has no field %q", cur.Type(), seg)
		}
		field := meta.FieldValue(cur.Addr(), idx)
		if i == len(segments)-1 {
			return assignKeyValue(field, value)
		}
		cur = field
	}
	return nil
}

func assignKeyValue(field reflect.Value, value any) error {
	cv := reflect.ValueOf(value)
	if cv.Type() != field.Type() && cv.Type().ConvertibleTo(field.Type()) {
		cv = cv.Convert(field.Type())
	}
	if !cv.Type().AssignableTo(field.Type()) {
		return xerrors.TypeConversion("keygen: cannot assign %s to key property of type %s", cv.Type(), field.Type())
	}
	field.Set(cv)
	return nil
}
