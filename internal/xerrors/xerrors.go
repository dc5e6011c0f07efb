// Package xerrors declares the error kinds used across the runtime and the
// breadcrumb helpers used to attach diagnostics before an error crosses a
// package boundary. All wrapping goes through cockroachdb/errors so callers
// get stack traces and errors.Is/As work against the sentinels below.
package xerrors

import (
	"github.com/cockroachdb/errors"
)

// Sentinel error kinds. Compare with errors.Is, never by string.
var (
	// ErrBinding covers an unknown mapper type or a mapper method lacking a
	// valid statement config for the active database id.
	ErrBinding = errors.New("gobatis: binding error")

	// ErrBuild covers an ill-formed configuration or mapper document.
	ErrBuild = errors.New("gobatis: build error")

	// ErrIncompleteReference covers a forward reference still unresolved at
	// end of build.
	ErrIncompleteReference = errors.New("gobatis: incomplete reference")

	// ErrReflection covers missing fields, ambiguous embedded sets, or
	// unresolvable generic element types.
	ErrReflection = errors.New("gobatis: reflection error")

	// ErrTypeConversion covers a missing handler for a (goType, jdbcType)
	// pair or a failed conversion at bind/read time.
	ErrTypeConversion = errors.New("gobatis: type conversion error")

	// ErrExecution wraps a driver-reported error with diagnostics.
	ErrExecution = errors.New("gobatis: execution error")

	// ErrCache covers a decorator invariant violation.
	ErrCache = errors.New("gobatis: cache error")
)

// Binding wraps err as an ErrBinding, formatting like errors.Newf.
func Binding(format string, args ...any) error {
	return errors.WithStack(errors.Wrapf(ErrBinding, format, args...))
}

// Build wraps err as an ErrBuild.
func Build(format string, args ...any) error {
	return errors.WithStack(errors.Wrapf(ErrBuild, format, args...))
}

// IncompleteReference wraps err as an ErrIncompleteReference.
func IncompleteReference(format string, args ...any) error {
	return errors.WithStack(errors.Wrapf(ErrIncompleteReference, format, args...))
}

// Reflection wraps err as an ErrReflection.
func Reflection(format string, args ...any) error {
	return errors.WithStack(errors.Wrapf(ErrReflection, format, args...))
}

// TypeConversion wraps err as an ErrTypeConversion.
func TypeConversion(format string, args ...any) error {
	return errors.WithStack(errors.Wrapf(ErrTypeConversion, format, args...))
}

// Cache wraps err as an ErrCache.
func Cache(format string, args ...any) error {
	return errors.WithStack(errors.Wrapf(ErrCache, format, args...))
}

// Execution wraps a driver error as ErrExecution and attaches the statement
// id, current activity, and (when safe) the SQL fragment as breadcrumbs.
func Execution(cause error, statementID, activity, sqlFragment string) error {
	wrapped := errors.Wrapf(cause, "%s: statement %q failed during %s", ErrExecution, statementID, activity)
	wrapped = errors.Mark(wrapped, ErrExecution)
	wrapped = errors.WithDetail(wrapped, "statementId="+statementID)
	wrapped = errors.WithDetail(wrapped, "activity="+activity)
	if sqlFragment != "" {
		wrapped = errors.WithDetail(wrapped, "sql="+sqlFragment)
	}
	return wrapped
}

// Is is a re-export of errors.Is for callers that only import xerrors.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is a re-export of errors.As for callers that only import xerrors.
func As(err error, target any) bool { return errors.As(err, target) }
