package solver

import "errors"

// Sentinel errors for the runtime solver error taxonomy of spec.md §7.3.
//
// ErrContextMissing is not actually returned to callers: a missing context
// value evaluates to the operand-specific default and solving continues
// (spec.md §7 "ContextMissing (evaluates to the operand-specific
// default)"). It is exported so a ContextExtractor can signal "no such
// context field" distinguishably from other failures.
var (
	ErrContextMissing       = errors.New("solver: context value missing")
	ErrUnsupportedExpression = errors.New("solver: unsupported expression")
	ErrCastFailure          = errors.New("solver: value does not fit target type")
)

// IsContextMissing reports whether err is or wraps ErrContextMissing.
func IsContextMissing(err error) bool { return errors.Is(err, ErrContextMissing) }
