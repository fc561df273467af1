// Package diagnostic defines the error-reporting vocabulary shared by the
// resolver and access compiler: structured, span-carrying diagnostics that
// accumulate instead of aborting the first time something goes wrong.
package diagnostic

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Level classifies how serious a Diagnostic is. Only Error fails a build.
type Level int

const (
	Error Level = iota
	Warning
	Note
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Span is a half-open byte range into a single source text, used to anchor
// a Diagnostic at the construct that caused it. A zero Span means
// "no specific location" rather than pointing at byte 0.
type Span struct {
	Start, End int
	Valid      bool
}

// NewSpan builds a Span covering [start, end).
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end, Valid: true}
}

// synthetic is the single "no location" Span value, constructed once so
// callers never need a process-wide mutable sentinel (see SPEC_FULL.md §9).
var synthetic = Span{}

// Synthetic returns the shared "no location" Span.
func Synthetic() Span { return synthetic }

// Diagnostic is a single reportable problem found while resolving a model
// or compiling an access expression.
type Diagnostic struct {
	Level   Level
	Code    string
	Message string
	Span    Span
	Notes   []string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s", d.Level)
	if d.Code != "" {
		fmt.Fprintf(&b, " %s", d.Code)
	}
	b.WriteString("] ")
	b.WriteString(d.Message)
	if d.Span.Valid {
		fmt.Fprintf(&b, " (at %d..%d)", d.Span.Start, d.Span.End)
	}
	for _, n := range d.Notes {
		fmt.Fprintf(&b, "\n  note: %s", n)
	}
	return b.String()
}

// Error makes Diagnostic satisfy the error interface so a single Diagnostic
// can be wrapped or returned directly when only one was produced.
func (d Diagnostic) Error() string { return d.String() }

// defaultCode is used for diagnostics raised without a more specific code,
// matching spec.md §7's "each carries... a stable code (C000 unless
// otherwise classified)".
const defaultCode = "C000"

// New builds an Error-level diagnostic with the default code.
func New(message string, span Span) Diagnostic {
	return Diagnostic{Level: Error, Code: defaultCode, Message: message, Span: span}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(span Span, format string, args ...any) Diagnostic {
	return New(fmt.Sprintf(format, args...), span)
}

// WithCode returns a copy of the diagnostic carrying the given stable code.
func (d Diagnostic) WithCode(code string) Diagnostic {
	d.Code = code
	return d
}

// Bag accumulates diagnostics across a resolution or compilation pass. It is
// the Go-idiomatic reading of "accumulate, never panic" (spec.md §4.1
// Failure semantics, §9 "fold-shaped recursion ... explicit (value,
// diagnostics) pair"): every producer appends to a Bag instead of returning
// early, and the caller decides at the end whether the batch succeeded.
type Bag struct {
	diags []Diagnostic
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(d Diagnostic) { b.diags = append(b.diags, d) }

// Addf appends an Error-level diagnostic built from a format string.
func (b *Bag) Addf(span Span, format string, args ...any) {
	b.Add(Newf(span, format, args...))
}

// Warnf appends a Warning-level diagnostic built from a format string.
func (b *Bag) Warnf(span Span, format string, args ...any) {
	b.Add(Diagnostic{Level: Warning, Code: defaultCode, Message: fmt.Sprintf(format, args...), Span: span})
}

// HasErrors reports whether the bag contains at least one Error-level entry.
// A non-empty error list suppresses success per spec.md §4.1.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diags {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// All returns every diagnostic accumulated so far, in insertion order.
func (b *Bag) All() []Diagnostic { return append([]Diagnostic(nil), b.diags...) }

// Err folds the bag's Error-level diagnostics into a single multierr error,
// or nil if there are none. Warnings and notes are not included: they do
// not fail the build (spec.md §6 "Errors fail the build; warnings do not").
func (b *Bag) Err() error {
	var err error
	for _, d := range b.diags {
		if d.Level == Error {
			err = multierr.Append(err, d)
		}
	}
	return err
}

// Merge appends every diagnostic from other into b.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.diags = append(b.diags, other.diags...)
}
