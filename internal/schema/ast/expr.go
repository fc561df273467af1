package ast

import "github.com/stokaro/exoptah/internal/diagnostic"

// Expr is the access-expression grammar consumed by internal/access/compiler
// (spec.md §4.2). It is deliberately small: literals, field selections,
// logical/relational operators, and the single permitted higher-order call
// `some`. List and object literals are accepted here only so the compiler
// can reject them with a precise diagnostic (spec.md §4.2 Failure).
type Expr interface {
	isExpr()
	ExprSpan() diagnostic.Span
}

// BooleanLiteral is `true` / `false`.
type BooleanLiteral struct {
	Value bool
	Span  diagnostic.Span
}

// NumberLiteral is any numeric literal, kept as source text so the compiler
// can parse it into the right primitive type on demand.
type NumberLiteral struct {
	Text string
	Span diagnostic.Span
}

// StringLiteral is a quoted string literal.
type StringLiteral struct {
	Value string
	Span  diagnostic.Span
}

// NullLiteral is the literal `null`.
type NullLiteral struct {
	Span diagnostic.Span
}

// ListLiteral is `[a, b, c]` — rejected in access expressions except where
// explicitly allowed as the RHS of a relational op in source form (the
// compiler desugars it, it never survives into the IR).
type ListLiteral struct {
	Elements []Expr
	Span     diagnostic.Span
}

// ObjectLiteral is `{a: b, ...}` — always rejected in access expressions.
type ObjectLiteral struct {
	Fields map[string]Expr
	Span   diagnostic.Span
}

// FieldSelection is `a.b.c`: a head identifier (self / a bound parameter /
// a context root) followed by zero or more dotted segments, where a segment
// may itself be a higher-order Call (`a.b.some(p => ...)`).
type FieldSelection struct {
	Head    Ident
	Path    []PathSegment
	Span    diagnostic.Span
}

// PathSegment is one `.name` or `.name(...)` hop in a FieldSelection.
type PathSegment struct {
	Name Ident
	// Call is non-nil when this segment is a higher-order invocation, e.g.
	// `.some(p => expr)`.
	Call *Call
}

// Call is a higher-order function invocation: `some(param => body)`. Only
// `some` is permitted by the compiler (spec.md §4.2); other names are kept
// representable here so the compiler can reject them with a diagnostic
// rather than the parser needing to know the allow-list.
type Call struct {
	Name      Ident
	Param     Ident
	Body      Expr
	Span      diagnostic.Span
}

// LogicalKind enumerates the boolean connectives.
type LogicalKind int

const (
	LogicalAnd LogicalKind = iota
	LogicalOr
	LogicalNot
)

// LogicalExpr is `a && b`, `a || b`, or `!a`. Not has a nil Right.
type LogicalExpr struct {
	Kind  LogicalKind
	Left  Expr
	Right Expr // nil for LogicalNot
	Span  diagnostic.Span
}

// RelationalKind enumerates the comparison operators of spec.md §3's
// Access predicate IR.
type RelationalKind int

const (
	RelEq RelationalKind = iota
	RelNeq
	RelLt
	RelLte
	RelGt
	RelGte
	RelIn
)

// RelationalExpr is `lhs op rhs`.
type RelationalExpr struct {
	Kind  RelationalKind
	Left  Expr
	Right Expr
	Span  diagnostic.Span
}

func (BooleanLiteral) isExpr()  {}
func (NumberLiteral) isExpr()   {}
func (StringLiteral) isExpr()   {}
func (NullLiteral) isExpr()     {}
func (ListLiteral) isExpr()     {}
func (ObjectLiteral) isExpr()   {}
func (FieldSelection) isExpr()  {}
func (LogicalExpr) isExpr()     {}
func (RelationalExpr) isExpr()  {}

func (e BooleanLiteral) ExprSpan() diagnostic.Span  { return e.Span }
func (e NumberLiteral) ExprSpan() diagnostic.Span   { return e.Span }
func (e StringLiteral) ExprSpan() diagnostic.Span   { return e.Span }
func (e NullLiteral) ExprSpan() diagnostic.Span     { return e.Span }
func (e ListLiteral) ExprSpan() diagnostic.Span     { return e.Span }
func (e ObjectLiteral) ExprSpan() diagnostic.Span   { return e.Span }
func (e FieldSelection) ExprSpan() diagnostic.Span  { return e.Span }
func (e LogicalExpr) ExprSpan() diagnostic.Span     { return e.Span }
func (e RelationalExpr) ExprSpan() diagnostic.Span  { return e.Span }
