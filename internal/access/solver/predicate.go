// Package solver reduces a compiled access predicate (internal/access/ir)
// against a request context and, for precheck, an input document, to
// either a definite boolean or a residual predicate the database finishes
// evaluating (spec.md §4.4).
package solver

import "fmt"

// ColumnOperandKind distinguishes the four AbstractPredicate operand
// shapes of spec.md §4.4.
type ColumnOperandKind int

const (
	OperandPhysical ColumnOperandKind = iota // a resolvable column
	OperandParam                              // a typed literal
	OperandNull
	OperandPredicate // a recursive embedding
)

// ColumnOperand is one side of a relational AbstractPredicate.
type ColumnOperand struct {
	Kind ColumnOperandKind

	// Physical: a column reference qualified by Alias when set, else by
	// the bare table name in Table (no schema).
	Table  string
	Alias  string
	Column string

	// Param: a literal value to bind, already typed for the target column.
	Value any

	// Predicate: a fully reduced nested AbstractPredicate (used when a Pk
	// field path contributes a relational residue alongside the core
	// comparison, spec.md §4.4 "composite And(core, relational)").
	Predicate *AbstractPredicate
}

func Physical(table, alias, column string) ColumnOperand {
	return ColumnOperand{Kind: OperandPhysical, Table: table, Alias: alias, Column: column}
}

func Param(v any) ColumnOperand { return ColumnOperand{Kind: OperandParam, Value: v} }

func Null() ColumnOperand { return ColumnOperand{Kind: OperandNull} }

func Embed(p AbstractPredicate) ColumnOperand {
	return ColumnOperand{Kind: OperandPredicate, Predicate: &p}
}

// PredicateKind distinguishes AbstractPredicate's variants.
type PredicateKind int

const (
	PredTrue PredicateKind = iota
	PredFalse
	PredAnd
	PredOr
	PredNot
	PredRelational
)

// RelKind mirrors ir.RelationalKind, redeclared here so this package does
// not need to import internal/access/ir just for the enum.
type RelKind int

const (
	Eq RelKind = iota
	Neq
	Lt
	Lte
	Gt
	Gte
	In
)

func (k RelKind) sqlOp() string {
	switch k {
	case Eq:
		return "="
	case Neq:
		return "<>"
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	case In:
		return "IN"
	default:
		return "?"
	}
}

// AbstractPredicate is the sum type spec.md §4.4 reduces access predicates
// to: boolean literals, And/Or/Not, and relational comparisons over
// ColumnOperand operands.
type AbstractPredicate struct {
	Kind PredicateKind

	And, Or []AbstractPredicate
	Not     *AbstractPredicate

	Rel   RelKind
	Left  ColumnOperand
	Right ColumnOperand
}

var True = AbstractPredicate{Kind: PredTrue}
var False = AbstractPredicate{Kind: PredFalse}

func Relational(kind RelKind, left, right ColumnOperand) AbstractPredicate {
	return AbstractPredicate{Kind: PredRelational, Rel: kind, Left: left, Right: right}
}

// And folds trivial And combinations per spec.md §4.4
// ("And(True, p)=p" etc.), flattening nested Ands for a tidier tree.
func And(parts ...AbstractPredicate) AbstractPredicate {
	var flat []AbstractPredicate
	for _, p := range parts {
		switch p.Kind {
		case PredTrue:
			continue
		case PredFalse:
			return False
		case PredAnd:
			flat = append(flat, p.And...)
		default:
			flat = append(flat, p)
		}
	}
	if len(flat) == 0 {
		return True
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return AbstractPredicate{Kind: PredAnd, And: flat}
}

// Or folds trivial Or combinations, flattening nested Ors.
func Or(parts ...AbstractPredicate) AbstractPredicate {
	var flat []AbstractPredicate
	for _, p := range parts {
		switch p.Kind {
		case PredFalse:
			continue
		case PredTrue:
			return True
		case PredOr:
			flat = append(flat, p.Or...)
		default:
			flat = append(flat, p)
		}
	}
	if len(flat) == 0 {
		return False
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return AbstractPredicate{Kind: PredOr, Or: flat}
}

// Not inverts p, collapsing True/False/double-negation immediately.
func Not(p AbstractPredicate) AbstractPredicate {
	switch p.Kind {
	case PredTrue:
		return False
	case PredFalse:
		return True
	case PredNot:
		return *p.Not
	default:
		return AbstractPredicate{Kind: PredNot, Not: &p}
	}
}

// IsTrue / IsFalse report whether p has already reduced to a definite
// boolean literal.
func (p AbstractPredicate) IsTrue() bool  { return p.Kind == PredTrue }
func (p AbstractPredicate) IsFalse() bool { return p.Kind == PredFalse }

// String renders a residual predicate as the SQL fragment the database
// will finish evaluating (spec.md §4.4 "Residual predicates are evaluated
// by the database to finish the decision").
func (p AbstractPredicate) String() string {
	switch p.Kind {
	case PredTrue:
		return "true"
	case PredFalse:
		return "false"
	case PredNot:
		return fmt.Sprintf("NOT (%s)", p.Not.String())
	case PredAnd:
		return joinPreds(p.And, "AND")
	case PredOr:
		return joinPreds(p.Or, "OR")
	case PredRelational:
		return fmt.Sprintf("%s %s %s", operandString(p.Left), p.Rel.sqlOp(), operandString(p.Right))
	default:
		return "?"
	}
}

func joinPreds(preds []AbstractPredicate, sep string) string {
	if len(preds) == 0 {
		return "true"
	}
	out := "(" + preds[0].String() + ")"
	for _, p := range preds[1:] {
		out += " " + sep + " (" + p.String() + ")"
	}
	return out
}

func operandString(o ColumnOperand) string {
	switch o.Kind {
	case OperandPhysical:
		if o.Alias != "" {
			return fmt.Sprintf("%q.%q", o.Alias, o.Column)
		}
		return fmt.Sprintf("%q.%q", o.Table, o.Column)
	case OperandNull:
		return "NULL"
	case OperandPredicate:
		return o.Predicate.String()
	default:
		return fmt.Sprintf("%v", o.Value)
	}
}
