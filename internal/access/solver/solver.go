package solver

import (
	"fmt"

	"github.com/stokaro/exoptah/internal/access/ir"
)

// Solution is the sum `Solved(predicate) | Unsolvable(predicate)` of
// spec.md §6: callers treat Unsolvable as equivalent to True to be safe.
type Solution struct {
	Solved     bool
	Predicate  AbstractPredicate
}

func solved(p AbstractPredicate) Solution     { return Solution{Solved: true, Predicate: p} }
func unsolvable(p AbstractPredicate) Solution { return Solution{Solved: false, Predicate: p} }

// Resolve returns the predicate callers should act on: the Solved
// predicate if solving succeeded, else True (spec.md §6).
func (s Solution) Resolve() AbstractPredicate {
	if s.Solved {
		return s.Predicate
	}
	return True
}

// Solver reduces compiled access predicates to an AbstractPredicate.
type Solver struct{}

func New() *Solver { return &Solver{} }

// ---- Database (read-time) solving ----

// SolveDatabase reduces a read-access predicate to a residual predicate a
// SQL WHERE clause can finish evaluating.
func (s *Solver) SolveDatabase(rc RequestContext, expr *ir.DatabaseExpr) (Solution, error) {
	switch expr.Kind {
	case ir.DBBooleanLiteral:
		return solved(boolPredicate(expr.Bool)), nil
	case ir.DBLogicalOp:
		return s.solveDatabaseLogical(rc, expr)
	case ir.DBRelationalOp:
		return s.solveDatabaseRelational(rc, expr)
	default:
		return Solution{}, fmt.Errorf("%w: unknown database expr kind %d", ErrUnsupportedExpression, expr.Kind)
	}
}

func (s *Solver) solveDatabaseLogical(rc RequestContext, expr *ir.DatabaseExpr) (Solution, error) {
	left, err := s.SolveDatabase(rc, expr.LogicalLeft)
	if err != nil {
		return Solution{}, err
	}
	switch expr.Logical {
	case ir.LogicalNot:
		if !left.Solved {
			return unsolvable(Not(left.Predicate)), nil
		}
		return solved(Not(left.Predicate)), nil
	case ir.LogicalAnd:
		if left.Solved && left.Predicate.IsFalse() {
			return solved(False), nil
		}
		right, err := s.SolveDatabase(rc, expr.LogicalRight)
		if err != nil {
			return Solution{}, err
		}
		if right.Solved && right.Predicate.IsFalse() {
			return solved(False), nil
		}
		both := left.Solved && right.Solved
		combined := And(left.Predicate, right.Predicate)
		if both {
			return solved(combined), nil
		}
		return unsolvable(combined), nil
	case ir.LogicalOr:
		if left.Solved && left.Predicate.IsTrue() {
			return solved(True), nil
		}
		right, err := s.SolveDatabase(rc, expr.LogicalRight)
		if err != nil {
			return Solution{}, err
		}
		if right.Solved && right.Predicate.IsTrue() {
			return solved(True), nil
		}
		both := left.Solved && right.Solved
		combined := Or(left.Predicate, right.Predicate)
		if both {
			return solved(combined), nil
		}
		return unsolvable(combined), nil
	default:
		return Solution{}, fmt.Errorf("%w: unknown logical kind", ErrUnsupportedExpression)
	}
}

func boolPredicate(b bool) AbstractPredicate {
	if b {
		return True
	}
	return False
}

// solvedDBPrimitive is the reduced form of a database primitive: either a
// definite value, a still-unresolved column, or a nested predicate (for a
// `some` function call).
type solvedDBPrimitive struct {
	kind  solvedKind
	value Value
	path  ir.ColumnPath
	alias string
	pred  *AbstractPredicate
}

type solvedKind int

const (
	solvedCommon solvedKind = iota
	solvedColumn
	solvedPredicate
)

func (s *Solver) reduceDatabasePrimitive(rc RequestContext, p ir.DatabasePrimitive) (solvedDBPrimitive, error) {
	switch p.Kind {
	case ir.DBCommon:
		v, err := reduceCommon(rc, p.Common)
		if err != nil {
			return solvedDBPrimitive{}, err
		}
		return solvedDBPrimitive{kind: solvedCommon, value: v}, nil
	case ir.DBColumn:
		return solvedDBPrimitive{kind: solvedColumn, path: p.Column, alias: p.ParameterAlias}, nil
	case ir.DBFunction:
		sol, err := s.SolveDatabase(rc, p.FunctionBody)
		if err != nil {
			return solvedDBPrimitive{}, err
		}
		pr := sol.Resolve()
		return solvedDBPrimitive{kind: solvedPredicate, pred: &pr}, nil
	default:
		return solvedDBPrimitive{}, fmt.Errorf("%w: unknown primitive kind", ErrUnsupportedExpression)
	}
}

func reduceCommon(rc RequestContext, c ir.Common) (Value, error) {
	switch c.Kind {
	case ir.CommonContextSelection:
		v, ok, err := rc.Resolve(c.ContextName, c.FieldName)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Null(), nil
		}
		return v, nil
	case ir.CommonNumber:
		var f float64
		_, err := fmt.Sscanf(c.Number, "%g", &f)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrCastFailure, c.Number)
		}
		return Number(f), nil
	case ir.CommonString:
		return Str(c.String), nil
	case ir.CommonBoolean:
		return Bool(c.Boolean), nil
	case ir.CommonNull:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown common kind", ErrUnsupportedExpression)
	}
}

func (s *Solver) solveDatabaseRelational(rc RequestContext, expr *ir.DatabaseExpr) (Solution, error) {
	left, err := s.reduceDatabasePrimitive(rc, expr.RelationalLeft)
	if err != nil {
		return Solution{}, err
	}
	right, err := s.reduceDatabasePrimitive(rc, expr.RelationalRight)
	if err != nil {
		return Solution{}, err
	}
	return combineDB(expr.Relational, left, right)
}

func combineDB(kind ir.RelationalKind, left, right solvedDBPrimitive) (Solution, error) {
	rk := toRelKind(kind)

	// Both sides concrete values: decide definitively.
	if left.kind == solvedCommon && right.kind == solvedCommon {
		b, err := evalValues(kind, left.value, right.value)
		if err != nil {
			return Solution{}, err
		}
		return solved(boolPredicate(b)), nil
	}

	// A missing context value (Common(None)) on either side collapses the
	// whole comparison to False rather than becoming a "column IS NULL"
	// SQL predicate (spec.md §4.4: "Comparisons between Common(None) and
	// any other side reduce to False (unsolvable)").
	if (left.kind == solvedCommon && left.value.IsNull()) || (right.kind == solvedCommon && right.value.IsNull()) {
		return unsolvable(False), nil
	}

	leftOperand, leftOK := dbOperand(left)
	rightOperand, rightOK := dbOperand(right)
	if leftOK && rightOK {
		return solved(Relational(rk, leftOperand, rightOperand)), nil
	}
	// dbOperand has no operand for one side's kind; conservatively unsolvable.
	return unsolvable(Relational(rk, leftOperand, rightOperand)), nil
}

func dbOperand(p solvedDBPrimitive) (ColumnOperand, bool) {
	switch p.kind {
	case solvedCommon:
		// combineDB short-circuits any null Common before calling
		// dbOperand, so p.value is never null here; Null() is kept only
		// so this function stays total.
		if p.value.IsNull() {
			return Null(), true
		}
		return Param(valueToAny(p.value)), true
	case solvedColumn:
		link, _ := p.path.SplitHead()
		_ = link
		last := p.path.Links[len(p.path.Links)-1]
		table := ""
		if len(p.path.Links) > 1 {
			table = p.path.Links[len(p.path.Links)-2].TargetTable.Name
		}
		return Physical(table, p.alias, last.Column), true
	case solvedPredicate:
		return Embed(*p.pred), true
	default:
		return ColumnOperand{}, false
	}
}

func valueToAny(v Value) any {
	switch v.Kind {
	case VBool:
		return v.Bool
	case VNumber:
		return v.Number
	case VString:
		return v.String
	case VList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = valueToAny(e)
		}
		return out
	default:
		return nil
	}
}

func toRelKind(k ir.RelationalKind) RelKind {
	switch k {
	case ir.RelEq:
		return Eq
	case ir.RelNeq:
		return Neq
	case ir.RelLt:
		return Lt
	case ir.RelLte:
		return Lte
	case ir.RelGt:
		return Gt
	case ir.RelGte:
		return Gte
	case ir.RelIn:
		return In
	default:
		return Eq
	}
}

func evalValues(kind ir.RelationalKind, a, b Value) (bool, error) {
	switch kind {
	case ir.RelEq:
		if a.IsNull() || b.IsNull() {
			// spec.md §4.4: "Comparisons between Common(None) and any
			// other side reduce to False (unsolvable)".
			return false, nil
		}
		return a.Equal(b), nil
	case ir.RelNeq:
		if a.IsNull() || b.IsNull() {
			return false, nil
		}
		return !a.Equal(b), nil
	case ir.RelLt:
		return Less(a, b)
	case ir.RelLte:
		lt, err := Less(a, b)
		if err != nil {
			return false, err
		}
		return lt || a.Equal(b), nil
	case ir.RelGt:
		lt, err := Less(b, a)
		return lt, err
	case ir.RelGte:
		lt, err := Less(b, a)
		if err != nil {
			return false, err
		}
		return lt || a.Equal(b), nil
	case ir.RelIn:
		return In(a, b), nil
	default:
		return false, fmt.Errorf("%w: unknown relational kind", ErrUnsupportedExpression)
	}
}
