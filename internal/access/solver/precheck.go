package solver

import (
	"fmt"

	"github.com/stokaro/exoptah/internal/access/ir"
)

// SolvePrecheck reduces a write-time access predicate against an input
// document, per spec.md §4.4. input may be nil when there is no document
// to check against (e.g. validating a pure read-context expression through
// the same code path); every Path primitive then falls straight through to
// a residual column reference.
func (s *Solver) SolvePrecheck(rc RequestContext, input *AccessInput, expr *ir.PrecheckExpr) (Solution, error) {
	switch expr.Kind {
	case ir.PrecheckBooleanLiteral:
		return solved(boolPredicate(expr.Bool)), nil
	case ir.PrecheckLogicalOp:
		return s.solvePrecheckLogical(rc, input, expr)
	case ir.PrecheckRelationalOp:
		return s.solvePrecheckRelational(rc, input, expr)
	default:
		return Solution{}, fmt.Errorf("%w: unknown precheck expr kind", ErrUnsupportedExpression)
	}
}

func (s *Solver) solvePrecheckLogical(rc RequestContext, input *AccessInput, expr *ir.PrecheckExpr) (Solution, error) {
	left, err := s.SolvePrecheck(rc, input, expr.LogicalLeft)
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
		right, err := s.SolvePrecheck(rc, input, expr.LogicalRight)
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
		right, err := s.SolvePrecheck(rc, input, expr.LogicalRight)
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

type solvedPrecheckKind int

const (
	spCommon solvedPrecheckKind = iota
	spPath
	spPredicate
)

type solvedPrecheckPrimitive struct {
	kind  solvedPrecheckKind
	value Value
	path  ir.AccessPrimitiveExpressionPath
	alias string
	pred  *AbstractPredicate

	// missing is set on a spPath result that is spPath only because the
	// field was genuinely absent from the input document (resolve_path
	// failed to produce a column), as opposed to a Pk path or a nil-input
	// path, both of which are deliberately deferred residual column
	// references rather than missing values.
	missing bool
}

// reducePrecheckPrimitive is the Go analogue of Exograph's
// reduce_primitive_expression (original_source precheck_solver.rs:143),
// adapted to Go's explicit-error-return idiom and to this package's
// AbstractPredicate/Value types instead of exo_sql's.
func (s *Solver) reducePrecheckPrimitive(rc RequestContext, input *AccessInput, p ir.PrecheckPrimitive) (solvedPrecheckPrimitive, error) {
	switch p.Kind {
	case ir.PrecheckCommon:
		v, err := reduceCommon(rc, p.Common)
		if err != nil {
			return solvedPrecheckPrimitive{}, err
		}
		return solvedPrecheckPrimitive{kind: spCommon, value: v}, nil

	case ir.PrecheckPath:
		if p.Path.Field.Kind == ir.FieldPk {
			// Pk paths are resolved by the caller when they show up as the
			// lead of a `some` function; as a bare relational operand they
			// remain unresolved and the column path becomes the residue.
			return solvedPrecheckPrimitive{kind: spPath, path: p.Path, alias: p.ParameterAlias}, nil
		}
		if input == nil {
			return solvedPrecheckPrimitive{kind: spPath, path: p.Path, alias: p.ParameterAlias}, nil
		}
		path := fullInputPath(p.ParameterAlias, p.Path.Field.Normal)
		v, ok, err := input.Resolve(path)
		if err != nil {
			return solvedPrecheckPrimitive{}, err
		}
		if !ok {
			return solvedPrecheckPrimitive{kind: spPath, path: p.Path, alias: p.ParameterAlias, missing: true}, nil
		}
		return solvedPrecheckPrimitive{kind: spCommon, value: v}, nil

	case ir.PrecheckFunction:
		return s.reducePrecheckFunction(rc, input, p)

	default:
		return solvedPrecheckPrimitive{}, fmt.Errorf("%w: unknown primitive kind", ErrUnsupportedExpression)
	}
}

func fullInputPath(parameterAlias string, fieldNames []string) InputPath {
	var elems InputPath
	if parameterAlias != "" {
		elems = append(elems, Prop(parameterAlias))
	}
	elems = append(elems, stringPath(fieldNames)...)
	return elems
}

func (s *Solver) reducePrecheckFunction(rc RequestContext, input *AccessInput, p ir.PrecheckPrimitive) (solvedPrecheckPrimitive, error) {
	fieldPath := p.FunctionPath.Field

	if fieldPath.Kind == ir.FieldPk {
		head, tail := p.FunctionPath.Column.SplitHead()
		if tail == nil {
			return solvedPrecheckPrimitive{}, fmt.Errorf("%w: pk function path has no tail", ErrUnsupportedExpression)
		}

		ignoreMissing := input != nil && input.IgnoreMissingValue
		leadValue, leadFound, err := s.resolveLeadValue(input, fieldPath)
		if err != nil {
			return solvedPrecheckPrimitive{}, err
		}
		if !leadFound {
			return solvedPrecheckPrimitive{kind: spCommon, value: Bool(ignoreMissing)}, nil
		}

		relational, err := s.computeRelationalPredicate(head, fieldPath, leadValue)
		if err != nil {
			return solvedPrecheckPrimitive{}, err
		}

		nestedInput := input
		if input != nil {
			aliases := map[string]InputPath{}
			for k, v := range input.Aliases {
				aliases[k] = v
			}
			aliases[fieldPath.Lead[len(fieldPath.Lead)-1]] = stringPath(fieldPath.Lead)
			nestedInput = &AccessInput{Value: input.Value, IgnoreMissingValue: input.IgnoreMissingValue, Aliases: aliases}
		}

		innerPath := ir.AccessPrimitiveExpressionPath{Column: *tail, Field: fieldPath}
		_ = innerPath
		sol, err := s.SolvePrecheck(rc, nestedInput, p.FunctionBody)
		if err != nil {
			return solvedPrecheckPrimitive{}, err
		}
		pr := And(sol.Resolve(), relational)
		return solvedPrecheckPrimitive{kind: spPredicate, pred: &pr}, nil
	}

	// Non-Pk `some`: iterate the collection found at fieldPath.Normal.
	if input == nil {
		return solvedPrecheckPrimitive{kind: spCommon, value: Bool(false)}, nil
	}
	collection, ok, err := input.Resolve(stringPath(fieldPath.Normal))
	if err != nil {
		return solvedPrecheckPrimitive{}, err
	}
	if !ok {
		return solvedPrecheckPrimitive{kind: spCommon, value: Bool(input.IgnoreMissingValue)}, nil
	}
	if collection.Kind != VList {
		return solvedPrecheckPrimitive{}, fmt.Errorf("%w: some() target is not a list", ErrCastFailure)
	}
	if len(collection.List) == 0 {
		// spec.md §8 scenario 6: "empty some is false".
		return solvedPrecheckPrimitive{kind: spCommon, value: Bool(false)}, nil
	}
	for i := range collection.List {
		itemInput := &AccessInput{
			Value:              input.Value,
			IgnoreMissingValue: input.IgnoreMissingValue,
			Aliases:            map[string]InputPath{p.FunctionPath.Field.Normal[len(p.FunctionPath.Field.Normal)-1] + "$param": append(stringPath(fieldPath.Normal), Index(i))},
		}
		sol, err := s.SolvePrecheck(rc, itemInput, p.FunctionBody)
		if err != nil {
			return solvedPrecheckPrimitive{}, err
		}
		if sol.Solved && sol.Predicate.IsTrue() {
			return solvedPrecheckPrimitive{kind: spCommon, value: Bool(true)}, nil
		}
	}
	return solvedPrecheckPrimitive{kind: spCommon, value: Bool(false)}, nil
}

// resolveLeadValue resolves the lead segment of a Pk field path from the
// input, falling back to the field's own default when the input omits it.
func (s *Solver) resolveLeadValue(input *AccessInput, fp ir.FieldPath) (Value, bool, error) {
	if input == nil {
		return Value{}, false, nil
	}
	v, ok, err := input.Resolve(stringPath(fp.Lead))
	if err != nil {
		return Value{}, false, err
	}
	if ok {
		return v, true, nil
	}
	if fp.LeadDefault != nil {
		switch fp.LeadDefault.Kind {
		case ir.DefaultLiteralBool:
			return Bool(fp.LeadDefault.Bool), true, nil
		case ir.DefaultLiteralNull:
			return Null(), true, nil
		}
	}
	return Value{}, false, nil
}

// computeRelationalPredicate ties the owning side's FK columns to a
// resolved pk value, one equality per column pair, ANDed — the
// "relational residue" spec.md §4.4 describes for Pk field paths.
func (s *Solver) computeRelationalPredicate(head ir.ColumnPathLink, fp ir.FieldPath, leadValue Value) (AbstractPredicate, error) {
	if head.Kind != ir.LinkRelation {
		return True, fmt.Errorf("%w: pk field path head is not a relation link", ErrUnsupportedExpression)
	}
	if leadValue.IsNull() {
		var eqs []AbstractPredicate
		for _, col := range head.FKColumns {
			eqs = append(eqs, Relational(Eq, Physical("", head.Alias, col), Null()))
		}
		return And(eqs...), nil
	}
	if len(head.FKColumns) == 1 {
		return Relational(Eq, Physical("", head.Alias, head.FKColumns[0]), Param(valueToAny(leadValue))), nil
	}
	// Composite PK: leadValue must be an object keyed by target PK field
	// name; pair each FK column with the corresponding PK field's value.
	var eqs []AbstractPredicate
	for i, col := range head.FKColumns {
		var pkName string
		if i < len(fp.PKFields) {
			pkName = fp.PKFields[i]
		}
		v, ok := leadValue.Object[pkName]
		if !ok {
			return AbstractPredicate{}, fmt.Errorf("%w: missing pk component %q", ErrCastFailure, pkName)
		}
		eqs = append(eqs, Relational(Eq, Physical("", head.Alias, col), Param(valueToAny(v))))
	}
	return And(eqs...), nil
}

func (s *Solver) solvePrecheckRelational(rc RequestContext, input *AccessInput, expr *ir.PrecheckExpr) (Solution, error) {
	left, err := s.reducePrecheckPrimitive(rc, input, expr.RelationalLeft)
	if err != nil {
		return Solution{}, err
	}
	right, err := s.reducePrecheckPrimitive(rc, input, expr.RelationalRight)
	if err != nil {
		return Solution{}, err
	}

	ignoreMissing := input != nil && input.IgnoreMissingValue

	if left.kind == spCommon && right.kind == spCommon {
		b, err := evalValues(expr.Relational, left.value, right.value)
		if err != nil {
			return Solution{}, err
		}
		return solved(boolPredicate(b)), nil
	}

	// A missing context value (Common(None)) on either side collapses the
	// whole comparison to False, mirroring solver.go's database-flavor
	// rule (spec.md §4.4).
	if (left.kind == spCommon && left.value.IsNull()) || (right.kind == spCommon && right.value.IsNull()) {
		return unsolvable(False), nil
	}

	if left.kind == spPredicate || right.kind == spPredicate {
		// A `some` sub-expression already reduced to a full predicate;
		// relational composition around it isn't a supported shape beyond
		// equality-with-true, which callers express directly as the
		// predicate itself.
		if left.kind == spPredicate {
			return solved(*left.pred), nil
		}
		return solved(*right.pred), nil
	}

	if left.kind == spPath && right.kind == spPath && (left.missing || right.missing) {
		// Both sides reduce to a column path, but at least one never
		// resolved to a real column because the field was absent from
		// the input document; the comparison solves directly to the
		// ignore-missing flag rather than a column-vs-column predicate
		// built from a phantom value (ground truth: evaluate_relation).
		return solved(boolPredicate(ignoreMissing)), nil
	}

	leftOperand, leftOK := precheckOperand(left)
	rightOperand, rightOK := precheckOperand(right)
	rk := toRelKind(expr.Relational)
	if leftOK && rightOK {
		return solved(Relational(rk, leftOperand, rightOperand)), nil
	}
	return unsolvable(Relational(rk, leftOperand, rightOperand)), nil
}

func precheckOperand(p solvedPrecheckPrimitive) (ColumnOperand, bool) {
	switch p.kind {
	case spCommon:
		if p.value.IsNull() {
			return Null(), true
		}
		return Param(valueToAny(p.value)), true
	case spPath:
		col := p.path.Column
		if len(col.Links) == 0 {
			return ColumnOperand{}, false
		}
		last := col.Links[len(col.Links)-1]
		table := ""
		if len(col.Links) > 1 {
			table = col.Links[len(col.Links)-2].TargetTable.Name
		}
		return Physical(table, p.alias, last.Column), true
	default:
		return ColumnOperand{}, false
	}
}
