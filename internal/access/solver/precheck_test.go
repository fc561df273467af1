package solver_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/access/ir"
	"github.com/stokaro/exoptah/internal/access/solver"
)

func publicationsRoyaltyRule() *ir.PrecheckExpr {
	body := &ir.PrecheckExpr{
		Kind:       ir.PrecheckRelationalOp,
		Relational: ir.RelEq,
		RelationalLeft: ir.PrecheckPrimitive{
			Kind:           ir.PrecheckPath,
			Path:           ir.AccessPrimitiveExpressionPath{Field: ir.FieldPath{Kind: ir.FieldNormal, Normal: []string{"royalty"}}},
			ParameterAlias: "publications$param",
		},
		RelationalRight: ir.PrecheckPrimitive{
			Kind:   ir.PrecheckCommon,
			Common: ir.Common{Kind: ir.CommonContextSelection, ContextName: "AuthContext", FieldName: "id"},
		},
	}
	return &ir.PrecheckExpr{
		Kind:       ir.PrecheckRelationalOp,
		Relational: ir.RelEq,
		RelationalLeft: ir.PrecheckPrimitive{
			Kind: ir.PrecheckFunction,
			FunctionPath: ir.AccessPrimitiveExpressionPath{
				Field: ir.FieldPath{Kind: ir.FieldNormal, Normal: []string{"publications"}},
			},
			FunctionBody: body,
		},
		RelationalRight: ir.PrecheckPrimitive{
			Kind:   ir.PrecheckCommon,
			Common: ir.Common{Kind: ir.CommonBoolean, Boolean: true},
		},
	}
}

func authContextSolver(id float64) solver.RequestContext {
	return solver.RequestContext{Extractor: solver.MapContext{
		"AuthContext": {"id": solver.Number(id)},
	}}
}

// TestSolvePrecheck_SomeOverPopulatedCollectionMatches is spec.md §8
// scenario 6's first sub-case: self.publications.some(p => p.royalty ==
// AuthContext.id) against a document containing a matching royalty solves
// to True.
func TestSolvePrecheck_SomeOverPopulatedCollectionMatches(t *testing.T) {
	c := qt.New(t)
	s := solver.New()
	rc := authContextSolver(100)

	input := &solver.AccessInput{Value: solver.Object(map[string]solver.Value{
		"publications": solver.List(
			solver.Object(map[string]solver.Value{"royalty": solver.Number(10)}),
			solver.Object(map[string]solver.Value{"royalty": solver.Number(100)}),
		),
	})}

	sol, err := s.SolvePrecheck(rc, input, publicationsRoyaltyRule())
	c.Assert(err, qt.IsNil)
	c.Assert(sol.Solved, qt.IsTrue)
	c.Assert(sol.Predicate.IsTrue(), qt.IsTrue)
}

// TestSolvePrecheck_SomeOverEmptyCollectionIsFalse is scenario 6's second
// sub-case: an empty collection never satisfies some() (spec.md §8).
func TestSolvePrecheck_SomeOverEmptyCollectionIsFalse(t *testing.T) {
	c := qt.New(t)
	s := solver.New()
	rc := authContextSolver(100)

	input := &solver.AccessInput{Value: solver.Object(map[string]solver.Value{
		"publications": solver.List(),
	})}

	sol, err := s.SolvePrecheck(rc, input, publicationsRoyaltyRule())
	c.Assert(err, qt.IsNil)
	c.Assert(sol.Solved, qt.IsTrue)
	c.Assert(sol.Predicate.IsFalse(), qt.IsTrue)
}

// TestSolvePrecheck_SomeOverNoMatchingItemIsFalse rounds out scenario 6: a
// non-empty collection where no item satisfies the predicate.
func TestSolvePrecheck_SomeOverNoMatchingItemIsFalse(t *testing.T) {
	c := qt.New(t)
	s := solver.New()
	rc := authContextSolver(999)

	input := &solver.AccessInput{Value: solver.Object(map[string]solver.Value{
		"publications": solver.List(
			solver.Object(map[string]solver.Value{"royalty": solver.Number(10)}),
			solver.Object(map[string]solver.Value{"royalty": solver.Number(100)}),
		),
	})}

	sol, err := s.SolvePrecheck(rc, input, publicationsRoyaltyRule())
	c.Assert(err, qt.IsNil)
	c.Assert(sol.Solved, qt.IsTrue)
	c.Assert(sol.Predicate.IsFalse(), qt.IsTrue)
}

// TestSolvePrecheck_MissingCollectionHonorsIgnoreMissingValue is scenario
// 6's third sub-case: input omitting the "publications" field entirely
// solves to False under ignore_missing_value=false, and to True when the
// caller sets ignore_missing_value=true (spec.md §8).
func TestSolvePrecheck_MissingCollectionHonorsIgnoreMissingValue(t *testing.T) {
	c := qt.New(t)
	s := solver.New()
	rc := authContextSolver(100)

	strict := &solver.AccessInput{Value: solver.Object(map[string]solver.Value{}), IgnoreMissingValue: false}
	sol, err := s.SolvePrecheck(rc, strict, publicationsRoyaltyRule())
	c.Assert(err, qt.IsNil)
	c.Assert(sol.Solved, qt.IsTrue)
	c.Assert(sol.Predicate.IsFalse(), qt.IsTrue)

	lenient := &solver.AccessInput{Value: solver.Object(map[string]solver.Value{}), IgnoreMissingValue: true}
	sol, err = s.SolvePrecheck(rc, lenient, publicationsRoyaltyRule())
	c.Assert(err, qt.IsNil)
	c.Assert(sol.Solved, qt.IsTrue)
	c.Assert(sol.Predicate.IsTrue(), qt.IsTrue)
}

// TestSolvePrecheck_CommonNoneCollapsesToUnsolvableFalse guards the same
// fix as solver.go's combineDB, on the precheck path: a missing context
// value must short-circuit to Unsolvable(False), not a column comparison.
func TestSolvePrecheck_CommonNoneCollapsesToUnsolvableFalse(t *testing.T) {
	c := qt.New(t)
	s := solver.New()
	rc := solver.RequestContext{Extractor: solver.MapContext{}}

	expr := &ir.PrecheckExpr{
		Kind:       ir.PrecheckRelationalOp,
		Relational: ir.RelEq,
		RelationalLeft: ir.PrecheckPrimitive{
			Kind:   ir.PrecheckCommon,
			Common: ir.Common{Kind: ir.CommonContextSelection, ContextName: "AuthContext", FieldName: "id"},
		},
		RelationalRight: ir.PrecheckPrimitive{
			Kind: ir.PrecheckPath,
			Path: ir.AccessPrimitiveExpressionPath{Field: ir.FieldPath{Kind: ir.FieldNormal, Normal: []string{"amount"}}},
		},
	}

	// A nil input keeps the right-hand Path operand unresolved (spPath)
	// rather than spCommon, isolating the left-hand Common(None) branch of
	// the fix instead of the both-common evalValues path.
	sol, err := s.SolvePrecheck(rc, nil, expr)
	c.Assert(err, qt.IsNil)
	c.Assert(sol.Solved, qt.IsFalse)
	c.Assert(sol.Predicate.IsFalse(), qt.IsTrue)
}

// TestSolvePrecheck_BothPathsMissingSolvesToIgnoreMissingFlag guards the
// ignoreMissing wiring fix directly: two Path operands where at least one
// never resolved against the input document collapse to the
// ignore_missing_value flag rather than a phantom column comparison.
func TestSolvePrecheck_BothPathsMissingSolvesToIgnoreMissingFlag(t *testing.T) {
	c := qt.New(t)
	s := solver.New()
	rc := solver.RequestContext{}

	expr := &ir.PrecheckExpr{
		Kind:       ir.PrecheckRelationalOp,
		Relational: ir.RelEq,
		RelationalLeft: ir.PrecheckPrimitive{
			Kind: ir.PrecheckPath,
			Path: ir.AccessPrimitiveExpressionPath{Field: ir.FieldPath{Kind: ir.FieldNormal, Normal: []string{"missingA"}}},
		},
		RelationalRight: ir.PrecheckPrimitive{
			Kind: ir.PrecheckPath,
			Path: ir.AccessPrimitiveExpressionPath{Field: ir.FieldPath{Kind: ir.FieldNormal, Normal: []string{"missingB"}}},
		},
	}

	lenient := &solver.AccessInput{Value: solver.Object(map[string]solver.Value{"present": solver.Str("x")}), IgnoreMissingValue: true}
	sol, err := s.SolvePrecheck(rc, lenient, expr)
	c.Assert(err, qt.IsNil)
	c.Assert(sol.Solved, qt.IsTrue)
	c.Assert(sol.Predicate.IsTrue(), qt.IsTrue)

	strict := &solver.AccessInput{Value: solver.Object(map[string]solver.Value{"present": solver.Str("x")}), IgnoreMissingValue: false}
	sol, err = s.SolvePrecheck(rc, strict, expr)
	c.Assert(err, qt.IsNil)
	c.Assert(sol.Solved, qt.IsTrue)
	c.Assert(sol.Predicate.IsFalse(), qt.IsTrue)
}
