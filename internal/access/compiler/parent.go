package compiler

import (
	"fmt"

	"github.com/stokaro/exoptah/internal/access/ir"
)

// scope classifies which data a sub-expression of a database predicate
// reads: only the parent row's columns, only the nested (child) row's
// columns, or neither (context selections and literals, which are the
// same regardless of which row is being scanned).
type scope int

const (
	scopeCommon scope = iota
	scopeParent
	scopeNested
	scopeMixed
)

// ParentPredicate reduces a nested-entity predicate to one over
// parentTable, used by the query planner to narrow the parent scan before
// descending into the nested collection (spec.md §4.2
// "parent_predicate"). parentTable identifies which leading column-path
// link(s) denote "the parent" — any ColumnPath whose first link targets a
// table other than parentTable is nested data.
func ParentPredicate(expr *ir.DatabaseExpr, parentTableName string) (*ir.DatabaseExpr, error) {
	reduced, _, err := reduceParent(expr, parentTableName)
	if err != nil {
		return nil, err
	}
	return reduced, nil
}

func reduceParent(expr *ir.DatabaseExpr, parentTable string) (*ir.DatabaseExpr, scope, error) {
	switch expr.Kind {
	case ir.DBBooleanLiteral:
		return expr, scopeCommon, nil
	case ir.DBLogicalOp:
		return reduceParentLogical(expr, parentTable)
	case ir.DBRelationalOp:
		return reduceParentRelational(expr, parentTable)
	default:
		return nil, scopeCommon, fmt.Errorf("parent_predicate: unknown expr kind %d", expr.Kind)
	}
}

func reduceParentLogical(expr *ir.DatabaseExpr, parentTable string) (*ir.DatabaseExpr, scope, error) {
	left, leftScope, err := reduceParent(expr.LogicalLeft, parentTable)
	if err != nil {
		return nil, scopeCommon, err
	}
	if expr.Logical == ir.LogicalNot {
		if leftScope == scopeParent || leftScope == scopeCommon {
			return &ir.DatabaseExpr{Kind: ir.DBLogicalOp, Logical: ir.LogicalNot, LogicalLeft: left}, leftScope, nil
		}
		// "Not of a non-parent expression collapses to true."
		return ir.DBBool(true), scopeCommon, nil
	}

	right, rightScope, err := reduceParent(expr.LogicalRight, parentTable)
	if err != nil {
		return nil, scopeCommon, err
	}
	combined := combineScope(leftScope, rightScope)

	switch combined {
	case scopeParent, scopeCommon:
		return &ir.DatabaseExpr{Kind: ir.DBLogicalOp, Logical: expr.Logical, LogicalLeft: left, LogicalRight: right}, combined, nil
	case scopeNested:
		return ir.DBBool(true), scopeNested, nil
	default: // scopeMixed: an And/Or mixing parent and nested collapses to
		// the parent branch (spec.md §4.2).
		if leftScope == scopeParent || leftScope == scopeCommon {
			return left, scopeParent, nil
		}
		return right, scopeParent, nil
	}
}

func combineScope(a, b scope) scope {
	if a == scopeCommon {
		return b
	}
	if b == scopeCommon {
		return a
	}
	if a == b {
		return a
	}
	return scopeMixed
}

func reduceParentRelational(expr *ir.DatabaseExpr, parentTable string) (*ir.DatabaseExpr, scope, error) {
	leftScope := primitiveScope(expr.RelationalLeft, parentTable)
	rightScope := primitiveScope(expr.RelationalRight, parentTable)
	combined := combineScope(leftScope, rightScope)

	switch combined {
	case scopeMixed:
		return nil, scopeCommon, fmt.Errorf("parent_predicate: relational comparison straddles parent and nested data")
	case scopeNested:
		return ir.DBBool(true), scopeNested, nil
	default:
		return expr, combined, nil
	}
}

func primitiveScope(p ir.DatabasePrimitive, parentTable string) scope {
	switch p.Kind {
	case ir.DBCommon:
		return scopeCommon
	case ir.DBColumn:
		return columnScope(p.Column, parentTable)
	case ir.DBFunction:
		return scopeNested
	default:
		return scopeCommon
	}
}

func columnScope(path ir.ColumnPath, parentTable string) scope {
	if len(path.Links) == 0 {
		return scopeCommon
	}
	head := path.Links[0]
	if head.Kind == ir.LinkLeaf {
		// A bare column with no relation hop reads whichever row is
		// currently being scanned — the nested entity, since
		// ParentPredicate is only ever invoked on expressions rooted
		// there (spec.md §4.2; ground truth: reduce_nested_primitive_expr).
		return scopeNested
	}
	if head.TargetTable.Name == parentTable {
		// The head hops through a relation link to the parent's table;
		// once that head is stripped away what remains reads the parent
		// row, so this operand is parent-scoped.
		return scopeParent
	}
	return scopeNested
}
