// Package compiler lowers boolean access expressions (internal/schema/ast)
// over `self.<field-path>`, context selections, literals, and the `some`
// higher-order operator into the two typed predicate IRs of
// internal/access/ir (spec.md §4.2).
package compiler

import (
	"fmt"

	"github.com/stokaro/exoptah/internal/access/ir"
	"github.com/stokaro/exoptah/internal/diagnostic"
	"github.com/stokaro/exoptah/internal/schema/ast"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

// binding is what a bound identifier (self or a higher-order parameter)
// resolves to while walking a field selection: the entity it ranges over,
// the column-path prefix accumulated so far, and (once inside a `some`
// body) the alias assigned to the relation link that introduced it.
type binding struct {
	entity CompositeRef
	column ir.ColumnPath
	field  ir.FieldPath
	alias  string
	// position counts how many some() calls enclose this binding (0 for
	// the outermost self), used to seed aliasFor's hash deterministically.
	position int
}

// CompositeRef is a thin handle a caller supplies instead of a
// *resolved.Composite pointer, so this package never needs write access to
// the resolved arena — only read-only lookups through *resolved.System.
type CompositeRef = resolved.CompositeID

// Env carries the parameter bindings introduced by higher-order calls,
// keyed by parameter name; nested bindings shadow outer ones
// (spec.md §4.2 "Parameters and scope").
type Env struct {
	sys      *resolved.System
	bindings map[string]binding
}

// NewEnv creates an environment with no bound parameters.
func NewEnv(sys *resolved.System) Env {
	return Env{sys: sys, bindings: map[string]binding{}}
}

func (e Env) with(name string, b binding) Env {
	next := make(map[string]binding, len(e.bindings)+1)
	for k, v := range e.bindings {
		next[k] = v
	}
	next[name] = b
	return Env{sys: e.sys, bindings: next}
}

// Compiler compiles access expressions against a resolved system,
// accumulating diagnostics for unsupported forms (spec.md §4.2 Failure).
type Compiler struct {
	sys *resolved.System
	bag *diagnostic.Bag
}

// New returns a Compiler bound to sys, reporting problems into bag.
func New(sys *resolved.System, bag *diagnostic.Bag) *Compiler {
	return &Compiler{sys: sys, bag: bag}
}

// CompileRead lowers expr into the database (read-time, row-filtering)
// predicate IR, rooted at selfEntity.
func (c *Compiler) CompileRead(expr ast.Expr, selfEntity *resolved.Composite, contexts map[string]ast.ContextDecl) *ir.DatabaseExpr {
	env := NewEnv(c.sys)
	self := binding{entity: selfEntity.ID, column: ir.ColumnPath{}, field: ir.FieldPath{Kind: ir.FieldNormal}}
	env = env.with("self", self)
	return c.compileReadExpr(expr, env, contexts)
}

// CompilePrecheck lowers expr into the precheck (write-time, input
// document) predicate IR, rooted at selfEntity.
func (c *Compiler) CompilePrecheck(expr ast.Expr, selfEntity *resolved.Composite, contexts map[string]ast.ContextDecl) *ir.PrecheckExpr {
	env := NewEnv(c.sys)
	self := binding{entity: selfEntity.ID, column: ir.ColumnPath{}, field: ir.FieldPath{Kind: ir.FieldNormal}}
	env = env.with("self", self)
	return c.compilePrecheckExpr(expr, env, contexts)
}

func (c *Compiler) errf(span diagnostic.Span, format string, args ...any) {
	c.bag.Addf(span, format, args...)
}

// ---- read (database) compilation ----

func (c *Compiler) compileReadExpr(expr ast.Expr, env Env, ctxs map[string]ast.ContextDecl) *ir.DatabaseExpr {
	switch e := expr.(type) {
	case ast.BooleanLiteral:
		return ir.DBBool(e.Value)
	case ast.LogicalExpr:
		return c.compileReadLogical(e, env, ctxs)
	case ast.RelationalExpr:
		return c.compileReadRelational(e, env, ctxs)
	case ast.FieldSelection:
		prim := c.compileReadPrimitive(e, env, ctxs)
		if isBooleanPrimitive(prim, c.sys) {
			return &ir.DatabaseExpr{
				Kind:            ir.DBRelationalOp,
				Relational:      ir.RelEq,
				RelationalLeft:  prim,
				RelationalRight: ir.DatabasePrimitive{Kind: ir.DBCommon, Common: ir.Common{Kind: ir.CommonBoolean, Boolean: true}},
			}
		}
		c.errf(e.Span, "field selection used where a boolean expression was expected")
		return ir.DBBool(false)
	case ast.ListLiteral:
		c.errf(e.Span, "list literals are not permitted directly in access expressions")
		return ir.DBBool(false)
	case ast.ObjectLiteral:
		c.errf(e.Span, "object literals are not permitted in access expressions")
		return ir.DBBool(false)
	default:
		c.errf(expr.ExprSpan(), "unsupported access expression form")
		return ir.DBBool(false)
	}
}

func (c *Compiler) compileReadLogical(e ast.LogicalExpr, env Env, ctxs map[string]ast.ContextDecl) *ir.DatabaseExpr {
	left := c.compileReadExpr(e.Left, env, ctxs)
	if e.Kind == ast.LogicalNot {
		return &ir.DatabaseExpr{Kind: ir.DBLogicalOp, Logical: ir.LogicalNot, LogicalLeft: left}
	}
	right := c.compileReadExpr(e.Right, env, ctxs)
	kind := ir.LogicalAnd
	if e.Kind == ast.LogicalOr {
		kind = ir.LogicalOr
	}
	return &ir.DatabaseExpr{Kind: ir.DBLogicalOp, Logical: kind, LogicalLeft: left, LogicalRight: right}
}

func (c *Compiler) compileReadRelational(e ast.RelationalExpr, env Env, ctxs map[string]ast.ContextDecl) *ir.DatabaseExpr {
	left := c.compileReadOperand(e.Left, env, ctxs)
	right := c.compileReadOperand(e.Right, env, ctxs)
	return &ir.DatabaseExpr{
		Kind:            ir.DBRelationalOp,
		Relational:      toIRRelational(e.Kind),
		RelationalLeft:  left,
		RelationalRight: right,
	}
}

func (c *Compiler) compileReadOperand(expr ast.Expr, env Env, ctxs map[string]ast.ContextDecl) ir.DatabasePrimitive {
	switch e := expr.(type) {
	case ast.FieldSelection:
		return c.compileReadPrimitive(e, env, ctxs)
	case ast.NumberLiteral:
		return ir.DatabasePrimitive{Kind: ir.DBCommon, Common: ir.Common{Kind: ir.CommonNumber, Number: e.Text}}
	case ast.StringLiteral:
		return ir.DatabasePrimitive{Kind: ir.DBCommon, Common: ir.Common{Kind: ir.CommonString, String: e.Value}}
	case ast.BooleanLiteral:
		return ir.DatabasePrimitive{Kind: ir.DBCommon, Common: ir.Common{Kind: ir.CommonBoolean, Boolean: e.Value}}
	case ast.NullLiteral:
		return ir.DatabasePrimitive{Kind: ir.DBCommon, Common: ir.Common{Kind: ir.CommonNull}}
	case ast.ListLiteral:
		// A list literal is only meaningful as the RHS of `in`; represent
		// it as a string-encoded literal the solver's Value layer already
		// understands is out of scope for the database flavor (residual
		// IN lists are rendered by the planner from parameters, not from
		// a Common shape) — reject per spec.md §4.2 Failure.
		c.errf(e.Span, "list literals are not permitted directly in access expressions")
		return ir.DatabasePrimitive{Kind: ir.DBCommon, Common: ir.Common{Kind: ir.CommonBoolean, Boolean: false}}
	default:
		c.errf(expr.ExprSpan(), "unsupported operand in relational comparison")
		return ir.DatabasePrimitive{Kind: ir.DBCommon, Common: ir.Common{Kind: ir.CommonBoolean, Boolean: false}}
	}
}

// compileReadPrimitive walks a field selection and returns the database
// primitive it denotes, per spec.md §4.2's "For read compilation" algorithm.
func (c *Compiler) compileReadPrimitive(fs ast.FieldSelection, env Env, ctxs map[string]ast.ContextDecl) ir.DatabasePrimitive {
	b, isEntity := env.bindings[fs.Head.Name]
	if !isEntity {
		if _, ok := ctxs[fs.Head.Name]; ok {
			if len(fs.Path) != 1 || fs.Path[0].Call != nil {
				c.errf(fs.Span, "context selections support exactly one field")
				return ir.DatabasePrimitive{}
			}
			return ir.DatabasePrimitive{Kind: ir.DBCommon, Common: ir.Common{
				Kind:        ir.CommonContextSelection,
				ContextName: fs.Head.Name,
				FieldName:   fs.Path[0].Name.Name,
			}}
		}
		c.errf(fs.Span, "undefined identifier %q: not self, a bound parameter, or a declared context", fs.Head.Name)
		return ir.DatabasePrimitive{}
	}

	entity := c.sys.Composite(b.entity)
	column := b.column
	position := b.position

	for i, seg := range fs.Path {
		last := i == len(fs.Path)-1

		if seg.Call != nil {
			if seg.Call.Name.Name != ir.FunctionName {
				c.errf(seg.Call.Span, "unsupported higher-order function %q: only some is permitted", seg.Call.Name.Name)
				return ir.DatabasePrimitive{}
			}
			field, ok := entity.FieldByName(seg.Name.Name)
			if !ok || field.Relation == nil || field.Cardinality != resolved.Unbounded {
				c.errf(seg.Call.Span, "some() may only be called on a collection relation field")
				return ir.DatabasePrimitive{}
			}
			relIdentity := fmt.Sprintf("%d.%s", entity.ID, field.Name)
			alias := aliasFor(seg.Call.Param.Name, position+1, relIdentity)
			target := c.sys.Composite(field.Relation.Target)
			link := ir.ColumnPathLink{
				Kind:            ir.LinkRelation,
				FKColumns:       field.Relation.ColumnNames,
				TargetTable:     target.TableName,
				TargetPKColumns: pkColumnNames(target),
				Alias:           alias,
			}
			nextColumn := pushLink(column, link)
			paramBinding := binding{entity: target.ID, column: nextColumn, position: position + 1, alias: alias}
			nextEnv := env.with(seg.Call.Param.Name, paramBinding)
			body := c.compileReadExpr(seg.Call.Body, nextEnv, ctxs)
			return ir.DatabasePrimitive{Kind: ir.DBFunction, FunctionPath: nextColumn, FunctionBody: body}
		}

		field, ok := entity.FieldByName(seg.Name.Name)
		if !ok {
			c.errf(seg.Name.Span, "unknown field %q on %s", seg.Name.Name, entity.Name)
			return ir.DatabasePrimitive{}
		}

		if !last {
			if field.Relation == nil || (field.Relation.Kind != resolved.RelManyToOne && field.Relation.Kind != resolved.RelOneToOne) {
				c.errf(seg.Name.Span, "field %q is not traversable: only many-to-one/one-to-one relations may be chained", seg.Name.Name)
				return ir.DatabasePrimitive{}
			}
			target := c.sys.Composite(field.Relation.Target)
			link := ir.ColumnPathLink{
				Kind:        ir.LinkRelation,
				FKColumns:   field.Relation.ColumnNames,
				TargetTable: target.TableName,
			}
			column = pushLink(column, link)
			entity = target
			continue
		}

		// Terminal segment.
		if field.Relation != nil && len(field.Relation.ColumnNames) > 0 {
			// "A terminal column path ending on a relation ... is
			// rewritten to the owning-side FK column" (spec.md §4.2).
			column = pushLeaf(column, field.ColumnNames[0])
		} else {
			column = pushLeaf(column, firstColumnName(field))
		}
		return ir.DatabasePrimitive{Kind: ir.DBColumn, Column: column, ParameterAlias: b.alias}
	}

	// Zero-length tail: `self` alone, or a bound parameter alone — used by
	// the boolean-sugar path when the field itself carries the boolean.
	return ir.DatabasePrimitive{Kind: ir.DBColumn, Column: column, ParameterAlias: b.alias}
}

func pushLink(p ir.ColumnPath, link ir.ColumnPathLink) ir.ColumnPath {
	if len(p.Links) == 0 {
		return ir.Init(link)
	}
	return p.Push(link)
}

func pushLeaf(p ir.ColumnPath, column string) ir.ColumnPath {
	return pushLink(p, ir.ColumnPathLink{Kind: ir.LinkLeaf, Column: column})
}

func firstColumnName(f resolved.Field) string {
	if len(f.ColumnNames) == 0 {
		return f.Name
	}
	return f.ColumnNames[0]
}

func pkColumnNames(c *resolved.Composite) []string {
	var out []string
	for _, f := range c.PKFields() {
		out = append(out, firstColumnName(f))
	}
	return out
}

func toIRRelational(k ast.RelationalKind) ir.RelationalKind {
	switch k {
	case ast.RelEq:
		return ir.RelEq
	case ast.RelNeq:
		return ir.RelNeq
	case ast.RelLt:
		return ir.RelLt
	case ast.RelLte:
		return ir.RelLte
	case ast.RelGt:
		return ir.RelGt
	case ast.RelGte:
		return ir.RelGte
	case ast.RelIn:
		return ir.RelIn
	default:
		return ir.RelEq
	}
}

func isBooleanPrimitive(p ir.DatabasePrimitive, sys *resolved.System) bool {
	return p.Kind == ir.DBColumn && len(p.Column.Links) > 0
}
