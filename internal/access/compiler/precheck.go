package compiler

import (
	"fmt"

	"github.com/stokaro/exoptah/internal/access/ir"
	"github.com/stokaro/exoptah/internal/schema/ast"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

func (c *Compiler) compilePrecheckExpr(expr ast.Expr, env Env, ctxs map[string]ast.ContextDecl) *ir.PrecheckExpr {
	switch e := expr.(type) {
	case ast.BooleanLiteral:
		return ir.PrecheckBool(e.Value)
	case ast.LogicalExpr:
		return c.compilePrecheckLogical(e, env, ctxs)
	case ast.RelationalExpr:
		return c.compilePrecheckRelational(e, env, ctxs)
	case ast.FieldSelection:
		prim := c.compilePrecheckPrimitive(e, env, ctxs)
		return &ir.PrecheckExpr{
			Kind:            ir.PrecheckRelationalOp,
			Relational:      ir.RelEq,
			RelationalLeft:  prim,
			RelationalRight: ir.PrecheckPrimitive{Kind: ir.PrecheckCommon, Common: ir.Common{Kind: ir.CommonBoolean, Boolean: true}},
		}
	case ast.ListLiteral:
		c.errf(e.Span, "list literals are not permitted directly in access expressions")
		return ir.PrecheckBool(false)
	case ast.ObjectLiteral:
		c.errf(e.Span, "object literals are not permitted in access expressions")
		return ir.PrecheckBool(false)
	default:
		c.errf(expr.ExprSpan(), "unsupported access expression form")
		return ir.PrecheckBool(false)
	}
}

func (c *Compiler) compilePrecheckLogical(e ast.LogicalExpr, env Env, ctxs map[string]ast.ContextDecl) *ir.PrecheckExpr {
	left := c.compilePrecheckExpr(e.Left, env, ctxs)
	if e.Kind == ast.LogicalNot {
		return &ir.PrecheckExpr{Kind: ir.PrecheckLogicalOp, Logical: ir.LogicalNot, LogicalLeft: left}
	}
	right := c.compilePrecheckExpr(e.Right, env, ctxs)
	kind := ir.LogicalAnd
	if e.Kind == ast.LogicalOr {
		kind = ir.LogicalOr
	}
	return &ir.PrecheckExpr{Kind: ir.PrecheckLogicalOp, Logical: kind, LogicalLeft: left, LogicalRight: right}
}

func (c *Compiler) compilePrecheckRelational(e ast.RelationalExpr, env Env, ctxs map[string]ast.ContextDecl) *ir.PrecheckExpr {
	left := c.compilePrecheckOperand(e.Left, env, ctxs)
	right := c.compilePrecheckOperand(e.Right, env, ctxs)
	return &ir.PrecheckExpr{
		Kind:            ir.PrecheckRelationalOp,
		Relational:      toIRRelational(e.Kind),
		RelationalLeft:  left,
		RelationalRight: right,
	}
}

func (c *Compiler) compilePrecheckOperand(expr ast.Expr, env Env, ctxs map[string]ast.ContextDecl) ir.PrecheckPrimitive {
	switch e := expr.(type) {
	case ast.FieldSelection:
		return c.compilePrecheckPrimitive(e, env, ctxs)
	case ast.NumberLiteral:
		return ir.PrecheckPrimitive{Kind: ir.PrecheckCommon, Common: ir.Common{Kind: ir.CommonNumber, Number: e.Text}}
	case ast.StringLiteral:
		return ir.PrecheckPrimitive{Kind: ir.PrecheckCommon, Common: ir.Common{Kind: ir.CommonString, String: e.Value}}
	case ast.BooleanLiteral:
		return ir.PrecheckPrimitive{Kind: ir.PrecheckCommon, Common: ir.Common{Kind: ir.CommonBoolean, Boolean: e.Value}}
	case ast.NullLiteral:
		return ir.PrecheckPrimitive{Kind: ir.PrecheckCommon, Common: ir.Common{Kind: ir.CommonNull}}
	default:
		c.errf(expr.ExprSpan(), "unsupported operand in relational comparison")
		return ir.PrecheckPrimitive{Kind: ir.PrecheckCommon, Common: ir.Common{Kind: ir.CommonBoolean, Boolean: false}}
	}
}

// compilePrecheckPrimitive walks a field selection maintaining both a
// ColumnPath and a FieldPath in parallel, per spec.md §4.2's "For
// precheck compilation" algorithm.
func (c *Compiler) compilePrecheckPrimitive(fs ast.FieldSelection, env Env, ctxs map[string]ast.ContextDecl) ir.PrecheckPrimitive {
	b, isEntity := env.bindings[fs.Head.Name]
	if !isEntity {
		if _, ok := ctxs[fs.Head.Name]; ok {
			if len(fs.Path) != 1 || fs.Path[0].Call != nil {
				c.errf(fs.Span, "context selections support exactly one field")
				return ir.PrecheckPrimitive{}
			}
			return ir.PrecheckPrimitive{Kind: ir.PrecheckCommon, Common: ir.Common{
				Kind:        ir.CommonContextSelection,
				ContextName: fs.Head.Name,
				FieldName:   fs.Path[0].Name.Name,
			}}
		}
		c.errf(fs.Span, "undefined identifier %q: not self, a bound parameter, or a declared context", fs.Head.Name)
		return ir.PrecheckPrimitive{}
	}

	entity := c.sys.Composite(b.entity)
	column := b.column
	field := b.field
	position := b.position

	for i, seg := range fs.Path {
		last := i == len(fs.Path)-1

		if seg.Call != nil {
			if seg.Call.Name.Name != ir.FunctionName {
				c.errf(seg.Call.Span, "unsupported higher-order function %q: only some is permitted", seg.Call.Name.Name)
				return ir.PrecheckPrimitive{}
			}
			f, ok := entity.FieldByName(seg.Name.Name)
			if !ok || f.Relation == nil || f.Cardinality != resolved.Unbounded {
				c.errf(seg.Call.Span, "some() may only be called on a collection relation field")
				return ir.PrecheckPrimitive{}
			}
			relIdentity := fmt.Sprintf("%d.%s", entity.ID, f.Name)
			alias := aliasFor(seg.Call.Param.Name, position+1, relIdentity)
			target := c.sys.Composite(f.Relation.Target)
			link := ir.ColumnPathLink{
				Kind:            ir.LinkRelation,
				FKColumns:       f.Relation.ColumnNames,
				TargetTable:     target.TableName,
				TargetPKColumns: pkColumnNames(target),
				Alias:           alias,
			}
			nextColumn := pushLink(column, link)
			nextField := field.PushNormal(seg.Name.Name)
			paramBinding := binding{entity: target.ID, column: nextColumn, field: nextField, position: position + 1, alias: alias}
			nextEnv := env.with(seg.Call.Param.Name, paramBinding)
			body := c.compilePrecheckExpr(seg.Call.Body, nextEnv, ctxs)
			fnPath := ir.AccessPrimitiveExpressionPath{Column: nextColumn, Field: nextField}
			return ir.PrecheckPrimitive{Kind: ir.PrecheckFunction, FunctionPath: fnPath, FunctionBody: body}
		}

		f, ok := entity.FieldByName(seg.Name.Name)
		if !ok {
			c.errf(seg.Name.Span, "unknown field %q on %s", seg.Name.Name, entity.Name)
			return ir.PrecheckPrimitive{}
		}

		if !last {
			if f.Relation == nil || (f.Relation.Kind != resolved.RelManyToOne && f.Relation.Kind != resolved.RelOneToOne) {
				c.errf(seg.Name.Span, "field %q is not traversable: only many-to-one/one-to-one relations may be chained", seg.Name.Name)
				return ir.PrecheckPrimitive{}
			}
			target := c.sys.Composite(f.Relation.Target)
			link := ir.ColumnPathLink{Kind: ir.LinkRelation, FKColumns: f.Relation.ColumnNames, TargetTable: target.TableName}
			column = pushLink(column, link)

			if field.Kind != ir.FieldPk && f.Relation.Kind == resolved.RelManyToOne {
				field = field.PushNormal(seg.Name.Name)
				field = field.ToPk(pkFieldNames(target), leadDefaultFor(f))
			} else if field.Kind != ir.FieldPk {
				field = field.PushNormal(seg.Name.Name)
			}
			entity = target
			continue
		}

		// Terminal segment.
		if f.Relation != nil && len(f.Relation.ColumnNames) > 0 {
			column = pushLeaf(column, f.ColumnNames[0])
		} else {
			column = pushLeaf(column, firstColumnName(f))
		}
		if field.Kind != ir.FieldPk {
			field = field.PushNormal(seg.Name.Name)
		}
		return ir.PrecheckPrimitive{
			Kind:           ir.PrecheckPath,
			Path:           ir.AccessPrimitiveExpressionPath{Column: column, Field: field},
			ParameterAlias: b.alias,
		}
	}

	return ir.PrecheckPrimitive{
		Kind:           ir.PrecheckPath,
		Path:           ir.AccessPrimitiveExpressionPath{Column: column, Field: field},
		ParameterAlias: b.alias,
	}
}

func pkFieldNames(c *resolved.Composite) []string {
	var out []string
	for _, f := range c.PKFields() {
		out = append(out, f.Name)
	}
	return out
}

func leadDefaultFor(f resolved.Field) *ir.DefaultLiteral {
	if f.Type.Optional {
		return &ir.DefaultLiteral{Kind: ir.DefaultLiteralNull}
	}
	return nil
}
