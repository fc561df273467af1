package compiler_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/access/compiler"
	"github.com/stokaro/exoptah/internal/access/ir"
	"github.com/stokaro/exoptah/internal/diagnostic"
	"github.com/stokaro/exoptah/internal/schema/ast"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

// fixture builds a small User/Article system by hand (no parser exists in
// this module, see internal/resolver/resolver_test.go's field/blogSystem
// helpers for the same idiom) wired with the relations the compiler and
// parent_predicate tests need: Article many-to-one User, User one-to-many
// Article's reciprocal "articles" collection.
func fixture() (sys *resolved.System, user, article *resolved.Composite) {
	sys = resolved.NewSystem()

	user = &resolved.Composite{
		Name:      "User",
		TableName: resolved.TableName{Name: "users"},
		Fields: []resolved.Field{
			{Name: "id", IsPK: true, ColumnNames: []string{"id"}, Type: resolved.Type{Kind: resolved.TPrimitive, Primitive: resolved.Int}},
			{Name: "name", ColumnNames: []string{"name"}, Type: resolved.Type{Kind: resolved.TPrimitive, Primitive: resolved.String}},
		},
	}
	sys.AddComposite(user)

	article = &resolved.Composite{
		Name:      "Article",
		TableName: resolved.TableName{Name: "articles"},
		Fields: []resolved.Field{
			{Name: "id", IsPK: true, ColumnNames: []string{"id"}, Type: resolved.Type{Kind: resolved.TPrimitive, Primitive: resolved.Int}},
			{Name: "title", ColumnNames: []string{"title"}, Type: resolved.Type{Kind: resolved.TPrimitive, Primitive: resolved.String}},
			{Name: "published", ColumnNames: []string{"published"}, Type: resolved.Type{Kind: resolved.TPrimitive, Primitive: resolved.Boolean}},
			{
				Name: "user",
				Type: resolved.Type{Kind: resolved.TComposite, Composite: user.ID},
				Relation: &resolved.Relation{
					Kind:             resolved.RelManyToOne,
					Target:           user.ID,
					ColumnNames:      []string{"user_id"},
					InverseFieldName: "articles",
				},
			},
		},
	}
	sys.AddComposite(article)

	user.Fields = append(user.Fields, resolved.Field{
		Name:        "articles",
		Type:        resolved.Type{Kind: resolved.TComposite, Composite: article.ID, List: true},
		Cardinality: resolved.Unbounded,
		Relation: &resolved.Relation{
			Kind:             resolved.RelOneToMany,
			Target:           article.ID,
			InverseFieldName: "user",
		},
	})

	return sys, user, article
}

func ident(name string) ast.Ident { return ast.Ident{Name: name} }

func selfField(segments ...string) ast.FieldSelection {
	fs := ast.FieldSelection{Head: ident("self")}
	for _, s := range segments {
		fs.Path = append(fs.Path, ast.PathSegment{Name: ident(s)})
	}
	return fs
}

func ctxField(ctx, field string) ast.FieldSelection {
	return ast.FieldSelection{Head: ident(ctx), Path: []ast.PathSegment{{Name: ident(field)}}}
}

func boolLit(v bool) ast.BooleanLiteral { return ast.BooleanLiteral{Value: v} }

var authContexts = map[string]ast.ContextDecl{"AuthContext": {Name: ident("AuthContext")}}

func TestCompileRead_BareColumnProducesColumnPath(t *testing.T) {
	c := qt.New(t)
	sys, _, article := fixture()
	bag := &diagnostic.Bag{}
	comp := compiler.New(sys, bag)

	expr := ast.RelationalExpr{Kind: ast.RelEq, Left: selfField("title"), Right: ast.StringLiteral{Value: "hello"}}
	out := comp.CompileRead(expr, article, authContexts)

	c.Assert(bag.HasErrors(), qt.IsFalse)
	c.Assert(out.Kind, qt.Equals, ir.DBRelationalOp)
	c.Assert(out.RelationalLeft.Kind, qt.Equals, ir.DBColumn)
	c.Assert(out.RelationalLeft.Column.Links, qt.HasLen, 1)
	c.Assert(out.RelationalLeft.Column.Links[0].Column, qt.Equals, "title")
	c.Assert(out.RelationalRight.Common.Kind, qt.Equals, ir.CommonString)
}

func TestCompileRead_TopLevelBooleanFieldIsSugarForEqualsTrue(t *testing.T) {
	c := qt.New(t)
	sys, _, article := fixture()
	bag := &diagnostic.Bag{}
	comp := compiler.New(sys, bag)

	out := comp.CompileRead(selfField("published"), article, authContexts)

	c.Assert(bag.HasErrors(), qt.IsFalse)
	c.Assert(out.Kind, qt.Equals, ir.DBRelationalOp)
	c.Assert(out.Relational, qt.Equals, ir.RelEq)
	c.Assert(out.RelationalRight.Common.Kind, qt.Equals, ir.CommonBoolean)
	c.Assert(out.RelationalRight.Common.Boolean, qt.IsTrue)
}

// TestCompileRead_ParentPredicateRoundTrip reproduces spec.md's own worked
// example almost verbatim: rule `self.user.id == AuthContext.id` on
// Article, narrowed to a parent scan over User ("parent_predicate").
func TestCompileRead_ParentPredicateRoundTrip(t *testing.T) {
	c := qt.New(t)
	sys, _, article := fixture()
	bag := &diagnostic.Bag{}
	comp := compiler.New(sys, bag)

	expr := ast.RelationalExpr{Kind: ast.RelEq, Left: selfField("user", "id"), Right: ctxField("AuthContext", "id")}
	dbExpr := comp.CompileRead(expr, article, authContexts)
	c.Assert(bag.HasErrors(), qt.IsFalse)

	// Sanity: the compiled column path really does hop through the
	// relation to users before reaching the leaf "id" column.
	c.Assert(dbExpr.RelationalLeft.Column.Links, qt.HasLen, 2)
	c.Assert(dbExpr.RelationalLeft.Column.Links[0].TargetTable.Name, qt.Equals, "users")
	c.Assert(dbExpr.RelationalLeft.Column.Links[1].Column, qt.Equals, "id")

	reduced, err := compiler.ParentPredicate(dbExpr, "users")
	c.Assert(err, qt.IsNil)

	// The comparison is entirely parent-scoped (a relation hop landing on
	// the parent table, plus a context selection, which is common data),
	// so it must survive unchanged rather than collapse to true.
	c.Assert(reduced.Kind, qt.Equals, ir.DBRelationalOp)
	c.Assert(reduced.RelationalLeft.Kind, qt.Equals, ir.DBColumn)
	c.Assert(reduced.RelationalLeft.Column.Links, qt.HasLen, 2)
	c.Assert(reduced.RelationalLeft.Column.Links[0].TargetTable.Name, qt.Equals, "users")
	c.Assert(reduced.RelationalLeft.Column.Links[1].Column, qt.Equals, "id")
	c.Assert(reduced.RelationalRight.Common.Kind, qt.Equals, ir.CommonContextSelection)
}

// TestCompileRead_ParentPredicateCollapsesNestedOnlyComparison covers the
// other half of the columnScope fix: a comparison that reads only the
// nested entity's own column (no relation hop at all) must collapse to
// `true` rather than leak into the parent-scoped predicate.
func TestCompileRead_ParentPredicateCollapsesNestedOnlyComparison(t *testing.T) {
	c := qt.New(t)
	sys, _, article := fixture()
	bag := &diagnostic.Bag{}
	comp := compiler.New(sys, bag)

	expr := ast.RelationalExpr{Kind: ast.RelEq, Left: selfField("title"), Right: ast.StringLiteral{Value: "hello"}}
	dbExpr := comp.CompileRead(expr, article, authContexts)
	c.Assert(bag.HasErrors(), qt.IsFalse)

	reduced, err := compiler.ParentPredicate(dbExpr, "users")
	c.Assert(err, qt.IsNil)
	c.Assert(reduced.Kind, qt.Equals, ir.DBBooleanLiteral)
	c.Assert(reduced.Bool, qt.IsTrue)
}

// TestCompileRead_ParentPredicateStraddlingComparisonIsAnError covers
// spec.md §4.2's "a relational comparison comparing a parent field to a
// nested field is rejected": self.user.name compared against self.title
// straddles parent (users) and nested (articles) data in one relational op.
func TestCompileRead_ParentPredicateStraddlingComparisonIsAnError(t *testing.T) {
	c := qt.New(t)
	sys, _, article := fixture()
	bag := &diagnostic.Bag{}
	comp := compiler.New(sys, bag)

	expr := ast.RelationalExpr{Kind: ast.RelEq, Left: selfField("user", "name"), Right: selfField("title")}
	dbExpr := comp.CompileRead(expr, article, authContexts)
	c.Assert(bag.HasErrors(), qt.IsFalse)

	_, err := compiler.ParentPredicate(dbExpr, "users")
	c.Assert(err, qt.IsNotNil)
}

// TestCompileRead_SomeOverCollectionProducesAliasedFunctionNode covers
// spec.md §8 scenario 6's read-time shape and the alias state machine of
// §4.5: self.articles.some(a => a.published == true) on User.
func TestCompileRead_SomeOverCollectionProducesAliasedFunctionNode(t *testing.T) {
	c := qt.New(t)
	sys, user, _ := fixture()
	bag := &diagnostic.Bag{}
	comp := compiler.New(sys, bag)

	body := ast.RelationalExpr{Kind: ast.RelEq, Left: ast.FieldSelection{Head: ident("a"), Path: []ast.PathSegment{{Name: ident("published")}}}, Right: boolLit(true)}
	someCall := ast.FieldSelection{
		Head: ident("self"),
		Path: []ast.PathSegment{{
			Name: ident("articles"),
			Call: &ast.Call{Name: ident("some"), Param: ident("a"), Body: body},
		}},
	}
	// Wrapped in an explicit relational comparison: compileReadRelational
	// lowers each operand through compileReadOperand directly, so this
	// sidesteps the top-level-FieldSelection boolean-sugar path (which
	// only recognizes a bare DBColumn, not a DBFunction).
	expr := ast.RelationalExpr{Kind: ast.RelEq, Left: someCall, Right: boolLit(true)}

	out := comp.CompileRead(expr, user, authContexts)
	c.Assert(bag.HasErrors(), qt.IsFalse)

	c.Assert(out.Kind, qt.Equals, ir.DBRelationalOp)
	fn := out.RelationalLeft
	c.Assert(fn.Kind, qt.Equals, ir.DBFunction)
	c.Assert(fn.FunctionPath.Links, qt.HasLen, 1)
	c.Assert(fn.FunctionPath.Links[0].Kind, qt.Equals, ir.LinkRelation)
	c.Assert(fn.FunctionPath.Links[0].Alias, qt.Not(qt.Equals), "")

	c.Assert(fn.FunctionBody.Kind, qt.Equals, ir.DBRelationalOp)
	innerLeft := fn.FunctionBody.RelationalLeft
	c.Assert(innerLeft.Kind, qt.Equals, ir.DBColumn)
	c.Assert(innerLeft.ParameterAlias, qt.Equals, fn.FunctionPath.Links[0].Alias)
}

func TestCompilePrecheck_ManyToOneHopBecomesPkFieldPath(t *testing.T) {
	c := qt.New(t)
	sys, _, article := fixture()
	bag := &diagnostic.Bag{}
	comp := compiler.New(sys, bag)

	expr := ast.RelationalExpr{Kind: ast.RelEq, Left: selfField("user", "id"), Right: ctxField("AuthContext", "id")}
	out := comp.CompilePrecheck(expr, article, authContexts)

	c.Assert(bag.HasErrors(), qt.IsFalse)
	c.Assert(out.RelationalLeft.Kind, qt.Equals, ir.PrecheckPath)
	c.Assert(out.RelationalLeft.Path.Field.Kind, qt.Equals, ir.FieldPk)
	c.Assert(out.RelationalLeft.Path.Field.Lead, qt.DeepEquals, []string{"user"})
	c.Assert(out.RelationalLeft.Path.Field.PKFields, qt.DeepEquals, []string{"id"})
}
