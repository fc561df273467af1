package ir_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/access/ir"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

func relationLink(target string, alias string) ir.ColumnPathLink {
	return ir.ColumnPathLink{
		Kind:        ir.LinkRelation,
		FKColumns:   []string{"user_id"},
		TargetTable: resolved.TableName{Name: target},
		Alias:       alias,
	}
}

func leafLink(column string) ir.ColumnPathLink {
	return ir.ColumnPathLink{Kind: ir.LinkLeaf, Column: column}
}

func TestColumnPath_InitAndPush(t *testing.T) {
	c := qt.New(t)

	p := ir.Init(relationLink("users", ""))
	c.Assert(p.Links, qt.HasLen, 1)

	p2 := p.Push(leafLink("id"))
	c.Assert(p2.Links, qt.HasLen, 2)
	// Push must not mutate the receiver (spec.md §9 value semantics).
	c.Assert(p.Links, qt.HasLen, 1)
}

func TestColumnPath_Equal(t *testing.T) {
	c := qt.New(t)

	a := ir.Init(relationLink("users", "u_1")).Push(leafLink("id"))
	b := ir.Init(relationLink("users", "u_1")).Push(leafLink("id"))
	c.Assert(a.Equal(b), qt.IsTrue)

	// Alias participates in equality per spec.md §3.
	diffAlias := ir.Init(relationLink("users", "u_2")).Push(leafLink("id"))
	c.Assert(a.Equal(diffAlias), qt.IsFalse)

	diffColumn := ir.Init(relationLink("users", "u_1")).Push(leafLink("name"))
	c.Assert(a.Equal(diffColumn), qt.IsFalse)
}

func TestColumnPath_SplitHead(t *testing.T) {
	c := qt.New(t)

	p := ir.Init(relationLink("users", "")).Push(leafLink("id"))
	head, tail := p.SplitHead()
	c.Assert(head.Kind, qt.Equals, ir.LinkRelation)
	c.Assert(tail, qt.IsNotNil)
	c.Assert(tail.Links, qt.HasLen, 1)
	c.Assert(tail.Links[0].Column, qt.Equals, "id")

	single := ir.Init(leafLink("id"))
	head, tail = single.SplitHead()
	c.Assert(head.Column, qt.Equals, "id")
	c.Assert(tail, qt.IsNil)

	empty := ir.ColumnPath{}
	head, tail = empty.SplitHead()
	c.Assert(head, qt.DeepEquals, ir.ColumnPathLink{})
	c.Assert(tail, qt.IsNil)
}

func TestColumnPath_Join(t *testing.T) {
	c := qt.New(t)

	outer := ir.Init(relationLink("articles", "a_1"))
	inner := ir.Init(leafLink("title"))
	joined := outer.Join(inner)
	c.Assert(joined.Links, qt.HasLen, 2)
	c.Assert(joined.Links[0].TargetTable.Name, qt.Equals, "articles")
	c.Assert(joined.Links[1].Column, qt.Equals, "title")

	// Join must not mutate either operand.
	c.Assert(outer.Links, qt.HasLen, 1)
	c.Assert(inner.Links, qt.HasLen, 1)
}

func TestColumnPath_LeafColumn(t *testing.T) {
	c := qt.New(t)

	withLeaf := ir.Init(relationLink("users", "")).Push(leafLink("id"))
	c.Assert(withLeaf.LeafColumn(), qt.Equals, "id")

	withoutLeaf := ir.Init(relationLink("users", ""))
	c.Assert(withoutLeaf.LeafColumn(), qt.Equals, "")

	c.Assert(ir.ColumnPath{}.LeafColumn(), qt.Equals, "")
}

func TestColumnPath_LeadTableID(t *testing.T) {
	c := qt.New(t)

	aliased := ir.Init(relationLink("users", "u_1"))
	c.Assert(aliased.LeadTableID(), qt.Equals, "u_1")

	unaliased := ir.Init(ir.ColumnPathLink{Kind: ir.LinkRelation, TargetTable: resolved.TableName{Schema: "app", Name: "users"}})
	c.Assert(unaliased.LeadTableID(), qt.Equals, "app.users")

	bareLeaf := ir.Init(leafLink("id"))
	c.Assert(bareLeaf.LeadTableID(), qt.Equals, "id")
}

func TestBoolBuilders(t *testing.T) {
	c := qt.New(t)

	dbTrue := ir.DBBool(true)
	c.Assert(dbTrue.Kind, qt.Equals, ir.DBBooleanLiteral)
	c.Assert(dbTrue.Bool, qt.IsTrue)

	precheckFalse := ir.PrecheckBool(false)
	c.Assert(precheckFalse.Kind, qt.Equals, ir.PrecheckBooleanLiteral)
	c.Assert(precheckFalse.Bool, qt.IsFalse)
}

func TestFieldPath_PushNormalAndToPk(t *testing.T) {
	c := qt.New(t)

	fp := ir.FieldPath{Kind: ir.FieldNormal}
	fp = fp.PushNormal("user")
	c.Assert(fp.Normal, qt.DeepEquals, []string{"user"})

	pk := fp.ToPk([]string{"id"}, nil)
	c.Assert(pk.Kind, qt.Equals, ir.FieldPk)
	c.Assert(pk.Lead, qt.DeepEquals, []string{"user"})
	c.Assert(pk.PKFields, qt.DeepEquals, []string{"id"})

	// ToPk on a path that is already Pk keeps it Pk: Lead is kept as it
	// was and PKFields is replaced by the new target's key fields.
	pk2 := pk.ToPk([]string{"code"}, nil)
	c.Assert(pk2.Kind, qt.Equals, ir.FieldPk)
	c.Assert(pk2.Lead, qt.DeepEquals, []string{"user"})
	c.Assert(pk2.PKFields, qt.DeepEquals, []string{"code"})
}
