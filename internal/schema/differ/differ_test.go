package differ_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/schema/differ"
	"github.com/stokaro/exoptah/internal/schema/model"
)

func TestDiff_CreateTable(t *testing.T) {
	c := qt.New(t)

	old := &model.Spec{}
	newSpec := &model.Spec{Tables: []model.Table{
		{Name: "widgets", Columns: []model.Column{{Name: "id", SQLType: "integer", NotNull: true}}},
	}}

	ops := differ.Diff(old, newSpec, differ.Scope{Kind: differ.AllSchemas})
	c.Assert(ops, qt.HasLen, 1)
	c.Assert(ops[0].Kind, qt.Equals, differ.CreateTable)
	c.Assert(ops[0].TableDef.Name, qt.Equals, "widgets")
	c.Assert(ops[0].Destructive(), qt.IsFalse)
}

func TestDiff_DropTableIsDestructive(t *testing.T) {
	c := qt.New(t)

	old := &model.Spec{Tables: []model.Table{{Name: "widgets"}}}
	newSpec := &model.Spec{}

	ops := differ.Diff(old, newSpec, differ.Scope{Kind: differ.AllSchemas})
	c.Assert(ops, qt.HasLen, 1)
	c.Assert(ops[0].Kind, qt.Equals, differ.DeleteTable)
	c.Assert(ops[0].Destructive(), qt.IsTrue)
}

func TestDiff_AddAndDropColumn(t *testing.T) {
	c := qt.New(t)

	old := &model.Spec{Tables: []model.Table{
		{Name: "widgets", Columns: []model.Column{{Name: "id", SQLType: "integer"}}},
	}}
	newSpec := &model.Spec{Tables: []model.Table{
		{Name: "widgets", Columns: []model.Column{{Name: "name", SQLType: "text"}}},
	}}

	ops := differ.Diff(old, newSpec, differ.Scope{Kind: differ.AllSchemas})

	var kinds []differ.OpKind
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	c.Assert(kinds, qt.Contains, differ.AddColumn)
	c.Assert(kinds, qt.Contains, differ.DropColumn)
}

func TestDiff_IgnoredExtensionNeverDiffed(t *testing.T) {
	c := qt.New(t)

	old := &model.Spec{Extensions: []string{"plpgsql"}}
	newSpec := &model.Spec{}

	scope := differ.Scope{Kind: differ.AllSchemas, IgnoreExtensions: differ.DefaultIgnoredExtensions()}
	ops := differ.Diff(old, newSpec, scope)
	c.Assert(ops, qt.HasLen, 0)
}

func TestDiff_NonIgnoredMissingExtensionIsRemoved(t *testing.T) {
	c := qt.New(t)

	old := &model.Spec{Extensions: []string{"pgcrypto"}}
	newSpec := &model.Spec{}

	scope := differ.Scope{Kind: differ.AllSchemas, IgnoreExtensions: differ.DefaultIgnoredExtensions()}
	ops := differ.Diff(old, newSpec, scope)
	c.Assert(ops, qt.HasLen, 1)
	c.Assert(ops[0].Kind, qt.Equals, differ.RemoveExtension)
	c.Assert(ops[0].Extension, qt.Equals, "pgcrypto")
}

// TestDiff_IdempotentOnSelf guards spec.md:141/227: diffing a spec against
// itself must produce an empty plan, regardless of how many kinds of
// object the spec carries. A differ that forgets to compare by name (or
// that accidentally treats equal-but-freshly-allocated slices as
// different) would otherwise emit spurious drop-then-recreate pairs every
// time a migration is planned against an unchanged model.
func TestDiff_IdempotentOnSelf(t *testing.T) {
	c := qt.New(t)

	spec := &model.Spec{
		Schemas:    []string{"app"},
		Extensions: []string{"pgcrypto"},
		Enums: []model.Enum{
			{Schema: "app", Name: "status", Values: []string{"ACTIVE", "INACTIVE"}},
		},
		Tables: []model.Table{
			{Schema: "app", Name: "venues", Columns: []model.Column{
				{Name: "id", SQLType: "integer", NotNull: true},
				{Name: "name", SQLType: "text", NotNull: true},
			}},
			{Schema: "app", Name: "concerts", Columns: []model.Column{
				{Name: "id", SQLType: "integer", NotNull: true},
				{Name: "venue_id", SQLType: "integer", NotNull: true},
				{Name: "title", SQLType: "text", NotNull: false, HasDefault: true, Default: "'untitled'"},
			}},
		},
		UniqueConstraints: []model.UniqueConstraint{
			{Schema: "app", Table: "venues", Name: "venues_name_key", Columns: []string{"name"}},
		},
		Indexes: []model.Index{
			{Schema: "app", Table: "concerts", Name: "concerts_title_idx", Columns: []string{"title"}},
		},
		ForeignKeys: []model.ForeignKey{
			{Schema: "app", Table: "concerts", Name: "concerts_venue_id_fkey", Columns: []string{"venue_id"}, RefSchema: "app", RefTable: "venues", RefColumns: []string{"id"}},
		},
		TriggerFunctions: []model.TriggerFunction{
			{Schema: "app", Table: "concerts", Name: "exograph_update_concerts", ManagedColumns: []string{"title"}},
		},
		Triggers: []model.Trigger{
			{Schema: "app", Table: "concerts", Name: "concerts_update_trigger", FunctionName: "exograph_update_concerts"},
		},
	}

	ops := differ.Diff(spec, spec, differ.Scope{Kind: differ.AllSchemas})
	c.Assert(ops, qt.HasLen, 0)
}
