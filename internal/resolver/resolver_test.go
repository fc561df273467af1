package resolver_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"github.com/stokaro/exoptah/internal/resolver"
	"github.com/stokaro/exoptah/internal/schema/ast"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

func field(name, typeName string, opts ...func(*ast.FieldDecl)) ast.FieldDecl {
	f := ast.FieldDecl{
		Name: ast.Ident{Name: name},
		Type: ast.TypeRef{Name: typeName},
	}
	for _, o := range opts {
		o(&f)
	}
	return f
}

func optional(f *ast.FieldDecl)   { f.Type.Optional = true }
func list(f *ast.FieldDecl)       { f.Type.List = true }
func annotated(names ...string) func(*ast.FieldDecl) {
	return func(f *ast.FieldDecl) {
		for _, n := range names {
			f.Annotations = append(f.Annotations, ast.Annotation{Name: ast.Ident{Name: n}})
		}
	}
}

func blogSystem() ast.System {
	concert := ast.TypeDecl{
		Name: ast.Ident{Name: "Concert"},
		Fields: []ast.FieldDecl{
			field("id", "Int", annotated("pk")),
			field("title", "String"),
			field("venue", "Venue"),
		},
	}
	venue := ast.TypeDecl{
		Name: ast.Ident{Name: "Venue"},
		Fields: []ast.FieldDecl{
			field("id", "Int", annotated("pk")),
			field("name", "String"),
			field("concerts", "Concert", list),
		},
	}
	return ast.System{
		Modules: []ast.Module{{
			Name:         ast.Ident{Name: "main"},
			Declarations: []ast.Declaration{concert, venue},
		}},
	}
}

func TestBuild_ResolvesEntitiesAndScalarFields(t *testing.T) {
	c := qt.New(t)

	sys, diags := resolver.New().Build(blogSystem())
	c.Assert(diags, qt.HasLen, 0)
	c.Assert(sys, qt.IsNotNil)
	c.Assert(sys.Composites, qt.HasLen, 2)

	concert, ok := sys.CompositeByName("Concert")
	c.Assert(ok, qt.IsTrue)
	title, ok := concert.FieldByName("title")
	c.Assert(ok, qt.IsTrue)
	c.Assert(title.Type.Kind, qt.Equals, resolved.TPrimitive)
	c.Assert(title.Type.Primitive, qt.Equals, resolved.String)
}

func TestBuild_InfersOneToManyFromReciprocalFields(t *testing.T) {
	c := qt.New(t)

	sys, diags := resolver.New().Build(blogSystem())
	c.Assert(diags, qt.HasLen, 0)

	concert, _ := sys.CompositeByName("Concert")
	venue, _ := sys.CompositeByName("Venue")

	venueField, _ := concert.FieldByName("venue")
	c.Assert(venueField.Relation, qt.IsNotNil)
	c.Assert(venueField.Relation.Kind, qt.Equals, resolved.RelManyToOne)
	c.Assert(venueField.Relation.Target, qt.Equals, venue.ID)

	concertsField, _ := venue.FieldByName("concerts")
	c.Assert(concertsField.Relation, qt.IsNotNil)
	c.Assert(concertsField.Relation.Kind, qt.Equals, resolved.RelOneToMany)
	c.Assert(concertsField.Cardinality, qt.Equals, resolved.Unbounded)
}

func TestBuild_UnknownTypeProducesDiagnosticNotPanic(t *testing.T) {
	c := qt.New(t)

	sys := ast.System{
		Modules: []ast.Module{{
			Name: ast.Ident{Name: "main"},
			Declarations: []ast.Declaration{ast.TypeDecl{
				Name: ast.Ident{Name: "Orphan"},
				Fields: []ast.FieldDecl{
					field("id", "Int", annotated("pk")),
					field("whatever", "DoesNotExist"),
				},
			}},
		}},
	}

	out, diags := resolver.New().Build(sys)
	c.Assert(out, qt.IsNil)
	c.Assert(len(diags) > 0, qt.IsTrue)
}

func TestBuild_CollectionWithNoReciprocalIsADiagnostic(t *testing.T) {
	c := qt.New(t)

	a := ast.TypeDecl{
		Name: ast.Ident{Name: "A"},
		Fields: []ast.FieldDecl{
			field("id", "Int", annotated("pk")),
			field("bs", "B", list),
		},
	}
	b := ast.TypeDecl{
		Name: ast.Ident{Name: "B"},
		Fields: []ast.FieldDecl{
			field("id", "Int", annotated("pk")),
		},
	}
	sys := ast.System{Modules: []ast.Module{{
		Name:         ast.Ident{Name: "main"},
		Declarations: []ast.Declaration{a, b},
	}}}

	_, diags := resolver.New().Build(sys)
	c.Assert(len(diags) > 0, qt.IsTrue)
}

// TestBuild_DeterministicAcrossRuns guards the property spec.md §8 calls
// "two runs produce equal IRs": resolving the same ast.System twice, each
// with its own Resolver and diagnostic.Bag, must yield structurally
// identical composites in the same arena order. Before the pending-type
// maps in Build/inferRelations were iterated in sorted-name order instead
// of native map order, this failed intermittently because Go deliberately
// randomizes map iteration.
func TestBuild_DeterministicAcrossRuns(t *testing.T) {
	c := qt.New(t)

	sysA, diagsA := resolver.New().Build(blogSystem())
	sysB, diagsB := resolver.New().Build(blogSystem())

	c.Assert(diagsA, qt.HasLen, 0)
	c.Assert(diagsB, qt.HasLen, 0)

	if diff := cmp.Diff(sysA.Composites, sysB.Composites); diff != "" {
		t.Fatalf("two builds of the same system produced different composite arenas (-run1 +run2):\n%s", diff)
	}
	if diff := cmp.Diff(sysA.Enums, sysB.Enums); diff != "" {
		t.Fatalf("two builds of the same system produced different enum arenas (-run1 +run2):\n%s", diff)
	}
}

func TestBuildMany_ResolvesEachSystemIndependently(t *testing.T) {
	c := qt.New(t)

	other := ast.System{Modules: []ast.Module{{
		Name: ast.Ident{Name: "main"},
		Declarations: []ast.Declaration{ast.TypeDecl{
			Name:   ast.Ident{Name: "Tag"},
			Fields: []ast.FieldDecl{field("id", "Int", annotated("pk"))},
		}},
	}}}

	results, diags := resolver.BuildMany([]ast.System{blogSystem(), other})
	c.Assert(results, qt.HasLen, 2)
	c.Assert(diags, qt.HasLen, 2)
	c.Assert(diags[0], qt.HasLen, 0)
	c.Assert(diags[1], qt.HasLen, 0)

	c.Assert(results[0].Composites, qt.HasLen, 2)
	c.Assert(results[1].Composites, qt.HasLen, 1)

	_, ok := results[1].CompositeByName("Tag")
	c.Assert(ok, qt.IsTrue)
}
