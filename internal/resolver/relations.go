package resolver

import (
	"fmt"

	"github.com/stokaro/exoptah/internal/schema/ast"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

// inferRelations turns every composite-typed field into a resolved.Relation
// by finding its reciprocal field (if any) on the target composite and
// deriving cardinality from the Optional/List shape of both sides (spec.md
// §4.1 "Cardinality inference"). It must run after every composite's
// fields have resolved types, since it looks fields up by name across
// composites.
func (r *Resolver) inferRelations(pending map[string]*pendingType, sys *resolved.System) {
	// visited guards against processing the same pair of reciprocal fields
	// twice (once from each side).
	visited := map[string]bool{}

	for _, composite := range sys.Composites {
		pt := pending[composite.Name]
		for i := range composite.Fields {
			f := &composite.Fields[i]
			if f.Type.Kind != resolved.TComposite {
				continue
			}
			key := compositeFieldKey(composite.ID, f.Name)
			if visited[key] {
				continue
			}
			fd, _ := fieldDecl(pt.decl, f.Name)
			r.resolveOneRelation(pt, fd, f, sys, pending, visited)
		}
	}
}

func compositeFieldKey(id resolved.CompositeID, field string) string {
	return fmt.Sprintf("%d:%s", id, field)
}

func fieldDecl(td ast.TypeDecl, name string) (ast.FieldDecl, bool) {
	for _, f := range td.Fields {
		if f.Name.Name == name {
			return f, true
		}
	}
	return ast.FieldDecl{}, false
}

// resolveOneRelation resolves field f (declared on composite owner, source
// declaration fd) and, if a reciprocal field exists on the target, resolves
// it too in the same pass so both sides agree on Kind/ColumnNames.
func (r *Resolver) resolveOneRelation(owner *pendingType, fd ast.FieldDecl, f *resolved.Field, sys *resolved.System, pending map[string]*pendingType, visited map[string]bool) {
	target := sys.Composite(f.Type.Composite)
	explicitName, hasExplicit := relationArg(fd)

	var reciprocal *resolved.Field
	var reciprocalIdx int = -1
	var reciprocalFd ast.FieldDecl
	targetDecl := ast.TypeDecl{}
	if tp, ok := pending[target.Name]; ok {
		targetDecl = tp.decl
	}

	for i := range target.Fields {
		cand := &target.Fields[i]
		if cand.Type.Kind != resolved.TComposite || cand.Type.Composite != owner.composite.ID {
			continue
		}
		if hasExplicit && cand.Name != explicitName {
			continue
		}
		cfd, _ := fieldDecl(targetDecl, cand.Name)
		if cName, ok := relationArg(cfd); ok && cName != f.Name {
			continue
		}
		reciprocal = cand
		reciprocalIdx = i
		reciprocalFd = cfd
		break
	}

	fCollection := f.Type.List
	fOptional := f.Type.Optional

	if reciprocal == nil {
		// One-directional relation: the declaring side always owns the
		// foreign key (there is no other side to own it), so it can only
		// be many-to-one (scalar reference) — a collection with no
		// reciprocal has nowhere to store its rows' foreign keys.
		if fCollection {
			r.bag.Addf(fd.Span, "field %q is a collection relation with no reciprocal field on %s to own its foreign key", f.Name, target.Name)
			return
		}
		f.Relation = &resolved.Relation{Kind: resolved.RelManyToOne, Target: target.ID, ColumnNames: f.ColumnNames}
		f.Cardinality = oneCardinality(fOptional)
		return
	}

	rCollection := reciprocal.Type.List
	rOptional := reciprocal.Type.Optional

	switch {
	case fCollection && rCollection:
		r.bag.Addf(fd.Span, "many-to-many between %q and %q requires an explicit linking type, not two collection fields", owner.composite.Name, target.Name)
		return
	case fCollection && !rCollection:
		r.setOneToMany(owner.composite, f, fd, target, reciprocal, reciprocalFd, rOptional)
	case !fCollection && rCollection:
		r.setOneToMany(target, reciprocal, reciprocalFd, owner.composite, f, fd, fOptional)
	case !fOptional && !rOptional:
		r.bag.Addf(fd.Span, "one-to-one between %q and %q must have exactly one optional side to own the nullable foreign key", owner.composite.Name, target.Name)
		return
	default:
		r.setOneToOne(owner.composite, f, fd, target, reciprocal, reciprocalFd, fOptional, rOptional)
	}

	visited[compositeFieldKey(owner.composite.ID, f.Name)] = true
	if reciprocalIdx >= 0 {
		visited[compositeFieldKey(target.ID, reciprocal.Name)] = true
	}
}

// setOneToMany wires the "many" side (manyField, on manyOwner) as owning the
// foreign key toward oneOwner, and the "one" side (oneField) as the inverse
// collection with no column of its own.
func (r *Resolver) setOneToMany(oneOwner *resolved.Composite, oneField *resolved.Field, oneFd ast.FieldDecl, manyOwner *resolved.Composite, manyField *resolved.Field, manyFd ast.FieldDecl, manyOptional bool) {
	if _, ok := oneFd.Annotation("column"); ok {
		r.bag.Addf(oneFd.Span, "@column is not permitted on the collection side %q of a one-to-many relation", oneField.Name)
	}
	oneField.Relation = &resolved.Relation{Kind: resolved.RelOneToMany, Target: manyOwner.ID, InverseFieldName: manyField.Name}
	oneField.Cardinality = resolved.Unbounded
	oneField.ColumnNames = nil

	manyField.Relation = &resolved.Relation{Kind: resolved.RelManyToOne, Target: oneOwner.ID, ColumnNames: manyField.ColumnNames, InverseFieldName: oneField.Name}
	manyField.Cardinality = oneCardinality(manyOptional)
}

func (r *Resolver) setOneToOne(ownerA *resolved.Composite, fA *resolved.Field, fdA ast.FieldDecl, ownerB *resolved.Composite, fB *resolved.Field, fdB ast.FieldDecl, aOptional, bOptional bool) {
	// The optional side owns the nullable foreign key; the non-optional
	// side is the inverse with no column (spec.md §4.1 "Ownership of
	// columns": "the non-optional side of a one-to-one has no column").
	if aOptional {
		fA.Relation = &resolved.Relation{Kind: resolved.RelOneToOne, Target: ownerB.ID, ColumnNames: fA.ColumnNames, InverseFieldName: fB.Name}
		fA.Cardinality = resolved.ZeroOrOne
		fB.Relation = &resolved.Relation{Kind: resolved.RelOneToOne, Target: ownerA.ID, InverseFieldName: fA.Name}
		fB.Cardinality = resolved.One
		fB.ColumnNames = nil
		if _, ok := fdB.Annotation("column"); ok {
			r.bag.Addf(fdB.Span, "@column is not permitted on the non-optional side %q of a one-to-one relation", fB.Name)
		}
		return
	}
	fB.Relation = &resolved.Relation{Kind: resolved.RelOneToOne, Target: ownerA.ID, ColumnNames: fB.ColumnNames, InverseFieldName: fA.Name}
	fB.Cardinality = resolved.ZeroOrOne
	fA.Relation = &resolved.Relation{Kind: resolved.RelOneToOne, Target: ownerB.ID, InverseFieldName: fB.Name}
	fA.Cardinality = resolved.One
	fA.ColumnNames = nil
	if _, ok := fdA.Annotation("column"); ok {
		r.bag.Addf(fdA.Span, "@column is not permitted on the non-optional side %q of a one-to-one relation", fA.Name)
	}
}

func oneCardinality(optional bool) resolved.Cardinality {
	if optional {
		return resolved.ZeroOrOne
	}
	return resolved.One
}

// relationArg reads an explicit @manyToOne("field")/@oneToOne("field") hint
// disambiguating which reciprocal field this relation pairs with, used when
// a composite has more than one relation field pointing at the same target
// (spec.md §4.1 "explicit @relation when no reciprocal is inferable").
func relationArg(fd ast.FieldDecl) (string, bool) {
	for _, name := range []string{"manyToOne", "oneToOne", "oneToMany", "relation"} {
		if a, ok := fd.Annotation(name); ok {
			if s := stringArg(a, ""); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

