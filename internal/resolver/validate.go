package resolver

import (
	"github.com/stokaro/exoptah/internal/diagnostic"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

// validate checks the cross-cutting invariants of spec.md §3 that only make
// sense once every composite's fields and relations have been resolved:
// owning-side column counts and Json composites staying free of relations
// and access rules (spec.md §4.1 "Json types"). PK presence is checked
// earlier, in resolveFields.
func (r *Resolver) validate(sys *resolved.System) {
	for _, c := range sys.Composites {
		for _, f := range c.Fields {
			r.validateField(sys, c, f)
		}
	}
}

func (r *Resolver) validateField(sys *resolved.System, c *resolved.Composite, f resolved.Field) {
	if c.Representation == resolved.Json {
		if f.Relation != nil {
			r.bag.Addf(diagnostic.Synthetic(), "field %q of @json composite %q may not be a relation", f.Name, c.Name)
		}
		if f.Access != nil {
			r.bag.Addf(diagnostic.Synthetic(), "field %q of @json composite %q may not carry an access rule", f.Name, c.Name)
		}
		return
	}

	if f.Relation == nil {
		return
	}

	target := sys.Composite(f.Relation.Target)

	switch f.Relation.Kind {
	case resolved.RelManyToOne, resolved.RelOneToOne:
		if f.Cardinality == resolved.ZeroOrOne || f.Cardinality == resolved.One {
			pkCount := len(target.PKFields())
			if len(f.Relation.ColumnNames) > 0 && pkCount > 0 && len(f.Relation.ColumnNames) != pkCount {
				r.bag.Addf(diagnostic.Synthetic(), "field %q owns %d column(s) but target %q has %d primary-key column(s)", f.Name, len(f.Relation.ColumnNames), target.Name, pkCount)
			}
		}
	case resolved.RelOneToMany:
		if len(f.Relation.ColumnNames) != 0 {
			r.bag.Addf(diagnostic.Synthetic(), "one-to-many field %q must not own a column", f.Name)
		}
	}
}
