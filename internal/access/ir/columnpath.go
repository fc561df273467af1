// Package ir defines the two predicate intermediate representations the
// access compiler (internal/access/compiler) produces and the access
// solver (internal/access/solver) reduces: column paths, field paths, and
// the database/precheck flavors of the access predicate tree (spec.md §3
// "Column path" through "Access predicate (IR)").
package ir

import "github.com/stokaro/exoptah/internal/schema/resolved"

// ColumnPathLink is one hop of a ColumnPath: either a relation traversal
// (with its target table and an optional SQL alias) or the terminal leaf
// column.
type ColumnPathLink struct {
	Kind ColumnPathLinkKind

	// Relation fields, valid when Kind == LinkRelation.
	FKColumns  []string
	TargetTable resolved.TableName
	TargetPKColumns []string
	Alias      string // "" means Unaliased, see spec.md §4.5

	// Leaf fields, valid when Kind == LinkLeaf.
	Column string
}

type ColumnPathLinkKind int

const (
	LinkRelation ColumnPathLinkKind = iota
	LinkLeaf
)

// Aliased reports whether this relation link currently carries an alias.
func (l ColumnPathLink) Aliased() bool { return l.Kind == LinkRelation && l.Alias != "" }

// Equal compares two links for equality; alias is included, per spec.md §3
// ("Equality and hashing include the alias").
func (l ColumnPathLink) Equal(o ColumnPathLink) bool {
	if l.Kind != o.Kind {
		return false
	}
	if l.Kind == LinkLeaf {
		return l.Column == o.Column
	}
	if l.Alias != o.Alias || l.TargetTable != o.TargetTable {
		return false
	}
	if len(l.FKColumns) != len(o.FKColumns) {
		return false
	}
	for i := range l.FKColumns {
		if l.FKColumns[i] != o.FKColumns[i] {
			return false
		}
	}
	return true
}

// ColumnPath is an ordered, non-empty sequence of links anchoring a
// predicate operand in SQL (spec.md §3 "Column path").
type ColumnPath struct {
	Links []ColumnPathLink
}

// Init starts a new column path rooted at head.
func Init(head ColumnPathLink) ColumnPath {
	return ColumnPath{Links: []ColumnPathLink{head}}
}

// Push returns a new ColumnPath with link appended. ColumnPath is treated
// as immutable after construction (spec.md §9 "value semantics with cheap
// cloning"); Push never mutates the receiver's backing array in place from
// the caller's point of view.
func (p ColumnPath) Push(link ColumnPathLink) ColumnPath {
	next := make([]ColumnPathLink, len(p.Links), len(p.Links)+1)
	copy(next, p.Links)
	next = append(next, link)
	return ColumnPath{Links: next}
}

// SplitHead returns the first link and, if more than one link remains, the
// tail as a ColumnPath.
func (p ColumnPath) SplitHead() (ColumnPathLink, *ColumnPath) {
	if len(p.Links) == 0 {
		return ColumnPathLink{}, nil
	}
	head := p.Links[0]
	if len(p.Links) == 1 {
		return head, nil
	}
	return head, &ColumnPath{Links: append([]ColumnPathLink(nil), p.Links[1:]...)}
}

// Join appends other's links after p's, used when composing a nested
// `some` body's column path onto its outer path.
func (p ColumnPath) Join(other ColumnPath) ColumnPath {
	next := make([]ColumnPathLink, 0, len(p.Links)+len(other.Links))
	next = append(next, p.Links...)
	next = append(next, other.Links...)
	return ColumnPath{Links: next}
}

// LeafColumn returns the terminal column name, or "" if the path does not
// end on a leaf (e.g. it ends on an unresolved relation link).
func (p ColumnPath) LeafColumn() string {
	if len(p.Links) == 0 {
		return ""
	}
	last := p.Links[len(p.Links)-1]
	if last.Kind == LinkLeaf {
		return last.Column
	}
	return ""
}

// LeadTableID identifies the table the first link reads from: the alias if
// the head relation link is aliased, else its target table's qualified
// name; for a bare leaf head it returns the leaf's column name. Used to detect alias collisions when joining nested paths
// (spec.md §4.5 "lead-table identity").
func (p ColumnPath) LeadTableID() string {
	if len(p.Links) == 0 {
		return ""
	}
	head := p.Links[0]
	if head.Kind == LinkLeaf {
		return head.Column
	}
	if head.Alias != "" {
		return head.Alias
	}
	return head.TargetTable.Schema + "." + head.TargetTable.Name
}

// Equal performs a deep, alias-sensitive comparison of two column paths.
func (p ColumnPath) Equal(o ColumnPath) bool {
	if len(p.Links) != len(o.Links) {
		return false
	}
	for i := range p.Links {
		if !p.Links[i].Equal(o.Links[i]) {
			return false
		}
	}
	return true
}
