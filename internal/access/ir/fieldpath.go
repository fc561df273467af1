package ir

// FieldPathKind distinguishes the two FieldPath shapes of spec.md §3.
type FieldPathKind int

const (
	FieldNormal FieldPathKind = iota
	FieldPk
)

// FieldPath is the logical-field-name counterpart to ColumnPath: it roots
// the input-document side of precheck evaluation (`self.author.name`)
// while ColumnPath roots the SQL side.
//
// Normal carries only a plain sequence of field names; it holds no default
// value of its own (only Pk paths carry one, in LeadDefault).
//
// Pk appears once the walk has crossed a many-to-one relation: Lead is the
// field-name sequence up to (and including) that relation field, PKFields
// are the target composite's primary-key field names (possibly more than
// one for a composite key), and LeadDefault is the relation field's own
// default (e.g. a nullable FK defaulting to null).
type FieldPath struct {
	Kind FieldPathKind

	Normal []string

	Lead        []string
	PKFields    []string
	LeadDefault *DefaultLiteral
}

// DefaultLiteral is a small literal value a field path can fall back on
// when the input document is missing the field. Kept separate from
// resolved.DefaultValue (which describes DB-side generation, not a value
// the solver can substitute directly).
type DefaultLiteral struct {
	Kind DefaultLiteralKind
	Bool bool
	Null bool
}

type DefaultLiteralKind int

const (
	DefaultLiteralNone DefaultLiteralKind = iota
	DefaultLiteralBool
	DefaultLiteralNull
)

// PushNormal appends a field name to a Normal field path, returning a new
// FieldPath (copy-on-write, matching ColumnPath's immutability).
func (fp FieldPath) PushNormal(name string) FieldPath {
	if fp.Kind != FieldNormal {
		return FieldPath{Kind: FieldNormal, Normal: []string{name}}
	}
	next := make([]string, len(fp.Normal), len(fp.Normal)+1)
	copy(next, fp.Normal)
	next = append(next, name)
	return FieldPath{Kind: FieldNormal, Normal: next}
}

// ToPk converts a Normal field path into a Pk field path at a many-to-one
// hop, recording the target's PK field names (spec.md §4.2 "Field paths
// become Pk at the first many-to-one hop").
func (fp FieldPath) ToPk(pkFields []string, leadDefault *DefaultLiteral) FieldPath {
	lead := fp.Normal
	if fp.Kind == FieldPk {
		lead = fp.Lead
	}
	return FieldPath{
		Kind:        FieldPk,
		Lead:        append([]string(nil), lead...),
		PKFields:    append([]string(nil), pkFields...),
		LeadDefault: leadDefault,
	}
}
