// Package resolved holds the typed, normalized model the Resolver produces
// from a typechecked ast.System (spec.md §3 "Resolved type" through
// "Relation"). Composites are stored in a flat arena and referenced by
// stable index rather than by pointer, per spec.md §9's "cyclic ownership"
// re-architecture note: two composites that point at each other (a common
// shape for one-to-one and many-to-one relations) never need a pointer
// cycle, only two small integers.
package resolved

import "github.com/stokaro/exoptah/internal/schema/ast"

// CompositeID indexes into System.Composites. AddComposite hands out ids
// from 0 in insertion order, so id 0 is the first composite; NoComposite
// (-1) marks an absent id.
type CompositeID int

// EnumID indexes into System.Enums.
type EnumID int

const NoComposite CompositeID = -1
const NoEnum EnumID = -1

// PrimitiveKind enumerates the named scalar types of spec.md §3.
type PrimitiveKind int

const (
	Int PrimitiveKind = iota
	Float
	Decimal
	String
	Boolean
	Instant
	LocalDate
	LocalTime
	LocalDateTime
	Uuid
	Blob
	Vector
)

func (k PrimitiveKind) String() string {
	return [...]string{
		"Int", "Float", "Decimal", "String", "Boolean", "Instant",
		"LocalDate", "LocalTime", "LocalDateTime", "Uuid", "Blob", "Vector",
	}[k]
}

// Type is the tagged variant of spec.md §3 "Resolved type": Primitive,
// Enum, or Composite, each optionally wrapped in Optional<T> or List<T>.
// There is no Array PrimitiveKind.
type Type struct {
	Kind TypeKind

	Primitive PrimitiveKind // valid when Kind == TPrimitive
	EnumID    EnumID        // valid when Kind == TEnum
	Composite CompositeID   // valid when Kind == TComposite

	// ArrayElement is an element-type slot; the resolver never sets it, so
	// it is always nil. It is a pointer because a struct cannot contain
	// itself by value.
	ArrayElement *Type

	Optional bool
	List     bool
}

// TypeKind distinguishes Type's three variants.
type TypeKind int

const (
	TPrimitive TypeKind = iota
	TEnum
	TComposite
)

// Representation classifies how a Composite's rows are owned, per
// spec.md §3.
type Representation int

const (
	Managed Representation = iota
	NotManaged
	Json
)

// TableName is a schema-qualified table identifier.
type TableName struct {
	Schema string
	Name   string
}

// Cardinality classifies the "many" side of a Relation, per spec.md §3.
type Cardinality int

const (
	ZeroOrOne Cardinality = iota
	One
	Unbounded
)

// RelationKind is the tagged variant of spec.md §3 "Relation".
type RelationKind int

const (
	RelScalar RelationKind = iota
	RelManyToOne
	RelOneToMany
	RelOneToOne
)

// Relation is derived from a pair of fields on two entities, never
// constructed directly from source syntax (the Resolver infers it, see
// internal/resolver/relations.go).
type Relation struct {
	Kind RelationKind

	// Target is the composite on the other side of the relation.
	Target CompositeID

	// ColumnNames lists the foreign-key columns this field owns (ManyToOne,
	// or the optional side of a OneToOne); it is empty for OneToMany and for
	// the non-optional side of a OneToOne, whose column lives on the other
	// side.
	ColumnNames []string

	// InverseFieldName is the reciprocal field's name on Target, used by
	// the access compiler to walk the relation in the other direction.
	InverseFieldName string
}

// TypeHint is a structured override of a field's default DB type mapping
// (spec.md §3 Field "type_hint").
type TypeHint struct {
	Kind TypeHintKind

	IntBits     int
	IntRange    [2]int64
	FloatBits   int
	DecimalPrec int
	DecimalScale int
	StringLen   int
	DateTimePrecision int

	// RawDBType is set when the field used `@dbtype("...")` instead of a
	// structured hint; mutually exclusive with the rest per spec.md §4.1.
	RawDBType string
}

type TypeHintKind int

const (
	HintNone TypeHintKind = iota
	HintInt
	HintFloat
	HintDecimal
	HintString
	HintDateTime
	HintRaw
)

// DefaultKind is the tagged variant of spec.md §3 Field "default_value".
type DefaultKind int

const (
	DefaultNone DefaultKind = iota
	DefaultLiteral
	DefaultPostgresFunction
	DefaultAutoIncrement
	DefaultUUIDGenerate
	DefaultNow
)

// DefaultValue describes how a column's default is computed.
type DefaultValue struct {
	Kind DefaultKind

	// Literal holds the literal expression text for DefaultLiteral.
	Literal string
	// FunctionName holds the Postgres function name for
	// DefaultPostgresFunction (spec.md §4.1 "any other function name is a
	// diagnostic" means everything reaching here has been validated).
	FunctionName string
	// SequenceSchema/SequenceName are set when DefaultAutoIncrement refers
	// to an explicit existing sequence via autoIncrement("schema.name").
	SequenceSchema string
	SequenceName   string
}

// Field is spec.md §3 "Field".
type Field struct {
	Name    string
	Type    Type
	IsPK    bool

	// ColumnNames is one column for a scalar field, or one per target PK
	// for a composite relation field that owns its columns.
	ColumnNames []string
	SelfColumn  bool

	Access      *AccessRule // read rule, nil if unrestricted
	TypeHint    TypeHint
	UniqueGroups []string
	IndexGroups  []string
	Default      DefaultValue
	UpdateSync   bool
	Readonly     bool
	Cardinality  Cardinality

	Relation *Relation // non-nil when this field denotes a relation

	// Vector-specific (valid only when Type.Primitive == Vector).
	VectorSize             int
	VectorIndex             bool
	VectorDistanceFunction  string // "cosine" | "l2" | "ip", default "cosine"
}

// AccessRule wraps the compiled read predicate attached to a Composite or
// Field. The concrete IR type lives in internal/access/ir to avoid a
// resolved <-> ir import cycle; this package only needs an opaque handle.
type AccessRule struct {
	// Compiled holds the *ir.DatabaseExpr as `any` so this package does not
	// need to import internal/access/ir (which itself may want to import
	// resolved for CompositeID/Field lookups). Call sites assert the type.
	Compiled any
}

// Composite is spec.md §3 "Composite type".
type Composite struct {
	ID             CompositeID
	Name           string
	PluralName     string
	Representation Representation
	TableName      TableName
	Fields         []Field
	Access         *AccessRule
	SchemaOverride string
}

// FieldByName finds a field by name, returning (field, true) or the zero
// value and false.
func (c *Composite) FieldByName(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PKFields returns the composite's primary-key fields in declaration order.
func (c *Composite) PKFields() []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.IsPK {
			out = append(out, f)
		}
	}
	return out
}

// Enum is spec.md §3 "Enum" resolved type.
type Enum struct {
	ID       EnumID
	Name     string
	Variants []string
	DBName   TableName
}

// System is the full output of Resolver.Build: an arena of composites and
// enums referenced everywhere else in the compiler by index, plus the
// declared contexts access expressions may select from.
type System struct {
	Composites []*Composite
	Enums      []*Enum

	byName     map[string]CompositeID
	enumByName map[string]EnumID

	Contexts []ast.ContextDecl
}

// NewSystem returns an empty, ready-to-populate System.
func NewSystem() *System {
	return &System{
		byName:     map[string]CompositeID{},
		enumByName: map[string]EnumID{},
	}
}

// AddComposite appends c to the arena, assigning its ID, and returns that ID.
func (s *System) AddComposite(c *Composite) CompositeID {
	id := CompositeID(len(s.Composites))
	c.ID = id
	s.Composites = append(s.Composites, c)
	s.byName[c.Name] = id
	return id
}

// AddEnum appends e to the arena, assigning its ID, and returns that ID.
func (s *System) AddEnum(e *Enum) EnumID {
	id := EnumID(len(s.Enums))
	e.ID = id
	s.Enums = append(s.Enums, e)
	s.enumByName[e.Name] = id
	return id
}

// CompositeByName resolves a composite by its declared name.
func (s *System) CompositeByName(name string) (*Composite, bool) {
	id, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.Composites[id], true
}

// EnumByName resolves an enum by its declared name.
func (s *System) EnumByName(name string) (*Enum, bool) {
	id, ok := s.enumByName[name]
	if !ok {
		return nil, false
	}
	return s.Enums[id], true
}

// Composite dereferences a CompositeID. Panics on an out-of-range id, which
// would indicate a compiler bug (ids are only ever handed out by AddComposite).
func (s *System) Composite(id CompositeID) *Composite { return s.Composites[id] }

// Enum dereferences an EnumID.
func (s *System) Enum(id EnumID) *Enum { return s.Enums[id] }
