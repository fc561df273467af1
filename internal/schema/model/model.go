// Package model holds the schema-first object model that the differ
// compares: schemas, tables, columns, indexes, unique and foreign-key
// constraints, extensions, and the update-trigger functions @update fields
// require (spec.md §4.3). Two Specs are produced from different sources —
// one from a resolved.System (internal/schema/model.FromResolved), one from
// a live database (internal/dbschema/postgres) — but the differ only ever
// sees this shared shape, grounded on the teacher's dbschema/types.DBSchema
// (the "read side" of the same idea).
package model

// Column is one column of a Table.
type Column struct {
	Name       string
	SQLType    string
	NotNull    bool
	HasDefault bool
	Default    string // raw SQL default expression
}

// Table is a schema-qualified relation.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
}

// QualifiedName returns "schema.name", or bare "name" when Schema is empty
// (the default/"public" schema, rendered unqualified per spec.md §4.3
// "Rendering").
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// UniqueConstraint is tracked by name (spec.md §4.3 "treat by name").
type UniqueConstraint struct {
	Schema, Table, Name string
	Columns             []string
}

// Index is tracked by name; Method is "" for a default btree index or
// "hnsw" for a vector index, in which case OperatorClass names the
// vector_<fn>_ops class picked from the field's distance function.
type Index struct {
	Schema, Table, Name string
	Columns             []string
	Method              string
	OperatorClass       string
}

// ForeignKey is emitted as a table-altering constraint once both tables
// exist (spec.md §4.3 step 8).
type ForeignKey struct {
	Schema, Table, Name string
	Columns             []string
	RefSchema, RefTable string
	RefColumns          []string
}

// TriggerFunction is the per-table function spec.md §4.3 step 7 describes:
// `exograph_update_<table>()`, which assigns every @update-managed column
// in NEW.
type TriggerFunction struct {
	Schema, Table, Name string
	ManagedColumns      []string
}

// Trigger is the BEFORE UPDATE trigger invoking a TriggerFunction.
type Trigger struct {
	Schema, Table, Name, FunctionName string
}

// Enum is a Postgres enum type.
type Enum struct {
	Schema, Name string
	Values       []string
}

// Spec is the full structural description of one side of a diff.
type Spec struct {
	Schemas           []string
	Extensions        []string
	Tables            []Table
	Enums             []Enum
	UniqueConstraints []UniqueConstraint
	Indexes           []Index
	ForeignKeys       []ForeignKey
	TriggerFunctions  []TriggerFunction
	Triggers          []Trigger
}
