// Package differ implements spec.md §4.3's structural, schema-first diff
// algorithm: given two model.Spec values (old, new) and a Scope, produce an
// ordered list of Operations a migration.Planner can bin into phases and
// render to SQL. Grounded on the teacher's migration/schemadiff package,
// generalized from ptah's Go-struct-vs-database comparison to our
// resolved-model-vs-database comparison.
package differ

import (
	"fmt"
	"sort"

	"github.com/stokaro/exoptah/internal/schema/model"
)

// ScopeKind selects which schemas a diff is allowed to touch (spec.md §4.3
// "Scope").
type ScopeKind int

const (
	AllSchemas ScopeKind = iota
	Specified
	FromNewSpec
)

// Scope restricts a Diff to a subset of schemas; any object outside scope is
// ignored on both sides.
type Scope struct {
	Kind    ScopeKind
	Schemas map[string]bool // only consulted when Kind == Specified

	// IgnoreExtensions names PostgreSQL extensions that are never diffed:
	// neither a missing-on-old nor a missing-on-new is reported for them.
	// Grounded on the teacher's config.CompareOptions.IgnoredExtensions,
	// whose default covers extensions a managed database typically ships
	// pre-installed (e.g. "plpgsql") that a migration should never try to
	// create or drop.
	IgnoreExtensions []string
}

// ignoresExtension reports whether name is in scope's ignore list.
func (s Scope) ignoresExtension(name string) bool {
	for _, e := range s.IgnoreExtensions {
		if e == name {
			return true
		}
	}
	return false
}

// DefaultIgnoredExtensions mirrors the teacher's DefaultCompareOptions:
// "plpgsql" ships pre-installed on every PostgreSQL server and should never
// be diffed as a create/drop.
func DefaultIgnoredExtensions() []string {
	return []string{"plpgsql"}
}

// Includes reports whether schema is in scope. The default/unqualified
// schema ("") is always in scope: it has no schema-level create/delete
// operation to gate.
func (s Scope) Includes(schema string, newSchemas []string) bool {
	if schema == "" {
		return true
	}
	switch s.Kind {
	case AllSchemas:
		return true
	case Specified:
		return s.Schemas[schema]
	case FromNewSpec:
		for _, n := range newSchemas {
			if n == schema {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// OpKind enumerates every DDL operation the differ can emit.
type OpKind int

const (
	CreateSchema OpKind = iota
	DeleteSchema
	CreateExtension
	RemoveExtension
	CreateTable
	DeleteTable
	AddColumn
	DropColumn
	SetNotNull
	UnsetNotNull
	SetColumnDefault
	UnsetColumnDefault
	CreateUnique
	DropUnique
	CreateIndex
	DropIndex
	CreateFunction
	ReplaceFunction
	DropFunction
	CreateTrigger
	DropTrigger
	AddForeignKey
	DropForeignKey
)

// Operation is one DDL change. Only the fields relevant to Kind are
// populated; the rest are zero.
type Operation struct {
	Kind   OpKind
	Schema string
	Table  string

	SchemaName string // CreateSchema/DeleteSchema
	Extension  string // CreateExtension/RemoveExtension

	TableDef model.Table // CreateTable/DeleteTable

	Column    model.Column // AddColumn/DropColumn/SetNotNull/.../SetColumnDefault
	OldColumn model.Column // present for SetNotNull/.../UnsetColumnDefault, the prior shape

	Unique model.UniqueConstraint // CreateUnique/DropUnique
	Index  model.Index            // CreateIndex/DropIndex

	TriggerFunction model.TriggerFunction // CreateFunction/ReplaceFunction/DropFunction
	Trigger         model.Trigger         // CreateTrigger/DropTrigger

	ForeignKey model.ForeignKey // AddForeignKey/DropForeignKey

	// ErrorString is non-empty when this operation would break something
	// the schema still relies on (spec.md §4.3 "Verification"); a verify
	// pass treats any non-empty ErrorString as a failure.
	ErrorString string
}

// Destructive reports whether applying this operation can lose data
// (spec.md §4.3 "Destructiveness": DeleteSchema, DeleteTable, DeleteColumn,
// RemoveExtension).
func (op Operation) Destructive() bool {
	switch op.Kind {
	case DeleteSchema, DeleteTable, DropColumn, RemoveExtension:
		return true
	default:
		return false
	}
}

// Diff computes the ordered (but not yet phase-binned) set of operations
// that transform old into new, restricted to scope.
func Diff(old, new *model.Spec, scope Scope) []Operation {
	var ops []Operation

	ops = append(ops, diffSchemas(old, new, scope)...)
	ops = append(ops, diffExtensions(old, new, scope)...)
	ops = append(ops, diffTables(old, new, scope)...)
	ops = append(ops, diffUniques(old, new, scope)...)
	ops = append(ops, diffIndexes(old, new, scope)...)
	ops = append(ops, diffTriggerFunctions(old, new, scope)...)
	ops = append(ops, diffForeignKeys(old, new, scope)...)

	// Uniques, indexes, trigger functions and foreign keys are collected
	// from every schema above; drop the ones whose schema is out of scope.
	kept := ops[:0]
	for _, op := range ops {
		if scope.Includes(op.Schema, new.Schemas) {
			kept = append(kept, op)
		}
	}
	ops = kept

	annotateVerification(new, ops)

	return ops
}

func diffSchemas(old, new *model.Spec, scope Scope) []Operation {
	oldSet := toSet(old.Schemas)
	newSet := toSet(new.Schemas)
	var ops []Operation
	for _, s := range sortedKeys(newSet) {
		if !oldSet[s] && scope.Includes(s, new.Schemas) {
			ops = append(ops, Operation{Kind: CreateSchema, SchemaName: s})
		}
	}
	for _, s := range sortedKeys(oldSet) {
		if !newSet[s] && scope.Includes(s, new.Schemas) {
			ops = append(ops, Operation{Kind: DeleteSchema, SchemaName: s})
		}
	}
	return ops
}

func diffExtensions(old, new *model.Spec, scope Scope) []Operation {
	oldSet := toSet(old.Extensions)
	newSet := toSet(new.Extensions)
	var ops []Operation
	for _, e := range sortedKeys(newSet) {
		if !oldSet[e] && !scope.ignoresExtension(e) {
			ops = append(ops, Operation{Kind: CreateExtension, Extension: e})
		}
	}
	for _, e := range sortedKeys(oldSet) {
		if !newSet[e] && !scope.ignoresExtension(e) {
			ops = append(ops, Operation{Kind: RemoveExtension, Extension: e})
		}
	}
	return ops
}

func diffTables(old, new *model.Spec, scope Scope) []Operation {
	oldByName := tablesByQualifiedName(old.Tables)
	newByName := tablesByQualifiedName(new.Tables)
	var ops []Operation

	for _, qn := range sortedTableKeys(newByName) {
		t := newByName[qn]
		if !scope.Includes(t.Schema, new.Schemas) {
			continue
		}
		if _, ok := oldByName[qn]; !ok {
			ops = append(ops, Operation{Kind: CreateTable, Schema: t.Schema, Table: t.Name, TableDef: t})
		}
	}
	for _, qn := range sortedTableKeys(oldByName) {
		t := oldByName[qn]
		if !scope.Includes(t.Schema, new.Schemas) {
			continue
		}
		if _, ok := newByName[qn]; !ok {
			ops = append(ops, Operation{Kind: DeleteTable, Schema: t.Schema, Table: t.Name, TableDef: t})
		}
	}

	// Columns within retained tables.
	for _, qn := range sortedTableKeys(newByName) {
		newTable, ok1 := newByName[qn]
		oldTable, ok2 := oldByName[qn]
		if !ok1 || !ok2 || !scope.Includes(newTable.Schema, new.Schemas) {
			continue
		}
		ops = append(ops, diffColumns(oldTable, newTable)...)
	}

	return ops
}

func diffColumns(old, new model.Table) []Operation {
	oldByName := columnsByName(old.Columns)
	newByName := columnsByName(new.Columns)
	var ops []Operation

	for _, name := range sortedColumnKeys(newByName) {
		col := newByName[name]
		if _, ok := oldByName[name]; !ok {
			ops = append(ops, Operation{Kind: AddColumn, Schema: new.Schema, Table: new.Name, Column: col})
		}
	}
	for _, name := range sortedColumnKeys(oldByName) {
		col := oldByName[name]
		if _, ok := newByName[name]; !ok {
			ops = append(ops, Operation{Kind: DropColumn, Schema: old.Schema, Table: old.Name, Column: col})
		}
	}
	for _, name := range sortedColumnKeys(newByName) {
		newCol, ok1 := newByName[name]
		oldCol, ok2 := oldByName[name]
		if !ok1 || !ok2 {
			continue
		}
		if oldCol.NotNull != newCol.NotNull {
			kind := SetNotNull
			if !newCol.NotNull {
				kind = UnsetNotNull
			}
			ops = append(ops, Operation{Kind: kind, Schema: new.Schema, Table: new.Name, Column: newCol, OldColumn: oldCol})
		}
		if oldCol.HasDefault != newCol.HasDefault || oldCol.Default != newCol.Default {
			if newCol.HasDefault {
				ops = append(ops, Operation{Kind: SetColumnDefault, Schema: new.Schema, Table: new.Name, Column: newCol, OldColumn: oldCol})
			} else {
				ops = append(ops, Operation{Kind: UnsetColumnDefault, Schema: new.Schema, Table: new.Name, Column: newCol, OldColumn: oldCol})
			}
		}
	}
	return ops
}

func diffUniques(old, new *model.Spec, scope Scope) []Operation {
	oldByName := uniquesByName(old.UniqueConstraints)
	newByName := uniquesByName(new.UniqueConstraints)
	var ops []Operation

	for _, key := range sortedStringKeys(newByName) {
		uc := newByName[key]
		prior, existed := oldByName[key]
		switch {
		case !existed:
			ops = append(ops, Operation{Kind: CreateUnique, Schema: uc.Schema, Table: uc.Table, Unique: uc})
		case !sameColumns(prior.Columns, uc.Columns):
			ops = append(ops, Operation{Kind: DropUnique, Schema: prior.Schema, Table: prior.Table, Unique: prior})
			ops = append(ops, Operation{Kind: CreateUnique, Schema: uc.Schema, Table: uc.Table, Unique: uc})
		}
	}
	for _, key := range sortedStringKeys(oldByName) {
		if _, ok := newByName[key]; !ok {
			uc := oldByName[key]
			ops = append(ops, Operation{Kind: DropUnique, Schema: uc.Schema, Table: uc.Table, Unique: uc})
		}
	}
	return ops
}

func diffIndexes(old, new *model.Spec, scope Scope) []Operation {
	oldByName := indexesByName(old.Indexes)
	newByName := indexesByName(new.Indexes)
	var ops []Operation

	for _, key := range sortedStringKeys(newByName) {
		idx := newByName[key]
		prior, existed := oldByName[key]
		switch {
		case !existed:
			ops = append(ops, Operation{Kind: CreateIndex, Schema: idx.Schema, Table: idx.Table, Index: idx})
		case !sameColumns(prior.Columns, idx.Columns) || prior.Method != idx.Method:
			ops = append(ops, Operation{Kind: DropIndex, Schema: prior.Schema, Table: prior.Table, Index: prior})
			ops = append(ops, Operation{Kind: CreateIndex, Schema: idx.Schema, Table: idx.Table, Index: idx})
		}
	}
	for _, key := range sortedStringKeys(oldByName) {
		if _, ok := newByName[key]; !ok {
			idx := oldByName[key]
			ops = append(ops, Operation{Kind: DropIndex, Schema: idx.Schema, Table: idx.Table, Index: idx})
		}
	}
	return ops
}

func diffTriggerFunctions(old, new *model.Spec, scope Scope) []Operation {
	oldByName := triggerFnsByName(old.TriggerFunctions)
	newByName := triggerFnsByName(new.TriggerFunctions)
	newTrigByFn := triggersByFunction(new.Triggers)
	var ops []Operation

	for _, key := range sortedStringKeys(newByName) {
		fn := newByName[key]
		prior, existed := oldByName[key]
		switch {
		case !existed:
			ops = append(ops, Operation{Kind: CreateFunction, Schema: fn.Schema, Table: fn.Table, TriggerFunction: fn})
			if trig, ok := newTrigByFn[fn.Name]; ok {
				ops = append(ops, Operation{Kind: CreateTrigger, Schema: fn.Schema, Table: fn.Table, Trigger: trig})
			}
		case !sameColumns(prior.ManagedColumns, fn.ManagedColumns):
			ops = append(ops, Operation{Kind: ReplaceFunction, Schema: fn.Schema, Table: fn.Table, TriggerFunction: fn})
		}
	}
	for _, key := range sortedStringKeys(oldByName) {
		if _, ok := newByName[key]; !ok {
			fn := oldByName[key]
			ops = append(ops, Operation{Kind: DropFunction, Schema: fn.Schema, Table: fn.Table, TriggerFunction: fn})
		}
	}
	return ops
}

func diffForeignKeys(old, new *model.Spec, scope Scope) []Operation {
	oldByName := fksByName(old.ForeignKeys)
	newByName := fksByName(new.ForeignKeys)
	var ops []Operation

	for _, key := range sortedStringKeys(newByName) {
		fk := newByName[key]
		prior, existed := oldByName[key]
		switch {
		case !existed:
			ops = append(ops, Operation{Kind: AddForeignKey, Schema: fk.Schema, Table: fk.Table, ForeignKey: fk})
		case !sameColumns(prior.Columns, fk.Columns) || prior.RefTable != fk.RefTable:
			ops = append(ops, Operation{Kind: DropForeignKey, Schema: prior.Schema, Table: prior.Table, ForeignKey: prior})
			ops = append(ops, Operation{Kind: AddForeignKey, Schema: fk.Schema, Table: fk.Table, ForeignKey: fk})
		}
	}
	for _, key := range sortedStringKeys(oldByName) {
		if _, ok := newByName[key]; !ok {
			fk := oldByName[key]
			ops = append(ops, Operation{Kind: DropForeignKey, Schema: fk.Schema, Table: fk.Table, ForeignKey: fk})
		}
	}
	return ops
}

// annotateVerification fills in Operation.ErrorString for destructive
// changes the rest of new still depends on (spec.md §4.3 "Verification"):
// a dropped column that a retained index, unique constraint, or foreign key
// in new still lists by name.
func annotateVerification(new *model.Spec, ops []Operation) {
	for i := range ops {
		if ops[i].Kind != DropColumn {
			continue
		}
		col := ops[i].Column.Name
		table := ops[i].Table
		if columnStillReferenced(new, table, col) {
			ops[i].ErrorString = fmt.Sprintf("column %s.%s is being dropped but is still referenced by an index, unique constraint, or foreign key in the target schema", table, col)
		}
	}
}

func columnStillReferenced(new *model.Spec, table, col string) bool {
	for _, idx := range new.Indexes {
		if idx.Table == table && contains(idx.Columns, col) {
			return true
		}
	}
	for _, uc := range new.UniqueConstraints {
		if uc.Table == table && contains(uc.Columns, col) {
			return true
		}
	}
	for _, fk := range new.ForeignKeys {
		if fk.Table == table && contains(fk.Columns, col) {
			return true
		}
	}
	return false
}

// Verify runs Diff and returns the non-empty ErrorStrings collected, or nil
// if the migration is safe to apply (spec.md §4.3 "a non-empty list is a
// verification failure").
func Verify(old, new *model.Spec, scope Scope) []string {
	var errs []string
	for _, op := range Diff(old, new, scope) {
		if op.ErrorString != "" {
			errs = append(errs, op.ErrorString)
		}
	}
	return errs
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func toSet(xs []string) map[string]bool {
	m := map[string]bool{}
	for _, x := range xs {
		m[x] = true
	}
	return m
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func tablesByQualifiedName(ts []model.Table) map[string]model.Table {
	m := map[string]model.Table{}
	for _, t := range ts {
		m[t.QualifiedName()] = t
	}
	return m
}

func sortedTableKeys(m map[string]model.Table) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func columnsByName(cs []model.Column) map[string]model.Column {
	m := map[string]model.Column{}
	for _, c := range cs {
		m[c.Name] = c
	}
	return m
}

func sortedColumnKeys(m map[string]model.Column) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func uniquesByName(ucs []model.UniqueConstraint) map[string]model.UniqueConstraint {
	m := map[string]model.UniqueConstraint{}
	for _, u := range ucs {
		m[u.Table+"."+u.Name] = u
	}
	return m
}

func indexesByName(idxs []model.Index) map[string]model.Index {
	m := map[string]model.Index{}
	for _, idx := range idxs {
		m[idx.Table+"."+idx.Name] = idx
	}
	return m
}

func triggerFnsByName(fns []model.TriggerFunction) map[string]model.TriggerFunction {
	m := map[string]model.TriggerFunction{}
	for _, fn := range fns {
		m[fn.Table+"."+fn.Name] = fn
	}
	return m
}

func triggersByFunction(trigs []model.Trigger) map[string]model.Trigger {
	m := map[string]model.Trigger{}
	for _, t := range trigs {
		m[t.FunctionName] = t
	}
	return m
}

func fksByName(fks []model.ForeignKey) map[string]model.ForeignKey {
	m := map[string]model.ForeignKey{}
	for _, fk := range fks {
		m[fk.Table+"."+fk.Name] = fk
	}
	return m
}

func sortedStringKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
