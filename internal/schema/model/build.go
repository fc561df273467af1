package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stokaro/exoptah/internal/schema/resolved"
)

// FromResolved lowers a resolved.System into the structural Spec the differ
// compares against a live database (spec.md §4.3's "new" schema). Only
// Managed composites produce tables; NotManaged composites describe rows
// owned elsewhere and Json composites are never persisted directly
// (spec.md §3 "Representation").
func FromResolved(sys *resolved.System) *Spec {
	spec := &Spec{}
	schemas := map[string]bool{}
	needsVector := false

	for _, c := range sys.Composites {
		if c.Representation != resolved.Managed {
			continue
		}
		schemas[c.TableName.Schema] = true

		table := Table{Schema: c.TableName.Schema, Name: c.TableName.Name}
		var managedCols []string

		for _, f := range c.Fields {
			cols, ok := columnsForField(sys, f)
			if !ok {
				continue
			}
			table.Columns = append(table.Columns, cols...)

			if f.Type.Primitive == resolved.Vector {
				needsVector = true
				if f.VectorIndex {
					spec.Indexes = append(spec.Indexes, Index{
						Schema: c.TableName.Schema, Table: c.TableName.Name,
						Name:          defaultIndexName(c.TableName.Name, f.Name),
						Columns:       f.ColumnNames,
						Method:        "hnsw",
						OperatorClass: "vector_" + distanceFnOpClass(f.VectorDistanceFunction) + "_ops",
					})
				}
			}

			for _, group := range f.UniqueGroups {
				spec.UniqueConstraints = upsertUniqueColumns(spec.UniqueConstraints, c.TableName, group, f.ColumnNames)
			}
			for _, group := range f.IndexGroups {
				spec.Indexes = upsertIndexColumns(spec.Indexes, c.TableName, group, f.ColumnNames)
			}

			if f.Relation != nil && (f.Relation.Kind == resolved.RelManyToOne || f.Relation.Kind == resolved.RelOneToOne) && len(f.Relation.ColumnNames) > 0 {
				target := sys.Composite(f.Relation.Target)
				spec.ForeignKeys = append(spec.ForeignKeys, ForeignKey{
					Schema: c.TableName.Schema, Table: c.TableName.Name,
					Name:       fkName(c.TableName.Name, f.Name),
					Columns:    f.Relation.ColumnNames,
					RefSchema:  target.TableName.Schema,
					RefTable:   target.TableName.Name,
					RefColumns: pkColumnNamesOf(target),
				})
			}

			if f.UpdateSync {
				managedCols = append(managedCols, f.ColumnNames...)
			}
		}

		spec.Tables = append(spec.Tables, table)

		if len(managedCols) > 0 {
			fnName := fmt.Sprintf("exograph_update_%s", c.TableName.Name)
			spec.TriggerFunctions = append(spec.TriggerFunctions, TriggerFunction{
				Schema: c.TableName.Schema, Table: c.TableName.Name, Name: fnName, ManagedColumns: managedCols,
			})
			spec.Triggers = append(spec.Triggers, Trigger{
				Schema: c.TableName.Schema, Table: c.TableName.Name,
				Name: fnName + "_trigger", FunctionName: fnName,
			})
		}
	}

	for _, e := range sys.Enums {
		spec.Enums = append(spec.Enums, Enum{Name: e.DBName.Name, Values: e.Variants})
	}

	if needsVector {
		spec.Extensions = append(spec.Extensions, "vector")
	}

	for s := range schemas {
		if s != "" {
			spec.Schemas = append(spec.Schemas, s)
		}
	}
	sort.Strings(spec.Schemas)

	return spec
}

// columnsForField returns the Column(s) a field contributes to its table's
// DDL, or ok=false for fields that own no column (one-to-many collections,
// the non-optional side of a one-to-one).
func columnsForField(sys *resolved.System, f resolved.Field) ([]Column, bool) {
	if f.Type.Kind == resolved.TComposite {
		if f.Relation == nil {
			return nil, false
		}
		switch f.Relation.Kind {
		case resolved.RelOneToMany:
			return nil, false
		case resolved.RelOneToOne:
			if len(f.Relation.ColumnNames) == 0 {
				return nil, false
			}
		}
		target := sys.Composite(f.Relation.Target)
		pkTypes := pkSQLTypesOf(target)
		var cols []Column
		for i, colName := range f.Relation.ColumnNames {
			sqlType := "integer"
			if i < len(pkTypes) {
				sqlType = pkTypes[i]
			}
			cols = append(cols, Column{
				Name: colName, SQLType: sqlType,
				NotNull: !f.Type.Optional,
			})
		}
		return cols, true
	}

	col := Column{
		Name:    f.ColumnNames[0],
		SQLType: sqlType(sys, f),
		NotNull: !f.Type.Optional,
	}
	if f.Default.Kind != resolved.DefaultNone {
		col.HasDefault = true
		col.Default = defaultExpr(f.Default)
	}
	if f.Default.Kind == resolved.DefaultAutoIncrement && f.Default.SequenceName == "" {
		if col.SQLType == "bigint" {
			col.SQLType = "bigserial"
		} else {
			col.SQLType = "serial"
		}
	}
	return []Column{col}, true
}

func pkColumnNamesOf(c *resolved.Composite) []string {
	var out []string
	for _, f := range c.PKFields() {
		out = append(out, f.ColumnNames[0])
	}
	return out
}

func pkSQLTypesOf(c *resolved.Composite) []string {
	var out []string
	for _, f := range c.PKFields() {
		out = append(out, basePrimitiveSQLType(f))
	}
	return out
}

func sqlType(sys *resolved.System, f resolved.Field) string {
	if f.Type.Kind == resolved.TEnum {
		e := sys.Enum(f.Type.EnumID)
		return e.DBName.Name
	}
	return basePrimitiveSQLType(f)
}

// basePrimitiveSQLType maps a scalar field's primitive kind and type hint to
// a PostgreSQL column type (spec.md §3 Field "type_hint", §4.1 "structured
// hints"). @dbtype bypasses this mapping entirely.
func basePrimitiveSQLType(f resolved.Field) string {
	if f.TypeHint.Kind == resolved.HintRaw {
		return f.TypeHint.RawDBType
	}
	switch f.Type.Primitive {
	case resolved.Int:
		if f.TypeHint.Kind == resolved.HintInt && f.TypeHint.IntBits >= 64 {
			return "bigint"
		}
		return "integer"
	case resolved.Float:
		return "double precision"
	case resolved.Decimal:
		if f.TypeHint.Kind == resolved.HintDecimal && f.TypeHint.DecimalPrec > 0 {
			return fmt.Sprintf("numeric(%d,%d)", f.TypeHint.DecimalPrec, f.TypeHint.DecimalScale)
		}
		return "numeric"
	case resolved.String:
		if f.TypeHint.Kind == resolved.HintString && f.TypeHint.StringLen > 0 {
			return fmt.Sprintf("varchar(%d)", f.TypeHint.StringLen)
		}
		return "text"
	case resolved.Boolean:
		return "boolean"
	case resolved.Instant:
		return "timestamptz"
	case resolved.LocalDate:
		return "date"
	case resolved.LocalTime:
		return "time"
	case resolved.LocalDateTime:
		return "timestamp"
	case resolved.Uuid:
		return "uuid"
	case resolved.Blob:
		return "bytea"
	case resolved.Vector:
		if f.VectorSize > 0 {
			return fmt.Sprintf("vector(%d)", f.VectorSize)
		}
		return "vector"
	default:
		return "text"
	}
}

func defaultExpr(d resolved.DefaultValue) string {
	switch d.Kind {
	case resolved.DefaultLiteral:
		return d.Literal
	case resolved.DefaultNow:
		return "now()"
	case resolved.DefaultUUIDGenerate:
		return "gen_random_uuid()"
	case resolved.DefaultAutoIncrement:
		if d.SequenceName != "" {
			ref := d.SequenceName
			if d.SequenceSchema != "" {
				ref = d.SequenceSchema + "." + d.SequenceName
			}
			return fmt.Sprintf("nextval('%s')", ref)
		}
		return "" // rendered via a serial/bigserial column type (columnsForField), not a literal default
	case resolved.DefaultPostgresFunction:
		return d.FunctionName + "()"
	default:
		return ""
	}
}

func distanceFnOpClass(fn string) string {
	switch strings.ToLower(fn) {
	case "l2", "euclidean":
		return "l2"
	case "ip", "innerproduct", "dot":
		return "ip"
	default:
		return "cosine"
	}
}

func fkName(table, field string) string {
	return fmt.Sprintf("fk_%s_%s", table, field)
}

func defaultIndexName(table, field string) string {
	return fmt.Sprintf("%s_%s_idx", table, field)
}

func upsertUniqueColumns(existing []UniqueConstraint, tn resolved.TableName, name string, cols []string) []UniqueConstraint {
	for i, uc := range existing {
		if uc.Table == tn.Name && uc.Name == name {
			existing[i].Columns = append(existing[i].Columns, cols...)
			return existing
		}
	}
	return append(existing, UniqueConstraint{Schema: tn.Schema, Table: tn.Name, Name: name, Columns: append([]string(nil), cols...)})
}

func upsertIndexColumns(existing []Index, tn resolved.TableName, name string, cols []string) []Index {
	for i, idx := range existing {
		if idx.Table == tn.Name && idx.Name == name {
			existing[i].Columns = append(existing[i].Columns, cols...)
			return existing
		}
	}
	return append(existing, Index{Schema: tn.Schema, Table: tn.Name, Name: name, Columns: append([]string(nil), cols...)})
}
