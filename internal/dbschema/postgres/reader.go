// Package postgres reads a live PostgreSQL database's structural shape into
// a model.Spec, the same shape model.FromResolved produces from a
// resolved.System. Grounded on the teacher's dbschema/postgres.Reader
// (information_schema + pg_catalog queries via database/sql), narrowed to
// the object kinds model.Spec tracks and widened to read every schema in
// scope rather than a single fixed one.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/stokaro/exoptah/internal/schema/model"
)

// Reader reads the structural schema of a PostgreSQL database.
type Reader struct {
	db *sql.DB
}

// New returns a Reader over an already-open database handle. The caller
// owns the handle's lifetime.
func New(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// ReadSpec reads the full structural schema across every non-system schema
// in the database, producing the model.Spec the differ compares against.
func (r *Reader) ReadSpec() (*model.Spec, error) {
	spec := &model.Spec{}

	schemas, err := r.readSchemas()
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas: %w", err)
	}
	spec.Schemas = schemas

	extensions, err := r.readExtensions()
	if err != nil {
		return nil, fmt.Errorf("failed to read extensions: %w", err)
	}
	spec.Extensions = extensions

	tables, err := r.readTables()
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	spec.Tables = tables

	enums, err := r.readEnums()
	if err != nil {
		return nil, fmt.Errorf("failed to read enums: %w", err)
	}
	spec.Enums = enums

	uniques, err := r.readUniqueConstraints()
	if err != nil {
		return nil, fmt.Errorf("failed to read unique constraints: %w", err)
	}
	spec.UniqueConstraints = uniques

	indexes, err := r.readIndexes()
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}
	spec.Indexes = indexes

	fks, err := r.readForeignKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys: %w", err)
	}
	spec.ForeignKeys = fks

	fns, err := r.readTriggerFunctions()
	if err != nil {
		return nil, fmt.Errorf("failed to read trigger functions: %w", err)
	}
	spec.TriggerFunctions = fns

	trigs, err := r.readTriggers()
	if err != nil {
		return nil, fmt.Errorf("failed to read triggers: %w", err)
	}
	spec.Triggers = trigs

	return spec, nil
}

func (r *Reader) readSchemas() ([]string, error) {
	rows, err := r.db.Query(`
		SELECT nspname FROM pg_namespace
		WHERE nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		AND nspname NOT LIKE 'pg_temp_%' AND nspname NOT LIKE 'pg_toast_temp_%'
		ORDER BY nspname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s == "public" {
			continue // the default schema is tracked unqualified (model.Table{Schema: ""})
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Reader) readExtensions() ([]string, error) {
	rows, err := r.db.Query(`SELECT extname FROM pg_extension WHERE extname != 'plpgsql' ORDER BY extname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Reader) readTables() ([]model.Table, error) {
	rows, err := r.db.Query(`
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		AND table_schema NOT IN ('pg_catalog', 'information_schema')
		AND table_name != 'schema_migrations'
		ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []model.Table
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, err
		}
		cols, err := r.readColumns(schema, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns for %s.%s: %w", schema, name, err)
		}
		tables = append(tables, model.Table{Schema: normalizeSchema(schema), Name: name, Columns: cols})
	}
	return tables, rows.Err()
}

func (r *Reader) readColumns(schema, table string) ([]model.Column, error) {
	rows, err := r.db.Query(`
		SELECT column_name, data_type, udt_name, is_nullable, column_default,
		       character_maximum_length, numeric_precision, numeric_scale
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []model.Column
	for rows.Next() {
		var name, dataType, udtName, isNullable string
		var colDefault sql.NullString
		var charLen, numPrec, numScale sql.NullInt64
		if err := rows.Scan(&name, &dataType, &udtName, &isNullable, &colDefault, &charLen, &numPrec, &numScale); err != nil {
			return nil, err
		}
		cols = append(cols, model.Column{
			Name:       name,
			SQLType:    sqlTypeOf(dataType, udtName, charLen, numPrec, numScale),
			NotNull:    isNullable == "NO",
			HasDefault: colDefault.Valid,
			Default:    colDefault.String,
		})
	}
	return cols, rows.Err()
}

// sqlTypeOf reconstructs the declared SQL type string from information_schema
// columns, matching the form model.FromResolved produces so the differ's
// structural comparison (spec.md §4.3 step 4 "Columns") sees equal types on
// both sides when nothing changed.
func sqlTypeOf(dataType, udtName string, charLen, numPrec, numScale sql.NullInt64) string {
	switch dataType {
	case "USER-DEFINED":
		return udtName
	case "character varying":
		if charLen.Valid {
			return fmt.Sprintf("varchar(%d)", charLen.Int64)
		}
		return "varchar"
	case "numeric":
		if numPrec.Valid && numScale.Valid {
			return fmt.Sprintf("numeric(%d,%d)", numPrec.Int64, numScale.Int64)
		}
		return "numeric"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	case "ARRAY":
		return udtName
	default:
		return dataType
	}
}

func (r *Reader) readEnums() ([]model.Enum, error) {
	rows, err := r.db.Query(`
		SELECT n.nspname, t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY t.typname, e.enumsortorder`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]*model.Enum{}
	var order []string
	for rows.Next() {
		var schema, name, value string
		if err := rows.Scan(&schema, &name, &value); err != nil {
			return nil, err
		}
		key := schema + "." + name
		e, ok := byName[key]
		if !ok {
			e = &model.Enum{Schema: normalizeSchema(schema), Name: name}
			byName[key] = e
			order = append(order, key)
		}
		e.Values = append(e.Values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Enum, 0, len(order))
	for _, key := range order {
		out = append(out, *byName[key])
	}
	return out, nil
}

func (r *Reader) readUniqueConstraints() ([]model.UniqueConstraint, error) {
	rows, err := r.db.Query(`
		SELECT tc.table_schema, tc.table_name, tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'UNIQUE'
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanGroupedColumns(rows, func(schema, table, name, col string) model.UniqueConstraint {
		return model.UniqueConstraint{Schema: normalizeSchema(schema), Table: table, Name: name}
	}, func(uc *model.UniqueConstraint, col string) { uc.Columns = append(uc.Columns, col) })
}

func (r *Reader) readForeignKeys() ([]model.ForeignKey, error) {
	rows, err := r.db.Query(`
		SELECT tc.table_schema, tc.table_name, tc.constraint_name, kcu.column_name,
		       ccu.table_schema, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byKey := map[string]*model.ForeignKey{}
	var order []string
	for rows.Next() {
		var schema, table, name, col, refSchema, refTable, refCol string
		if err := rows.Scan(&schema, &table, &name, &col, &refSchema, &refTable, &refCol); err != nil {
			return nil, err
		}
		key := schema + "." + table + "." + name
		fk, ok := byKey[key]
		if !ok {
			fk = &model.ForeignKey{
				Schema: normalizeSchema(schema), Table: table, Name: name,
				RefSchema: normalizeSchema(refSchema), RefTable: refTable,
			}
			byKey[key] = fk
			order = append(order, key)
		}
		fk.Columns = append(fk.Columns, col)
		fk.RefColumns = append(fk.RefColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.ForeignKey, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}

func (r *Reader) readIndexes() ([]model.Index, error) {
	rows, err := r.db.Query(`
		SELECT n.nspname, t.relname, i.relname, am.amname, pg_get_indexdef(ix.indexrelid)
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_am am ON am.oid = i.relam
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
		AND NOT ix.indisprimary AND NOT ix.indisunique
		ORDER BY n.nspname, t.relname, i.relname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Index
	for rows.Next() {
		var schema, table, name, method, indexDef string
		if err := rows.Scan(&schema, &table, &name, &method, &indexDef); err != nil {
			return nil, err
		}
		idx := model.Index{Schema: normalizeSchema(schema), Table: table, Name: name, Columns: columnsFromIndexDef(indexDef)}
		if method != "btree" {
			idx.Method = method
			idx.OperatorClass = opClassFromIndexDef(indexDef)
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// columnsFromIndexDef extracts the column list from a pg_get_indexdef()
// string like `CREATE INDEX ... ON t USING hnsw (embedding vector_cosine_ops)`.
func columnsFromIndexDef(def string) []string {
	start := strings.Index(def, "(")
	end := strings.LastIndex(def, ")")
	if start < 0 || end <= start {
		return nil
	}
	parts := strings.Split(def[start+1:end], ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(strings.TrimSpace(p))
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

func opClassFromIndexDef(def string) string {
	start := strings.Index(def, "(")
	end := strings.LastIndex(def, ")")
	if start < 0 || end <= start {
		return ""
	}
	fields := strings.Fields(strings.TrimSpace(def[start+1 : end]))
	if len(fields) < 2 {
		return ""
	}
	return fields[len(fields)-1]
}

func (r *Reader) readTriggerFunctions() ([]model.TriggerFunction, error) {
	rows, err := r.db.Query(`
		SELECT n.nspname, p.proname
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
		AND p.proname LIKE 'exograph_update_%'
		ORDER BY n.nspname, p.proname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TriggerFunction
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, err
		}
		table := strings.TrimSuffix(strings.TrimPrefix(name, "exograph_update_"), "")
		out = append(out, model.TriggerFunction{Schema: normalizeSchema(schema), Table: table, Name: name})
	}
	return out, rows.Err()
}

func (r *Reader) readTriggers() ([]model.Trigger, error) {
	rows, err := r.db.Query(`
		SELECT n.nspname, c.relname, t.tgname, p.proname
		FROM pg_trigger t
		JOIN pg_class c ON c.oid = t.tgrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_proc p ON p.oid = t.tgfoid
		WHERE NOT t.tgisinternal
		AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY n.nspname, c.relname, t.tgname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Trigger
	for rows.Next() {
		var schema, table, name, fn string
		if err := rows.Scan(&schema, &table, &name, &fn); err != nil {
			return nil, err
		}
		out = append(out, model.Trigger{Schema: normalizeSchema(schema), Table: table, Name: name, FunctionName: fn})
	}
	return out, rows.Err()
}

func normalizeSchema(s string) string {
	if s == "public" {
		return ""
	}
	return s
}

// scanGroupedColumns is a small helper shared by readers that group
// multiple (schema, table, name, column) rows into one record per
// (schema, table, name), preserving first-seen order.
func scanGroupedColumns[T any](rows *sql.Rows, newT func(schema, table, name, col string) T, appendCol func(*T, string)) ([]T, error) {
	byKey := map[string]*T{}
	var order []string
	for rows.Next() {
		var schema, table, name, col string
		if err := rows.Scan(&schema, &table, &name, &col); err != nil {
			return nil, err
		}
		key := schema + "." + table + "." + name
		t, ok := byKey[key]
		if !ok {
			v := newT(schema, table, name, col)
			byKey[key] = &v
			order = append(order, key)
			t = &v
		}
		appendCol(t, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}
