// Package planner bins the differ's flat Operation list into the three
// ordering phases spec.md §4.3 describes (pre / main / post) and renders
// each operation to SQL text, grounded on the teacher's
// migration/planner/dialects/postgres package (same idea: differ.Operation
// in, ast.Node-shaped statements out) but narrowed to PostgreSQL only
// (spec.md §6) and rendering directly to SQL strings rather than through an
// intermediate AST, since we have no other dialect to share one with.
package planner

import (
	"fmt"
	"strings"

	"github.com/stokaro/exoptah/internal/schema/differ"
	"github.com/stokaro/exoptah/internal/schema/model"
)

// Statement is one rendered DDL statement plus its destructiveness, the
// `{statement, is_destructive}` pair spec.md §4.3 "Migration plan" defines.
type Statement struct {
	SQL         string
	Destructive bool
}

// Plan is the ordered pre ++ main ++ post sequence of statements for one
// Diff, plus the aggregate destructiveness flag.
type Plan struct {
	Statements            []Statement
	HasDestructiveChanges bool
}

// Plan renders ops (as produced by differ.Diff) into a three-phase Plan.
func Plan(ops []differ.Operation) Plan {
	var pre, main, post []Statement

	for _, op := range ops {
		stmt := Statement{SQL: render(op), Destructive: op.Destructive()}
		switch phaseOf(op) {
		case phasePre:
			pre = append(pre, stmt)
		case phasePost:
			post = append(post, stmt)
		default:
			main = append(main, stmt)
		}
	}

	var out []Statement
	out = append(out, pre...)
	out = append(out, main...)
	out = append(out, post...)

	plan := Plan{Statements: out}
	for _, s := range out {
		if s.Destructive {
			plan.HasDestructiveChanges = true
			break
		}
	}
	return plan
}

type phase int

const (
	phaseMain phase = iota
	phasePre
	phasePost
)

// phaseOf classifies an operation per spec.md §4.3 "Ordering": schemas and
// extensions and bare column additions go pre; the structural change itself
// is main; foreign keys, indexes, triggers, and unique constraints attached
// to newly-created structures go post.
func phaseOf(op differ.Operation) phase {
	switch op.Kind {
	case differ.CreateSchema, differ.DeleteSchema, differ.CreateExtension, differ.RemoveExtension, differ.AddColumn:
		return phasePre
	case differ.CreateUnique, differ.DropUnique, differ.CreateIndex, differ.DropIndex,
		differ.CreateFunction, differ.ReplaceFunction, differ.DropFunction,
		differ.CreateTrigger, differ.DropTrigger, differ.AddForeignKey, differ.DropForeignKey:
		return phasePost
	default:
		return phaseMain
	}
}

func qualify(schema, name string) string {
	if schema == "" {
		return quoteIdent(name)
	}
	return quoteIdent(schema) + "." + quoteIdent(name)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// render renders a single operation to SQL per spec.md §4.3 "Rendering":
// schema-qualified identifiers only when a non-default schema applies.
func render(op differ.Operation) string {
	switch op.Kind {
	case differ.CreateSchema:
		return fmt.Sprintf("CREATE SCHEMA %s;", quoteIdent(op.SchemaName))
	case differ.DeleteSchema:
		return fmt.Sprintf("DROP SCHEMA %s;", quoteIdent(op.SchemaName))
	case differ.CreateExtension:
		return fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s;", quoteIdent(op.Extension))
	case differ.RemoveExtension:
		return fmt.Sprintf("DROP EXTENSION %s;", quoteIdent(op.Extension))
	case differ.CreateTable:
		return renderCreateTable(op.TableDef)
	case differ.DeleteTable:
		return fmt.Sprintf("DROP TABLE %s;", qualify(op.Schema, op.Table))
	case differ.AddColumn:
		return fmt.Sprintf("ALTER TABLE %s ADD %s;", qualify(op.Schema, op.Table), renderColumnDef(op.Column))
	case differ.DropColumn:
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", qualify(op.Schema, op.Table), quoteIdent(op.Column.Name))
	case differ.SetNotNull:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", qualify(op.Schema, op.Table), quoteIdent(op.Column.Name))
	case differ.UnsetNotNull:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", qualify(op.Schema, op.Table), quoteIdent(op.Column.Name))
	case differ.SetColumnDefault:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", qualify(op.Schema, op.Table), quoteIdent(op.Column.Name), op.Column.Default)
	case differ.UnsetColumnDefault:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", qualify(op.Schema, op.Table), quoteIdent(op.Column.Name))
	case differ.CreateUnique:
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s);", qualify(op.Schema, op.Table), quoteIdent(op.Unique.Name), quoteColumns(op.Unique.Columns))
	case differ.DropUnique:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", qualify(op.Schema, op.Table), quoteIdent(op.Unique.Name))
	case differ.CreateIndex:
		return renderCreateIndex(op.Index)
	case differ.DropIndex:
		return fmt.Sprintf("DROP INDEX %s;", qualify(op.Schema, op.Index.Name))
	case differ.CreateFunction, differ.ReplaceFunction:
		return renderTriggerFunction(op.TriggerFunction)
	case differ.DropFunction:
		return fmt.Sprintf("DROP FUNCTION %s();", qualify(op.Schema, op.TriggerFunction.Name))
	case differ.CreateTrigger:
		return renderCreateTrigger(op.Trigger, op.Table, op.Schema)
	case differ.DropTrigger:
		return fmt.Sprintf("DROP TRIGGER %s ON %s;", quoteIdent(op.Trigger.Name), qualify(op.Schema, op.Table))
	case differ.AddForeignKey:
		return renderAddForeignKey(op)
	case differ.DropForeignKey:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", qualify(op.Schema, op.Table), quoteIdent(op.ForeignKey.Name))
	default:
		return fmt.Sprintf("-- unsupported operation kind %d", op.Kind)
	}
}

func renderCreateTable(t model.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", qualify(t.Schema, t.Name))
	for i, c := range t.Columns {
		b.WriteString("    ")
		b.WriteString(renderColumnDef(c))
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}

func renderColumnDef(c model.Column) string {
	parts := []string{quoteIdent(c.Name), c.SQLType}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if c.HasDefault && c.Default != "" {
		parts = append(parts, "DEFAULT", c.Default)
	}
	return strings.Join(parts, " ")
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// renderCreateIndex renders a btree or, for vector columns, an HNSW index
// per spec.md §4.3 "Rendering": `USING hnsw (<col> vector_<fn>_ops)`.
func renderCreateIndex(idx model.Index) string {
	table := qualify(idx.Schema, idx.Table)
	if idx.Method == "hnsw" {
		return fmt.Sprintf("CREATE INDEX %s ON %s USING hnsw (%s %s);",
			quoteIdent(idx.Name), table, quoteColumns(idx.Columns), idx.OperatorClass)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s);", quoteIdent(idx.Name), table, quoteColumns(idx.Columns))
}

// renderTriggerFunction emits the exograph_update_<table>() function body
// (spec.md §4.3 step 7): assigns every @update-managed column in NEW.
func renderTriggerFunction(fn model.TriggerFunction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE FUNCTION %s() RETURNS TRIGGER AS $$\nBEGIN\n", qualify(fn.Schema, fn.Name))
	for _, col := range fn.ManagedColumns {
		fmt.Fprintf(&b, "    NEW.%s = now();\n", quoteIdent(col))
	}
	b.WriteString("    RETURN NEW;\nEND;\n$$ LANGUAGE plpgsql;")
	return b.String()
}

func renderCreateTrigger(t model.Trigger, table, schema string) string {
	return fmt.Sprintf("CREATE TRIGGER %s BEFORE UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION %s();",
		quoteIdent(t.Name), qualify(schema, table), qualify(schema, t.FunctionName))
}

func renderAddForeignKey(op differ.Operation) string {
	fk := op.ForeignKey
	refTable := qualify(fk.RefSchema, fk.RefTable)
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);",
		qualify(op.Schema, op.Table), quoteIdent(fk.Name), quoteColumns(fk.Columns), refTable, quoteColumns(fk.RefColumns))
}
