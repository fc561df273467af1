package postgres

import (
	"database/sql"
	"testing"

	qt "github.com/frankban/quicktest"
)

func sqlNullInt64(v int64) sql.NullInt64   { return sql.NullInt64{Int64: v, Valid: true} }
func sqlNullInt64Invalid() sql.NullInt64   { return sql.NullInt64{} }

func TestColumnsFromIndexDef(t *testing.T) {
	c := qt.New(t)

	cols := columnsFromIndexDef(`CREATE INDEX documents_embedding_idx ON public.documents USING hnsw (embedding vector_cosine_ops)`)
	c.Assert(cols, qt.DeepEquals, []string{"embedding"})

	cols = columnsFromIndexDef(`CREATE INDEX concerts_title_venue_idx ON public.concerts USING btree (title, venue_id)`)
	c.Assert(cols, qt.DeepEquals, []string{"title", "venue_id"})
}

func TestOpClassFromIndexDef(t *testing.T) {
	c := qt.New(t)

	op := opClassFromIndexDef(`CREATE INDEX documents_embedding_idx ON public.documents USING hnsw (embedding vector_cosine_ops)`)
	c.Assert(op, qt.Equals, "vector_cosine_ops")

	op = opClassFromIndexDef(`CREATE INDEX concerts_title_idx ON public.concerts USING btree (title)`)
	c.Assert(op, qt.Equals, "")
}

func TestSQLTypeOf(t *testing.T) {
	c := qt.New(t)

	c.Assert(sqlTypeOf("character varying", "varchar", sqlNullInt64(255), sqlNullInt64Invalid(), sqlNullInt64Invalid()), qt.Equals, "varchar(255)")
	c.Assert(sqlTypeOf("numeric", "numeric", sqlNullInt64Invalid(), sqlNullInt64(10), sqlNullInt64(2)), qt.Equals, "numeric(10,2)")
	c.Assert(sqlTypeOf("timestamp with time zone", "timestamptz", sqlNullInt64Invalid(), sqlNullInt64Invalid(), sqlNullInt64Invalid()), qt.Equals, "timestamptz")
	c.Assert(sqlTypeOf("USER-DEFINED", "order_status", sqlNullInt64Invalid(), sqlNullInt64Invalid(), sqlNullInt64Invalid()), qt.Equals, "order_status")
}
