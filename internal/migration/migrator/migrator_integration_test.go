package migrator_test

import (
	"context"
	"database/sql"
	"testing"

	qt "github.com/frankban/quicktest"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/stokaro/exoptah/internal/migration/migrator"
	"github.com/stokaro/exoptah/internal/migration/planner"
)

// TestApply_AgainstRealPostgres exercises the apply path against an actual
// PostgreSQL instance rather than go-sqlmock's expectation list, grounded
// on Pieczasz-smf's testcontainers-backed connector test, adapted from its
// MySQL container to testcontainers-go/modules/postgres since this module
// targets PostgreSQL only (spec.md §6).
func TestApply_AgainstRealPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration test in short mode")
	}

	c := qt.New(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("exoptah"),
		postgres.WithUsername("exoptah"),
		postgres.WithPassword("exoptah"),
	)
	c.Assert(err, qt.IsNil)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	c.Assert(err, qt.IsNil)

	db, err := sql.Open("pgx", dsn)
	c.Assert(err, qt.IsNil)
	t.Cleanup(func() { _ = db.Close() })
	c.Assert(db.PingContext(ctx), qt.IsNil)

	plan := planner.Plan{Statements: []planner.Statement{
		{SQL: `CREATE TABLE "widgets" ("id" integer NOT NULL, "name" text NOT NULL);`},
		{SQL: `CREATE INDEX "widgets_name_idx" ON "widgets" ("name");`},
	}}

	m := migrator.New(db)
	err = m.Apply(ctx, plan, false)
	c.Assert(err, qt.IsNil)

	var tableName string
	row := db.QueryRowContext(ctx, `SELECT table_name FROM information_schema.tables WHERE table_name = 'widgets'`)
	c.Assert(row.Scan(&tableName), qt.IsNil)
	c.Assert(tableName, qt.Equals, "widgets")
}

// TestApply_DestructiveWithoutPermissionLeavesSchemaUnchanged confirms the
// abort path actually rolls back against a real database, not just a mock
// expectation.
func TestApply_DestructiveWithoutPermissionLeavesSchemaUnchanged(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers integration test in short mode")
	}

	c := qt.New(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("exoptah"),
		postgres.WithUsername("exoptah"),
		postgres.WithPassword("exoptah"),
	)
	c.Assert(err, qt.IsNil)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	c.Assert(err, qt.IsNil)

	db, err := sql.Open("pgx", dsn)
	c.Assert(err, qt.IsNil)
	t.Cleanup(func() { _ = db.Close() })
	c.Assert(db.PingContext(ctx), qt.IsNil)

	setup := migrator.New(db)
	c.Assert(setup.Apply(ctx, planner.Plan{Statements: []planner.Statement{
		{SQL: `CREATE TABLE "widgets" ("id" integer NOT NULL);`},
	}}, false), qt.IsNil)

	plan := planner.Plan{
		HasDestructiveChanges: true,
		Statements: []planner.Statement{
			{SQL: `DROP TABLE "widgets";`, Destructive: true},
		},
	}
	err = migrator.New(db).Apply(ctx, plan, false)
	c.Assert(err, qt.ErrorMatches, ".*destructive.*")

	var tableName string
	row := db.QueryRowContext(ctx, `SELECT table_name FROM information_schema.tables WHERE table_name = 'widgets'`)
	c.Assert(row.Scan(&tableName), qt.IsNil)
	c.Assert(tableName, qt.Equals, "widgets")
}
