package migrator_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/migration/migrator"
	"github.com/stokaro/exoptah/internal/migration/planner"
)

func TestApply_CommitsAfterAllStatements(t *testing.T) {
	c := qt.New(t)

	db, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	defer db.Close()

	plan := planner.Plan{Statements: []planner.Statement{
		{SQL: `CREATE TABLE "widgets" ("id" integer NOT NULL);`},
		{SQL: `CREATE INDEX "widgets_id_idx" ON "widgets" ("id");`},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	m := migrator.New(db)
	err = m.Apply(context.Background(), plan, false)
	c.Assert(err, qt.IsNil)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestApply_AbortsOnDestructiveWithoutPermission(t *testing.T) {
	c := qt.New(t)

	db, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	defer db.Close()

	plan := planner.Plan{
		HasDestructiveChanges: true,
		Statements: []planner.Statement{
			{SQL: `DROP TABLE "widgets";`, Destructive: true},
		},
	}

	mock.ExpectBegin()
	mock.ExpectRollback()

	m := migrator.New(db)
	err = m.Apply(context.Background(), plan, false)
	c.Assert(err, qt.ErrorMatches, ".*destructive.*")
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestApply_RollsBackOnStatementError(t *testing.T) {
	c := qt.New(t)

	db, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	defer db.Close()

	plan := planner.Plan{Statements: []planner.Statement{
		{SQL: `CREATE TABLE "widgets" ("id" integer NOT NULL);`},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	m := migrator.New(db)
	err = m.Apply(context.Background(), plan, true)
	c.Assert(err, qt.ErrorMatches, ".*failed to execute statement.*")
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}

func TestApply_AllowDestructiveRunsEverything(t *testing.T) {
	c := qt.New(t)

	db, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	defer db.Close()

	plan := planner.Plan{
		HasDestructiveChanges: true,
		Statements: []planner.Statement{
			{SQL: `DROP TABLE "widgets";`, Destructive: true},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	m := migrator.New(db)
	err = m.Apply(context.Background(), plan, true)
	c.Assert(err, qt.IsNil)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}
