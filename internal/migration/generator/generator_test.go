package generator_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/migration/generator"
	"github.com/stokaro/exoptah/internal/migration/planner"
)

func TestRender_NonDestructiveStatementsUnprefixed(t *testing.T) {
	c := qt.New(t)

	plan := planner.Plan{Statements: []planner.Statement{
		{SQL: `ALTER TABLE "concerts" ADD "published" boolean NOT NULL;`, Destructive: false},
	}}

	out := generator.Render(plan, false, "UP")
	c.Assert(strings.Contains(out, `ALTER TABLE "concerts" ADD "published"`), qt.IsTrue)
	c.Assert(strings.Contains(out, `-- ALTER TABLE "concerts" ADD`), qt.IsFalse)
}

func TestRender_DestructiveStatementsCommentedWhenNotAllowed(t *testing.T) {
	c := qt.New(t)

	plan := planner.Plan{
		HasDestructiveChanges: true,
		Statements: []planner.Statement{
			{SQL: `DROP TABLE "concerts";`, Destructive: true},
		},
	}

	out := generator.Render(plan, false, "DOWN")
	c.Assert(strings.Contains(out, `-- DROP TABLE "concerts";`), qt.IsTrue)

	out = generator.Render(plan, true, "DOWN")
	c.Assert(strings.Contains(out, `-- DROP TABLE "concerts";`), qt.IsFalse)
	c.Assert(strings.Contains(out, `DROP TABLE "concerts";`), qt.IsTrue)
}

func TestWrite_CreatesUpAndDownFiles(t *testing.T) {
	c := qt.New(t)

	dir := c.TempDir()
	up := planner.Plan{Statements: []planner.Statement{{SQL: `CREATE TABLE "widgets" ("id" integer NOT NULL);`}}}
	down := planner.Plan{Statements: []planner.Statement{{SQL: `DROP TABLE "widgets";`, Destructive: true}}}

	files, err := generator.Write(up, down, generator.Options{OutputDir: dir, Name: "add_widgets"})
	c.Assert(err, qt.IsNil)

	c.Assert(filepath.Dir(files.UpFile), qt.Equals, dir)
	c.Assert(strings.HasSuffix(files.UpFile, ".up.sql"), qt.IsTrue)
	c.Assert(strings.HasSuffix(files.DownFile, ".down.sql"), qt.IsTrue)

	upContent, err := os.ReadFile(files.UpFile)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(upContent), "CREATE TABLE"), qt.IsTrue)

	downContent, err := os.ReadFile(files.DownFile)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(downContent), "-- DROP TABLE"), qt.IsTrue)
}
