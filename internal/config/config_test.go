package config_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/config"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	c := qt.New(t)

	t.Setenv("EXOPTAH_DATABASE_URL", "postgres://localhost/exoptah")
	t.Setenv("EXOPTAH_ALLOW_DESTRUCTIVE", "true")

	cfg, err := config.Load("")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.DatabaseURL, qt.Equals, "postgres://localhost/exoptah")
	c.Assert(cfg.AllowDestructive, qt.IsTrue)
	c.Assert(cfg.MigrationsDir, qt.Equals, "./migrations")
}

func TestLoad_MissingDatabaseURLFailsValidation(t *testing.T) {
	c := qt.New(t)

	_, err := config.Load("")
	c.Assert(err, qt.ErrorMatches, ".*invalid configuration.*")
}

func TestValidate_RequiresDatabaseURL(t *testing.T) {
	c := qt.New(t)

	cfg := &config.Config{MigrationsDir: "./migrations"}
	err := config.Validate(cfg)
	c.Assert(err, qt.ErrorMatches, ".*invalid configuration.*")
}

func TestLoadFixture_DecodesTOML(t *testing.T) {
	c := qt.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.toml")
	content := `
name = "vector-search"
database_url = "postgres://localhost/scenario"
scope = "analytics"
allow_destructive = false
`
	c.Assert(writeFile(path, content), qt.IsNil)

	fc, err := config.LoadFixture(path)
	c.Assert(err, qt.IsNil)
	c.Assert(fc.Name, qt.Equals, "vector-search")
	c.Assert(fc.DatabaseURL, qt.Equals, "postgres://localhost/scenario")
	c.Assert(fc.Scope, qt.Equals, "analytics")
	c.Assert(fc.AllowDestructive, qt.IsFalse)
}
