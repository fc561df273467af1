// Package generator implements the "writer sink" of spec.md §7 "Migration
// output": rendering a planner.Plan to a pair of timestamped .up.sql/.down.sql
// files, grounded on the teacher's migration/generator package (GenerateMigration,
// createMigrationFiles' version-collision retry loop) but driven by our own
// differ/planner packages instead of ptah's goschema/schemadiff.
package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stokaro/exoptah/internal/migration/planner"
)

// Options configures a migration file pair write.
type Options struct {
	// OutputDir is the directory migration files are written into.
	OutputDir string
	// Name is the migration's descriptive slug, e.g. "add_published_column".
	Name string
	// AllowDestructive controls whether destructive statements are rendered
	// literally or commented out (spec.md §4.3 "Rendering").
	AllowDestructive bool
}

// Files is the pair of paths a successful Write produces.
type Files struct {
	UpFile   string
	DownFile string
	Version  int64
}

// Write renders up and down plans to a pair of migration files under
// opts.OutputDir, retrying with an incremented version on collision
// (grounded on the teacher's createMigrationFiles loop).
func Write(up, down planner.Plan, opts Options) (*Files, error) {
	if opts.Name == "" {
		opts.Name = "migration"
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	upSQL := Render(up, opts.AllowDestructive, "UP")
	downSQL := Render(down, opts.AllowDestructive, "DOWN")

	version := nextVersion()
	upPath := fileName(opts.OutputDir, version, opts.Name, "up")
	downPath := fileName(opts.OutputDir, version, opts.Name, "down")

	for {
		if info, err := os.Stat(upPath); err != nil || info.Size() == 0 {
			break
		}
		version++
		upPath = fileName(opts.OutputDir, version, opts.Name, "up")
		downPath = fileName(opts.OutputDir, version, opts.Name, "down")
	}

	if err := os.WriteFile(upPath, []byte(upSQL), 0o644); err != nil { //nolint:gosec // 0644 matches migration file conventions
		return nil, fmt.Errorf("failed to write up migration file: %w", err)
	}
	if err := os.WriteFile(downPath, []byte(downSQL), 0o644); err != nil { //nolint:gosec // 0644 matches migration file conventions
		return nil, fmt.Errorf("failed to write down migration file: %w", err)
	}

	return &Files{UpFile: upPath, DownFile: downPath, Version: version}, nil
}

// Render renders a plan to UTF-8 text: one statement per paragraph, blank
// line separator (spec.md §7 "Writer sink"). Destructive statements are
// prefixed `-- ` when allowDestructive is false.
func Render(plan planner.Plan, allowDestructive bool, direction string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- Migration generated on %s\n-- Direction: %s\n\n", time.Now().UTC().Format(time.RFC3339), direction)

	if len(plan.Statements) == 0 {
		b.WriteString("-- no changes\n")
		return b.String()
	}

	for i, stmt := range plan.Statements {
		sql := stmt.SQL
		if stmt.Destructive && !allowDestructive {
			sql = commentOut(sql)
		}
		b.WriteString(sql)
		b.WriteString("\n")
		if i < len(plan.Statements)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func commentOut(sql string) string {
	lines := strings.Split(sql, "\n")
	for i, l := range lines {
		lines[i] = "-- " + l
	}
	return strings.Join(lines, "\n")
}

func nextVersion() int64 {
	return time.Now().UTC().UnixNano()
}

func fileName(dir string, version int64, name, direction string) string {
	return filepath.Join(dir, fmt.Sprintf("%d_%s.%s.sql", version, name, direction))
}
