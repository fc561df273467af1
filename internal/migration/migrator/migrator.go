// Package migrator implements the "apply sink" of spec.md §7 "Migration
// output": applying a planner.Plan to a live database inside a single
// transaction, grounded on the teacher's migration/migrator.Migrator
// (MigrateUp's begin/apply/record/commit-per-migration loop), narrowed to
// spec.md §5 "apply": one transaction for the whole plan, abort on the
// first destructive statement without permission or the first database
// error, commit only after the last statement succeeds.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/stokaro/exoptah/internal/migration/planner"
)

// Migrator applies rendered migration plans to a database.
type Migrator struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Migrator at construction.
type Option func(*Migrator)

// WithLogger overrides the migrator's logger; default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Migrator) { m.logger = l }
}

// New returns a Migrator applying statements through db.
func New(db *sql.DB, opts ...Option) *Migrator {
	m := &Migrator{db: db, logger: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Apply runs plan's statements in order inside a single transaction
// (spec.md §5 "apply"). If allowDestructive is false, the first destructive
// statement encountered aborts the transaction before it runs. Any database
// error also aborts and rolls back. Commit is attempted only once every
// statement has executed successfully.
func (m *Migrator) Apply(ctx context.Context, plan planner.Plan, allowDestructive bool) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, stmt := range plan.Statements {
		if stmt.Destructive && !allowDestructive {
			_ = tx.Rollback()
			return fmt.Errorf("aborting: statement %d is destructive and allow_destructive is false: %s", i, stmt.SQL)
		}
		m.logger.Info("applying statement", "index", i, "destructive", stmt.Destructive)
		if _, err := tx.ExecContext(ctx, stmt.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute statement %d (%s): %w", i, stmt.SQL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	m.logger.Info("applied migration plan", "statements", len(plan.Statements))
	return nil
}
