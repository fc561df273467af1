// Package applymigration implements the "apply" CLI command: diff
// --source-url against --target-url exactly like generate does, then run
// the resulting plan against the source database inside a single
// transaction instead of writing files. Adapted from ptah's cmd/migrateup
// (not present in this module's copied tree, but its flag/RunE shape
// mirrors cmd/generate.go's, which is), now driven by internal/migration/
// migrator instead of ptah's migrator.MigrateUp-over-embedded-files model.
package applymigration

import (
	"context"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/stokaro/exoptah/internal/dbschema/postgres"
	"github.com/stokaro/exoptah/internal/migration/migrator"
	"github.com/stokaro/exoptah/internal/migration/planner"
	"github.com/stokaro/exoptah/internal/schema/differ"
	"github.com/stokaro/exoptah/internal/sqlopen"
)

const (
	sourceURLFlag        = "source-url"
	targetURLFlag        = "target-url"
	allowDestructiveFlag = "allow-destructive"
	driverFlag           = "driver"
)

var applyFlags = map[string]cobraflags.Flag{
	sourceURLFlag: &cobraflags.StringFlag{
		Name:  sourceURLFlag,
		Value: "",
		Usage: "Connection string of the database to migrate (required)",
	},
	targetURLFlag: &cobraflags.StringFlag{
		Name:  targetURLFlag,
		Value: "",
		Usage: "Connection string of the database whose schema is the desired end state (required)",
	},
	allowDestructiveFlag: &cobraflags.BoolFlag{
		Name:  allowDestructiveFlag,
		Value: false,
		Usage: "Permit destructive statements to run instead of aborting the transaction",
	},
	driverFlag: &cobraflags.StringFlag{
		Name:  driverFlag,
		Value: string(sqlopen.Pgx),
		Usage: "database/sql driver to connect with: pgx or postgres (lib/pq)",
	},
}

// NewApplyCommand builds the "apply" subcommand.
func NewApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Diff two PostgreSQL schemas and apply the migration directly",
		Long: `Apply compares --source-url's current schema against --target-url's schema
and executes the resulting DDL against the source database inside a single
transaction, aborting on the first destructive statement unless
--allow-destructive is set.`,
		RunE: runApply,
	}
	cobraflags.RegisterMap(cmd, applyFlags)
	return cmd
}

func runApply(_ *cobra.Command, _ []string) error {
	sourceURL := applyFlags[sourceURLFlag].GetString()
	targetURL := applyFlags[targetURLFlag].GetString()
	if sourceURL == "" || targetURL == "" {
		return fmt.Errorf("both --%s and --%s are required", sourceURLFlag, targetURLFlag)
	}

	driver := sqlopen.Driver(applyFlags[driverFlag].GetString())

	sourceDB, err := sqlopen.Open(driver, sourceURL)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer sourceDB.Close()

	targetDB, err := sqlopen.Open(driver, targetURL)
	if err != nil {
		return fmt.Errorf("failed to open target database: %w", err)
	}
	defer targetDB.Close()

	sourceSpec, err := postgres.New(sourceDB).ReadSpec()
	if err != nil {
		return fmt.Errorf("failed to read source schema: %w", err)
	}
	targetSpec, err := postgres.New(targetDB).ReadSpec()
	if err != nil {
		return fmt.Errorf("failed to read target schema: %w", err)
	}

	ops := differ.Diff(sourceSpec, targetSpec, differ.Scope{Kind: differ.AllSchemas})
	plan := planner.Plan(ops)

	if len(plan.Statements) == 0 {
		fmt.Println("No changes detected; nothing to apply.")
		return nil
	}

	allowDestructive := applyFlags[allowDestructiveFlag].GetBool()
	m := migrator.New(sourceDB)
	if err := m.Apply(context.Background(), plan, allowDestructive); err != nil {
		return fmt.Errorf("failed to apply migration: %w", err)
	}

	fmt.Printf("Applied %d statements to %s.\n", len(plan.Statements), sourceURL)
	return nil
}
