// Package generate implements the "generate" CLI command: compare a source
// PostgreSQL database's live schema against a reference database's schema
// and write the resulting migration as an up/down file pair. Adapted from
// ptah's cmd/generate (same cobraflags-registered-flag shape, as a single
// command with no subcommands), but driven by this module's own
// dbschema/differ/planner/generator packages instead of goschema/renderer,
// since the rewrite diffs two live schemas rather than Go struct tags
// against one database.
package generate

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/stokaro/exoptah/internal/dbschema/postgres"
	"github.com/stokaro/exoptah/internal/migration/generator"
	"github.com/stokaro/exoptah/internal/migration/planner"
	"github.com/stokaro/exoptah/internal/schema/differ"
	"github.com/stokaro/exoptah/internal/schema/model"
	"github.com/stokaro/exoptah/internal/sqlopen"
)

const (
	sourceURLFlag        = "source-url"
	targetURLFlag        = "target-url"
	nameFlag             = "name"
	outputDirFlag        = "output-dir"
	allowDestructiveFlag = "allow-destructive"
	driverFlag           = "driver"
)

var generateFlags = map[string]cobraflags.Flag{
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
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Value: "migration",
		Usage: "Descriptive name for the generated migration",
	},
	outputDirFlag: &cobraflags.StringFlag{
		Name:  outputDirFlag,
		Value: "./migrations",
		Usage: "Directory where migration files will be saved",
	},
	allowDestructiveFlag: &cobraflags.BoolFlag{
		Name:  allowDestructiveFlag,
		Value: false,
		Usage: "Render destructive statements literally instead of commenting them out",
	},
	driverFlag: &cobraflags.StringFlag{
		Name:  driverFlag,
		Value: string(sqlopen.Pgx),
		Usage: "database/sql driver to connect with: pgx or postgres (lib/pq)",
	},
}

// NewGenerateCommand builds the "generate" subcommand.
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Diff two PostgreSQL schemas and write a migration file pair",
		Long: `Generate compares --source-url's current schema against --target-url's
schema and writes the ordered, classified DDL needed to bring the source in
line with the target as a pair of up/down migration files.`,
		RunE: runGenerate,
	}
	cobraflags.RegisterMap(cmd, generateFlags)
	return cmd
}

func runGenerate(_ *cobra.Command, _ []string) error {
	sourceURL := generateFlags[sourceURLFlag].GetString()
	targetURL := generateFlags[targetURLFlag].GetString()
	if sourceURL == "" || targetURL == "" {
		return fmt.Errorf("both --%s and --%s are required", sourceURLFlag, targetURLFlag)
	}

	driver := sqlopen.Driver(generateFlags[driverFlag].GetString())
	source, target, err := readBothSpecs(driver, sourceURL, targetURL)
	if err != nil {
		return err
	}

	scope := differ.Scope{Kind: differ.AllSchemas}
	upOps := differ.Diff(source, target, scope)
	downOps := differ.Diff(target, source, scope)

	allowDestructive := generateFlags[allowDestructiveFlag].GetBool()
	up := planner.Plan(upOps)
	down := planner.Plan(downOps)

	files, err := generator.Write(up, down, generator.Options{
		OutputDir:        generateFlags[outputDirFlag].GetString(),
		Name:             generateFlags[nameFlag].GetString(),
		AllowDestructive: allowDestructive,
	})
	if err != nil {
		return fmt.Errorf("failed to write migration files: %w", err)
	}

	fmt.Printf("Generated migration files:\n  UP:   %s\n  DOWN: %s\n  Version: %d\n",
		files.UpFile, files.DownFile, files.Version)
	if up.HasDestructiveChanges && !allowDestructive {
		fmt.Println("Note: destructive statements were commented out; pass --allow-destructive to include them.")
	}
	return nil
}

func readBothSpecs(driver sqlopen.Driver, sourceURL, targetURL string) (source, target *model.Spec, err error) {
	sourceDB, err := sqlopen.Open(driver, sourceURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open source database: %w", err)
	}
	defer sourceDB.Close()

	targetDB, err := sqlopen.Open(driver, targetURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open target database: %w", err)
	}
	defer targetDB.Close()

	sourceSpec, err := postgres.New(sourceDB).ReadSpec()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source schema: %w", err)
	}

	targetSpec, err := postgres.New(targetDB).ReadSpec()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read target schema: %w", err)
	}

	return sourceSpec, targetSpec, nil
}
