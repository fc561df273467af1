// Package exoptah is the root CLI driver, adapted from ptah's
// cmd/packagemigrator (same envPrefix/viper.AutomaticEnv/cobra root-command
// shape), narrowed to this module's two operations — generate a migration
// file pair, or apply one directly — instead of ptah's full compare/
// readdb/migrate*/dropall command set, since the rewrite's CLI surface is
// explicitly a thin exerciser of the library, not a deliverable in its own
// right (spec.md §1 names HTTP/RPC codegen and the like as non-goals; a
// schema-diff CLI around it is fair game and keeps every ambient dependency
// reachable from a real entry point).
package exoptah

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stokaro/exoptah/cmd/applymigration"
	"github.com/stokaro/exoptah/cmd/generate"
)

const envPrefix = "EXOPTAH"

var rootCmd = &cobra.Command{
	Use:   "exoptah",
	Short: "Schema diff and migration tool for declarative data models",
	Long: `exoptah compares two PostgreSQL schemas and produces the ordered,
classified DDL needed to bring one in line with the other, either as a
migration file pair or applied directly inside a transaction.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and runs it with
// args; it exits the process with status 1 if the command fails.
func Execute(args ...string) {
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)

	rootCmd.SetArgs(args)
	rootCmd.AddCommand(generate.NewGenerateCommand())
	rootCmd.AddCommand(applymigration.NewApplyCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1) //revive:disable-line:deep-exit
	}
}
