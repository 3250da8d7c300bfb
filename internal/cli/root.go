// Package cli wires the command-line interface using Cobra.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dsw2to3",
		Short: "One-shot migration of DSW data from MongoDB+GridFS to PostgreSQL+S3",
		Long: `dsw2to3 migrates a deployment's persistent state from the legacy
document store (MongoDB with GridFS blobs) into the new relational schema
(PostgreSQL) and object storage (S3-compatible).

The target schema must already exist: run the target system once to
bootstrap it before migrating.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(NewMigrateCmd())

	return rootCmd
}
