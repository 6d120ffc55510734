package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Migrate the database schema",
	Long:  `Migrate the schema to the given version, or to the latest one. Version 0 drops every table.`,
	Args:  cobra.MaximumNArgs(1),
	Annotations: map[string]string{
		skipMigrateAnnotation: "true",
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		target := -1
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 0 {
				fail("Invalid version %q", args[0])
			}
			target = v
		}

		before, err := provider.GetSchemaVersion(ctx)
		if err != nil {
			fail("Failed to read schema version: %v", err)
		}
		if err := provider.Migrate(ctx, target); err != nil {
			fail("Migration failed: %v", err)
		}
		after, err := provider.GetSchemaVersion(ctx)
		if err != nil {
			fail("Failed to read schema version: %v", err)
		}

		if before == after {
			fmt.Printf("Schema is at version %d, nothing to do.\n", after)
			return
		}
		fmt.Printf("Schema migrated from version %d to %d.\n", before, after)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
