package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	indexesDryRun bool
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the indexes backing the declared joins",
	Long: `Create a sparse index on every target field a join queries.
With --dry-run, compare the indexes with the ones in the database instead.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		rt, err := openRuntime(ctx)
		if err != nil {
			fatal("Error opening datasource", err)
		}
		defer rt.Close(ctx)

		out := cmd.OutOrStdout()

		if indexesDryRun {
			definitions := rt.catalog.IndexDefinitions()
			targets := make([]string, 0, len(definitions))
			for target := range definitions {
				targets = append(targets, target)
			}
			sort.Strings(targets)

			for _, target := range targets {
				warnings, err := rt.datasource.CompareModelIndexes(ctx, target, definitions[target])
				if err != nil {
					fatal("Error comparing indexes of "+target, err)
				}
				for _, warning := range warnings {
					fmt.Fprintf(out, "%s: [%s] %s\n", target, warning.Type, warning.Message)
				}
				if len(warnings) == 0 {
					fmt.Fprintf(out, "%s: up to date\n", target)
				}
			}
			return
		}

		created, err := rt.catalog.EnsureIndexes(ctx, rt.datasource)
		for target, names := range created {
			for _, name := range names {
				fmt.Fprintf(out, "%s: %s\n", target, name)
			}
		}
		if err != nil {
			fatal("Error creating indexes", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(indexesCmd)
	indexesCmd.Flags().BoolVar(&indexesDryRun, "dry-run", false, "Only report differences with the database")
}
