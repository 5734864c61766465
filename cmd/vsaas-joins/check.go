package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the join definitions file",
	Long:  `Parse and declare every join of the definitions file without connecting to MongoDB, then list them.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		catalog, file, err := loadCatalog(nil)
		if err != nil {
			fatal("Invalid definitions", err)
		}

		out := cmd.OutOrStdout()
		for _, info := range catalog.Describe() {
			nullable := "nullable"
			if !info.Nullable {
				nullable = "required"
			}
			fmt.Fprintf(out, "%s.%s -> %s (%s, %s, %s)\n", info.Model, info.Path, info.Target, info.Type, info.Cardinality, nullable)
		}

		indexes := 0
		for _, definitions := range catalog.IndexDefinitions() {
			indexes += len(definitions)
		}
		fmt.Fprintf(out, "%d model(s), %d join(s), %d index(es)\n", len(file.Models), len(file.Joins), indexes)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
