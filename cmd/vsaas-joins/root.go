package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xompass/vsaas-joins/helpers"
)

var (
	verbose         bool
	logLevel        string
	definitionsPath string

	logger *helpers.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vsaas-joins",
	Short: "Declare, check and follow joins between MongoDB collections",
	Long: `vsaas-joins reads join declarations from a YAML or JSON file and
resolves them against MongoDB. It can check the declarations, build the
indexes that back them, follow a join of one document or serve them over HTTP.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := helpers.ParseLogLevel(logLevel)
		if verbose {
			level = helpers.LogLevelDebug
		}
		logger = helpers.NewLogger(level, "vsaas-joins")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", helpers.GetEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVarP(&definitionsPath, "file", "f", helpers.GetEnv("JOINS_DEFINITIONS", "joins.yaml"), "Join definitions file (.yaml or .json)")
}
