package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sandboxctl",
	Short: "Operate SQL sandbox workspaces",
	Long: "Admin tooling for the SQL sandbox: dry-run table compilation, namespace reconciliation, " +
		"drift extraction and raw statement execution against a workspace.",
	SilenceUsage: true,
}

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(execCmd)
}
