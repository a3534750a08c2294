package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "driftline",
	Short: "Driftline plans and executes relational schema migrations.",
	Long: `Driftline compares a live database schema against a desired baseline,
produces an ordered, risk-annotated migration plan, and executes it with
structural backups, advisory locking and a persistent audit trail.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
