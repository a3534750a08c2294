package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/driftline/driftline/internal/executor"
	"github.com/spf13/cobra"
)

var (
	historyEnvironment string
	historyLimit       int
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyEnvironment, "environment", "e", "", "Environment providing the target database")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of records to show")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent execution records, newest first",
	Run:   runHistory,
}

func runHistory(cmd *cobra.Command, args []string) {
	db, driver, env, err := openTarget(historyEnvironment)
	if err != nil {
		log.Fatalf("Failed to open target database: %v", err)
	}
	defer db.Close()

	records, err := executor.New(db, driver, env.BackupDir).History(context.Background(), historyLimit)
	if err != nil {
		log.Fatalf("Failed to read execution history: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No executions recorded yet.")
		return
	}
	for _, rec := range records {
		fmt.Println(rec.Format())
	}
}
