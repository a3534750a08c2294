package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/driftline/driftline/internal/schema"
	"github.com/spf13/cobra"
)

var (
	baselineEnvironment string
	baselineOutput      string
)

func init() {
	rootCmd.AddCommand(baselineCmd)

	baselineCmd.Flags().StringVarP(&baselineEnvironment, "environment", "e", "", "Environment to capture from")
	baselineCmd.Flags().StringVarP(&baselineOutput, "output", "o", "", "Output file (defaults to the environment's baseline path)")
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Capture the current schema as a baseline snapshot",
	Long: `Introspect the target database and write its full schema (tables,
columns, indexes and foreign keys) to a snapshot file. The snapshot is the
desired-state input for plan generation.`,
	Example: `  # Capture the default environment's schema
  driftline baseline

  # Capture a reference database into a named file
  driftline baseline -e production -o schemas/production.json`,
	Run: runBaseline,
}

func runBaseline(cmd *cobra.Command, args []string) {
	db, driver, env, err := openTarget(baselineEnvironment)
	if err != nil {
		log.Fatalf("Failed to open target database: %v", err)
	}
	defer db.Close()

	snap, err := driver.Snapshot(context.Background(), db)
	if err != nil {
		log.Fatalf("Failed to introspect schema: %v", err)
	}
	for _, warning := range snap.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}

	output := baselineOutput
	if output == "" {
		output = env.BaselinePath
	}
	if err := schema.SaveSnapshot(snap, output); err != nil {
		log.Fatalf("Failed to write snapshot: %v", err)
	}

	hash, err := schema.ComputeSnapshotHash(snap)
	if err != nil {
		log.Fatalf("Failed to hash snapshot: %v", err)
	}
	fmt.Printf("Captured %d tables to %s (schema hash %s)\n", len(snap.Tables), output, hash[:12])
}
