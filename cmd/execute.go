package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/driftline/driftline/internal/executor"
	"github.com/driftline/driftline/internal/planner"
	"github.com/driftline/driftline/internal/sqlcheck"
	"github.com/spf13/cobra"
)

var (
	executeEnvironment  string
	executePlanFile     string
	executeDryRun       bool
	executeValidateOnly bool
	executeForce        bool
)

func init() {
	rootCmd.AddCommand(executeCmd)

	executeCmd.Flags().StringVarP(&executeEnvironment, "environment", "e", "", "Environment providing the target database")
	executeCmd.Flags().StringVarP(&executePlanFile, "plan", "p", "plan.json", "Plan file to run")
	executeCmd.Flags().BoolVar(&executeDryRun, "dry-run", false, "Compose every statement without executing anything")
	executeCmd.Flags().BoolVar(&executeValidateOnly, "validate-only", false, "Check the plan still applies to the live schema")
	executeCmd.Flags().BoolVar(&executeForce, "force", false, "Acknowledge blocking-risk operations")
}

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Run a migration plan against the target database",
	Long: `Apply a previously generated plan. Structural statements auto-commit,
so execution halts on the first failure and records exactly what was and was
not applied; it never attempts speculative rollback. Every run, including
dry runs and validation, takes the advisory lock and leaves an audit
record.`,
	Example: `  # Review the exact statements first
  driftline execute --dry-run

  # Check for schema drift since planning
  driftline execute --validate-only

  # Apply for real, acknowledging blocking operations
  driftline execute --force`,
	Run: runExecute,
}

func runExecute(cmd *cobra.Command, args []string) {
	plan, err := planner.LoadPlan(executePlanFile)
	if err != nil {
		log.Fatalf("Failed to load plan: %v", err)
	}

	db, driver, env, err := openTarget(executeEnvironment)
	if err != nil {
		log.Fatalf("Failed to open target database: %v", err)
	}
	defer db.Close()

	exec := executor.New(db, driver, env.BackupDir)
	exec.SyntaxCheck = sqlcheck.ForDialect(driver.Name())

	result, err := exec.ExecuteMigrationPlan(context.Background(), plan, executor.Options{
		ValidateOnly: executeValidateOnly,
		DryRun:       executeDryRun,
		Force:        executeForce,
	})
	if result != nil {
		printResult(result)
	}
	if err != nil {
		exitForError(err)
	}
}

func printResult(result *executor.ExecutionResult) {
	if result.Validation != nil {
		if result.Validation.Valid {
			fmt.Println("Plan is still applicable to the live schema.")
		} else {
			fmt.Println("Plan no longer applies:")
			for _, inv := range result.Validation.InvalidOperations {
				fmt.Printf("  operation %d (%s on %s): %s\n", inv.OperationIndex, inv.Type, inv.Table, inv.Reason)
			}
		}
	}

	for _, r := range result.Results {
		fmt.Printf("  [%d] %-10s %s on %s\n", r.OperationIndex, r.Status, r.Type, r.Table)
		if r.SQL != "" {
			fmt.Printf("      %s\n", r.SQL)
		}
		if r.Warning != "" {
			fmt.Printf("      warning: %s\n", r.Warning)
		}
		if r.Error != "" {
			fmt.Printf("      error: %s\n", r.Error)
		}
	}

	if result.BackupPath != "" {
		fmt.Printf("Structural backup: %s\n", result.BackupPath)
	}
	if result.DataBackupRecommended {
		fmt.Println("This plan contains destructive operations; take a data-level backup before relying on the structural one.")
	}
	fmt.Printf("Execution %s finished with status %s in %dms\n", result.ExecutionID, result.Status, result.DurationMs)
}

// exitForError maps the failure taxonomy onto distinct exit codes so
// scripted callers can tell refusals from partial applications.
func exitForError(err error) {
	var (
		concErr  *executor.ConcurrencyError
		blockErr *executor.BlockingRiskError
		bakErr   *executor.BackupError
		stmtErr  *executor.StatementError
	)
	switch {
	case errors.As(err, &concErr):
		fmt.Fprintf(os.Stderr, "Refused: %v\n", err)
		os.Exit(3)
	case errors.As(err, &blockErr):
		fmt.Fprintf(os.Stderr, "Refused: %v\n", err)
		os.Exit(4)
	case errors.As(err, &bakErr):
		fmt.Fprintf(os.Stderr, "Aborted before any statement: %v\n", err)
		os.Exit(5)
	case errors.As(err, &stmtErr):
		fmt.Fprintf(os.Stderr, "Partial failure: %v\n", err)
		os.Exit(6)
	default:
		log.Fatalf("Execution failed: %v", err)
	}
}
