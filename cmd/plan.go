package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/planner"
	"github.com/driftline/driftline/internal/schema"
	"github.com/spf13/cobra"
)

var (
	planEnvironment string
	planBaseline    string
	planOutput      string
	planOffline     string
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planEnvironment, "environment", "e", "", "Environment providing the target database")
	planCmd.Flags().StringVar(&planBaseline, "baseline", "", "Desired-schema snapshot file (defaults to the environment's baseline path)")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "plan.json", "Plan output file")
	planCmd.Flags().StringVar(&planOffline, "current", "", "Plan offline against a saved current-schema snapshot instead of a live database")
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a migration plan from the baseline",
	Long: `Compare the desired baseline snapshot against the current schema and
write an ordered, risk-annotated migration plan. Planning never mutates the
database; the only live queries are the read-only orphaned-row probes used
to classify foreign-key additions.`,
	Example: `  # Plan against the default environment's live schema
  driftline plan

  # Plan a specific baseline against staging
  driftline plan -e staging --baseline schemas/v42.json -o plan.json

  # Plan entirely offline between two snapshot files
  driftline plan --current captured.json --baseline desired.json`,
	Run: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) {
	baselinePath := planBaseline
	if baselinePath == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cfg.ConfigFilePath == "" && planOffline == "" {
			printConfigHint()
			os.Exit(1)
		}
		env, err := config.ResolveEnvironment(cfg, planEnvironment)
		if err == nil {
			baselinePath = env.BaselinePath
		} else if planOffline == "" {
			log.Fatalf("Failed to resolve environment: %v", err)
		} else {
			baselinePath = "baseline.json"
		}
	}

	desired, err := schema.LoadSnapshot(baselinePath)
	if err != nil {
		log.Fatalf("Failed to load baseline: %v", err)
	}

	var plan *planner.Plan
	if planOffline != "" {
		current, err := schema.LoadSnapshot(planOffline)
		if err != nil {
			log.Fatalf("Failed to load current snapshot: %v", err)
		}
		plan, err = planner.Generate(context.Background(), current, desired, nil)
		if err != nil {
			fatalPlanning(err)
		}
	} else {
		db, driver, _, err := openTarget(planEnvironment)
		if err != nil {
			log.Fatalf("Failed to open target database: %v", err)
		}
		defer db.Close()

		plan, err = planner.New(db, driver).GenerateMigrationPlan(context.Background(), desired)
		if err != nil {
			fatalPlanning(err)
		}
	}

	if err := planner.SavePlan(plan, planOutput); err != nil {
		log.Fatalf("Failed to write plan: %v", err)
	}

	fmt.Printf("Plan written to %s: %d operations, estimated %dms\n",
		planOutput, plan.Summary.TotalOperations, plan.EstimatedTimeMs)
	for _, op := range plan.Risks {
		fmt.Printf("  risk %-8s %s on %s\n", op.RiskLevel, op.Type, op.Table)
	}
}

func fatalPlanning(err error) {
	var invalid *planner.InvalidDesiredSchemaError
	if errors.As(err, &invalid) {
		fmt.Fprintln(os.Stderr, "The desired schema is not internally consistent:")
		for _, issue := range invalid.Issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		os.Exit(1)
	}
	log.Fatalf("Failed to generate plan: %v", err)
}
