package cmd

import (
	"fmt"
	"log"

	"github.com/driftline/driftline/internal/wizard"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create driftline.toml and an environment dotenv file",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := wizard.Run()
		if err != nil {
			log.Fatalf("Init failed: %v", err)
		}
		fmt.Printf("Created %s and %s\n", result.ConfigPath, result.EnvFilePath)
		fmt.Println(`Next steps:
  driftline baseline   # capture the desired schema from a reference database
  driftline plan       # compute the migration plan
  driftline execute    # review with --dry-run, then apply`)
	},
}
