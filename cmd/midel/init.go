package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize midel in the site root",
	Long: `Initialize midel in the current directory (the site root).

Creates:
  .midel/
  ├── config.json     # Default config (catalog path, issue repository)
  └── cache/          # Query index (ephemeral, gitignored)

Running init again keeps an existing config.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	existed := config.IsSite(root)
	cfg, err := config.Init(root)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	status := "initialized"
	if existed {
		status = "exists"
	}
	if humanOutput {
		if existed {
			outputHuman("midel already initialized in %s\n", root)
		} else {
			outputHuman("Initialized midel in %s\n", root)
		}
		outputHuman("Catalog: %s\n", cfg.Catalog(root))
		return nil
	}
	outputJSON(StatusResponse{Status: status, Path: root})
	return nil
}
