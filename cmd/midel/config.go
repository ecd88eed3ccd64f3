package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set site configuration values",
	Long: `Get or set site configuration values in .midel/config.json.

Usage:
  midel config                                  # Show all config
  midel config issue_repo                       # Get specific value
  midel config issue_repo myorg/MIDeL           # Set value
  midel config issue_labels publication,triage  # Comma-separated list

Keys:
  catalog_path  Catalog JSON file, relative to the site root
  issue_repo    owner/name receiving submission issues
  issue_labels  Labels added to submission issues
  pdf_dir       Download directory for "midel fetch"`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	if len(args) == 0 {
		if humanOutput {
			outputHuman("catalog_path: %s\n", cfg.CatalogPath)
			outputHuman("issue_repo:   %s\n", cfg.IssueRepo)
			outputHuman("issue_labels: %s\n", strings.Join(cfg.IssueLabels, ","))
			outputHuman("pdf_dir:      %s\n", cfg.PDFDir)
		} else {
			outputJSON(cfg)
		}
		return nil
	}

	key := normalizeKey(args[0])
	if len(args) == 1 {
		value, ok := configValue(cfg, key)
		if !ok {
			exitWithError(ExitConfigError, "unknown config key: %s", args[0])
		}
		if humanOutput {
			outputHuman("%s\n", value)
		} else {
			outputJSON(map[string]string{key: value})
		}
		return nil
	}

	if err := cfg.Set(key, args[1]); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}
	if humanOutput {
		outputHuman("Set %s = %s\n", key, args[1])
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: args[1]})
	}
	return nil
}

// normalizeKey accepts dashed keys (issue-repo) as well as the JSON names.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

func configValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "catalog_path":
		return cfg.CatalogPath, true
	case "issue_repo":
		return cfg.IssueRepo, true
	case "issue_labels":
		return strings.Join(cfg.IssueLabels, ","), true
	case "pdf_dir":
		return cfg.PDFDir, true
	}
	return "", false
}
