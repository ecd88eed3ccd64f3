package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/catalog"
)

var checkStrict bool

func init() {
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit with code 3 when anything is found")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(checkTitleCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the catalog file",
	Long: `Validate the catalog file.

Reports missing titles or URLs, duplicate ids, titles listed twice, unknown
type or status values, and year groups that appear more than once. A file
that cannot be parsed at all exits with code 3.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// CheckResponse is the response for the check command.
type CheckResponse struct {
	Status       string            `json:"status"`
	Path         string            `json:"path"`
	Publications int               `json:"publications"`
	Issues       []catalog.Finding `json:"issues"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)
	path := cfg.Catalog(root)

	c, warnings := mustLoadCatalog(path)
	findings := catalog.Audit(c, warnings)

	status := "ok"
	if len(findings) > 0 {
		status = "issues"
	}
	if findings == nil {
		findings = []catalog.Finding{}
	}

	if humanOutput {
		if len(findings) == 0 {
			outputHuman("Catalog check: OK\n\n%d publications checked\n", c.Len())
		} else {
			outputHuman("Catalog check: %d issues found\n\n", len(findings))
			for _, f := range findings {
				outputHuman("  [WARN] %s\n", f.Message)
				if len(f.IDs) > 0 {
					outputHuman("         ids: %v\n", f.IDs)
				} else if f.ID != "" {
					outputHuman("         id: %s\n", f.ID)
				}
			}
			outputHuman("\n%d publications checked\n", c.Len())
		}
	} else {
		outputJSON(CheckResponse{
			Status:       status,
			Path:         path,
			Publications: c.Len(),
			Issues:       findings,
		})
	}

	if checkStrict && len(findings) > 0 {
		os.Exit(ExitDataError)
	}
	return nil
}

var checkTitleCmd = &cobra.Command{
	Use:   "check-title <title>",
	Short: "Check whether a title is already listed",
	Long: `Check whether a title is already listed.

Matching ignores case and surrounding whitespace. Titles shorter than three
characters are not checked.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckTitle,
}

func runCheckTitle(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)
	c, _ := mustLoadCatalog(cfg.Catalog(root))

	res := catalog.CheckTitle(c, args[0])
	if !humanOutput {
		outputJSON(res)
		return nil
	}
	switch {
	case res.TooShort:
		outputHuman("Title too short to check (minimum %d characters)\n", catalog.MinCheckLength)
	case res.Duplicate:
		outputHuman("Already listed:\n")
		for _, m := range res.Matches {
			outputHuman("  %s (%s) %s\n", m.ID, m.Year, m.Title)
		}
	default:
		outputHuman("Not listed\n")
	}
	return nil
}
