package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatJSON), "Output format: json, bibtex, text")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export citations for linked publications",
	Long: `Export citations for every publication that renders as a link.

In-process entries and entries with placeholder URLs are left out. Older
entries carry the year "various".

Examples:
  midel export
  midel export --format bibtex -o publications.bib`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	f, err := export.ParseFormat(exportFormat)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	root := mustFindSite()
	cfg := mustLoadConfig(root)
	c, _ := mustLoadCatalog(cfg.Catalog(root))

	cs := export.Citations(c)
	out, err := export.Render(cs, f)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if exportOutput == "" {
		_, _ = os.Stdout.Write(out)
		return nil
	}
	if err := os.WriteFile(exportOutput, out, 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOutput, err)
	}
	if humanOutput {
		outputHuman("Exported %d citations to %s\n", len(cs), exportOutput)
		return nil
	}
	outputJSON(struct {
		Status    string `json:"status"`
		Path      string `json:"path"`
		Format    string `json:"format"`
		Citations int    `json:"citations"`
	}{"exported", exportOutput, string(f), len(cs)})
	return nil
}
