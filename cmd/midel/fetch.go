package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/fetch"
	"github.com/slowvak/midel/internal/importer"
)

var fetchOut string

func init() {
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "Download directory (default: pdf_dir from config)")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <csv>",
	Short: "Download PDFs for the DOIs in a CSV file",
	Long: `Download PDFs for the DOIs in a CSV file (same columns as import).

Each DOI is resolved through doi.org (dx.doi.org as fallback) and the landing
page is searched for a PDF link. Downloads are paced at one request per
second, retried up to three times, and rejected unless they look like a PDF.
Files already present are skipped. A download_report.txt is written to the
output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	dir := fetchOut
	if dir == "" {
		dir = cfg.PDFs(root)
	}

	rows, err := importer.ReadCSVFile(args[0])
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := fetch.NewFetcher(fetch.WithLogger(logger)).Run(ctx, rows, dir)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	reportPath, err := fetch.WriteReport(rep, time.Now())
	if err != nil {
		exitWithError(ExitError, "writing report: %v", err)
	}

	if humanOutput {
		outputHuman("Downloaded %d of %d (%d already present)\n", rep.Successful, rep.Total(), rep.Existing)
		for _, f := range rep.Failures {
			outputHuman("  failed line %d: %s (%s)\n", f.Line, truncateString(f.Title, ImportTitleMaxLen), f.Reason)
		}
		outputHuman("Report: %s\n", reportPath)
		return nil
	}
	outputJSON(struct {
		fetch.Report
		ReportPath string `json:"report"`
	}{rep, reportPath})
	return nil
}
