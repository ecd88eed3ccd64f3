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

var (
	importResolve bool
	importDryRun  bool
)

func init() {
	importCmd.Flags().BoolVar(&importResolve, "resolve", false, "Look up a PDF link for each DOI (one request per second)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be added without writing the catalog")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Append publications from a CSV export",
	Long: `Append publications from a CSV file with the columns
"Title", "First Author", "Publication Year" and "DOI".

Rows without a title or DOI are skipped, as are titles already listed (in the
catalog or earlier in the file). Years before 2022 go to the Older group.
New entries are published journal articles; their URL is a PDF link found
through the DOI with --resolve, otherwise the NotAvailableYet placeholder.

The previous catalog is kept as <file>.backup.<timestamp>.

Examples:
  midel import new_pubs.csv --dry-run
  midel import new_pubs.csv --resolve`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	rows, err := importer.ReadCSVFile(args[0])
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []importer.Option{importer.WithLogger(logger)}
	if importResolve {
		opts = append(opts, importer.WithResolver(fetch.NewResolver(fetch.WithLogger(logger))))
	}
	im := importer.New(opts...)

	res, err := im.ImportFile(ctx, cfg.Catalog(root), rows, importDryRun, time.Now())
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	if res.Added == nil {
		res.Added = []importer.Added{}
	}
	if res.Skipped == nil {
		res.Skipped = []importer.Skipped{}
	}

	if humanOutput {
		printImportHuman(res, importDryRun)
		return nil
	}
	outputJSON(res)
	return nil
}

func printImportHuman(res importer.Result, dryRun bool) {
	verb := "Added"
	if dryRun {
		verb = "Would add"
	}
	outputHuman("%s %d publications, skipped %d\n", verb, len(res.Added), len(res.Skipped))
	for _, a := range res.Added {
		outputHuman("  + [%s] %s\n", a.Year, truncateString(a.Record.Title, ImportTitleMaxLen))
	}
	for _, s := range res.Skipped {
		outputHuman("  - line %d: %s (%s)\n", s.Line, truncateString(s.Title, ImportTitleMaxLen), s.Reason)
	}
	if res.Backup != "" {
		outputHuman("Backup: %s\n", res.Backup)
	}
	if !res.Saved && !dryRun && len(res.Added) == 0 {
		outputHuman("Catalog unchanged\n")
	}
}
