package main

import (
	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/storage"
)

var (
	searchYear   string
	searchStatus string
	searchType   string
	searchLimit  int
)

func init() {
	searchCmd.Flags().StringVar(&searchYear, "year", "", "Calendar year or 'older'")
	searchCmd.Flags().StringVar(&searchStatus, "status", "", "published or in_process")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Publication type (journal, conference, ...)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum results to return (0 = all)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search publication titles",
	Long: `Search publication titles (case-insensitive substring) through the
query index. The index is rebuilt first if the catalog changed.

Examples:
  midel search segmentation
  midel search --year older --type conference
  midel search ct --status in_process --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)
	db := mustFreshIndex(root, cfg.Catalog(root))
	defer db.Close()

	f := storage.SearchFilters{Year: searchYear, Status: searchStatus, Type: searchType}
	if len(args) == 1 {
		f.Query = args[0]
	}
	hits, err := db.Search(f, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	if hits == nil {
		hits = []storage.Hit{}
	}

	if humanOutput {
		if len(hits) == 0 {
			outputHuman("No publications found\n")
			return nil
		}
		outputHuman("%d publications:\n\n", len(hits))
		for _, h := range hits {
			outputHuman("  %-8s %-32s %s\n", h.Year.Heading(), truncateString(h.ID, 32), truncateString(h.Title, SearchTitleMaxLen))
		}
		return nil
	}
	outputJSON(hits)
	return nil
}
