package main

import (
	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/catalog"
)

var (
	listQuery  string
	listYear   string
	listStatus string
	listMode   string
	listAll    bool
)

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Case-insensitive title substring")
	listCmd.Flags().StringVar(&listYear, "year", catalog.All, "Year heading to show (e.g. 2024, older, all)")
	listCmd.Flags().StringVar(&listStatus, "status", catalog.All, "Status filter: all, published, in_process")
	listCmd.Flags().StringVar(&listMode, "mode", string(catalog.ModeField), "Status filter mode: field or style")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include hidden sections and items (marked hidden)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List publications as the page shows them",
	Long: `List publications grouped by year, newest first with Older last.

Filters behave like the page controls: --query matches titles, --year picks
one heading, --status keeps published or in-process entries.

Examples:
  midel list
  midel list --year 2024 --status published
  midel list -q segmentation --human`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// ListResponse is the JSON output of list.
type ListResponse struct {
	Filter   catalog.Filter    `json:"filter"`
	Total    int               `json:"total"`
	Visible  int               `json:"visible"`
	Sections []catalog.Section `json:"sections"`
}

func runList(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	f := catalog.Filter{
		Query:  listQuery,
		Year:   listYear,
		Status: listStatus,
		Mode:   catalog.StatusMode(listMode),
	}
	if err := f.Validate(); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	c, _ := mustLoadCatalog(cfg.Catalog(root))
	v := catalog.Build(c).Apply(f)
	resp := buildListResponse(v, f, listAll)

	if humanOutput {
		printListHuman(resp)
		return nil
	}
	outputJSON(resp)
	return nil
}

// buildListResponse keeps only visible sections and items unless all is set.
func buildListResponse(v catalog.View, f catalog.Filter, all bool) ListResponse {
	resp := ListResponse{Filter: f, Sections: []catalog.Section{}}
	for _, s := range v.Sections {
		resp.Total += len(s.Items)
		if s.Hidden && !all {
			continue
		}
		out := s
		out.Items = []catalog.Item{}
		for _, it := range s.Items {
			if !it.Hidden && !s.Hidden {
				resp.Visible++
			}
			if it.Hidden && !all {
				continue
			}
			out.Items = append(out.Items, it)
		}
		if len(out.Items) == 0 && !all {
			continue
		}
		resp.Sections = append(resp.Sections, out)
	}
	return resp
}

func printListHuman(resp ListResponse) {
	if resp.Visible == 0 {
		outputHuman("No publications match (%d in catalog)\n", resp.Total)
		return
	}
	outputHuman("%d of %d publications:\n", resp.Visible, resp.Total)
	for _, s := range resp.Sections {
		outputHuman("\n%s\n", s.Heading)
		for _, it := range s.Items {
			marker := " "
			if !it.Active {
				marker = "-"
			}
			outputHuman("  %s %s\n", marker, truncateString(it.Title, ListTitleMaxLen))
			if it.Active {
				outputHuman("      %s\n", it.Href)
			}
		}
	}
}
