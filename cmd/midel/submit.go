package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/slowvak/midel/internal/browser"
	"github.com/slowvak/midel/internal/catalog"
	"github.com/slowvak/midel/internal/clipboard"
	"github.com/slowvak/midel/internal/issue"
	"github.com/slowvak/midel/internal/pdf"
)

var (
	submitTitle   string
	submitAuthor  string
	submitYear    string
	submitURL     string
	submitPDF     string
	submitOpen    bool
	submitCopy    bool
	submitConfirm bool
)

func init() {
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "Publication title")
	submitCmd.Flags().StringVar(&submitAuthor, "author", "", "First author's last name")
	submitCmd.Flags().StringVar(&submitYear, "year", "", "Publication year")
	submitCmd.Flags().StringVar(&submitURL, "url", "", "Link to the publication")
	submitCmd.Flags().StringVar(&submitPDF, "pdf", "", "Read title and DOI hints from a PDF")
	submitCmd.Flags().BoolVar(&submitOpen, "open", false, "Open the issue form in the browser")
	submitCmd.Flags().BoolVar(&submitCopy, "copy", false, "Copy the issue URL to the clipboard")
	submitCmd.Flags().BoolVar(&submitConfirm, "confirm-duplicate", false, "Submit even if the title is already listed")
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Build a GitHub issue proposing a new publication",
	Long: `Build a GitHub issue proposing a new publication.

Requires a contributor session (see "midel login"). Nothing is posted: the
command prints a prefilled issue-creation URL that a maintainer reviews.

If the title is already listed, the command stops unless
--confirm-duplicate is given; the issue then notes the override.

--pdf fills an empty --title from the PDF's first page and, when --url is
empty, links the DOI found in the first pages.

Examples:
  midel submit --title "Deep Learning for CT" --author Smith --year 2024 --url https://doi.org/10.1/x
  midel submit --pdf paper.pdf --author Smith --year 2024 --open`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

// SubmitResponse is the JSON output of submit.
type SubmitResponse struct {
	Status    string          `json:"status"`
	Repo      string          `json:"repo,omitempty"`
	Title     string          `json:"title,omitempty"`
	URL       string          `json:"url,omitempty"`
	Body      string          `json:"body,omitempty"`
	Year      string          `json:"year_group,omitempty"`
	DOI       string          `json:"doi,omitempty"`
	Matches   []catalog.Match `json:"matches,omitempty"`
	Opened    bool            `json:"opened,omitempty"`
	Copied    bool            `json:"copied,omitempty"`
	Duplicate bool            `json:"duplicate_override,omitempty"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)
	builder := mustIssueBuilder(cfg)

	sess, err := newAuthenticator().Current()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if !sess.CanSubmit() {
		exitWithError(ExitAuthError, "%v: run \"midel login <github-username>\" first", issue.ErrNotLoggedIn)
	}

	sub := issue.Submission{Title: submitTitle, Author: submitAuthor, Year: submitYear, URL: submitURL}
	var resp SubmitResponse
	if submitPDF != "" {
		hints, err := pdf.ReadHints(submitPDF)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		logger.Debug("pdf hints", zap.String("title", hints.Title), zap.String("doi", hints.DOI))
		sub = applyPDFHints(sub, hints)
		resp.DOI = hints.DOI
	}

	if err := sub.Validate(); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	c, _ := mustLoadCatalog(cfg.Catalog(root))
	res := catalog.CheckSubmission(c, sub.Title)
	if res.Duplicate && !submitConfirm {
		if humanOutput {
			outputHuman("Already listed:\n")
			for _, m := range res.Matches {
				outputHuman("  %s (%s) %s\n", m.ID, m.Year, m.Title)
			}
			outputHuman("\nRe-run with --confirm-duplicate to submit anyway.\n")
		} else {
			outputJSON(SubmitResponse{Status: "duplicate", Title: sub.Title, Matches: res.Matches})
		}
		os.Exit(ExitDataError)
	}

	iss, err := builder.Build(sub, sess.Username, res.Duplicate)
	if err != nil {
		if errors.Is(err, issue.ErrNotLoggedIn) {
			exitWithError(ExitAuthError, "%v", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	resp.Status = "ready"
	resp.Repo = builder.Repo()
	resp.Title = iss.Title
	resp.URL = iss.URL
	resp.Body = iss.Body
	resp.Year = iss.Year.String()
	resp.Duplicate = res.Duplicate

	if submitCopy {
		if err := clipboard.Copy(iss.URL); err != nil {
			logger.Warn("copying issue URL", zap.Error(err))
		} else {
			resp.Copied = true
		}
	}
	if submitOpen {
		if err := browser.NewOpener().Open(iss.URL); err != nil {
			logger.Warn("opening browser", zap.Error(err))
		} else {
			resp.Opened = true
		}
	}

	if humanOutput {
		outputHuman("%s\n\n", iss.Title)
		outputHuman("Year group: %s\n", resp.Year)
		if resp.DOI != "" {
			outputHuman("DOI from PDF: %s\n", resp.DOI)
		}
		if resp.Duplicate {
			outputHuman("Note: title already listed, override recorded in the issue\n")
		}
		outputHuman("\nOpen this link to file the issue on %s:\n%s\n", resp.Repo, iss.URL)
		if resp.Copied {
			outputHuman("(copied to clipboard)\n")
		}
		return nil
	}
	outputJSON(resp)
	return nil
}

// applyPDFHints fills an empty title from the PDF and, when no URL was
// given, links the DOI.
func applyPDFHints(sub issue.Submission, h pdf.Hints) issue.Submission {
	if strings.TrimSpace(sub.Title) == "" && h.Title != "" {
		sub.Title = h.Title
	}
	if strings.TrimSpace(sub.URL) == "" && h.DOI != "" {
		sub.URL = "https://doi.org/" + h.DOI
	}
	return sub
}
