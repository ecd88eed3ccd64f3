package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/slowvak/midel/internal/config"
	"github.com/slowvak/midel/internal/github"
)

func init() {
	rootCmd.AddCommand(pendingCmd)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List open submission issues awaiting review",
	Long: `List open issues on the submission repository that carry the first
submission label. Pull requests are left out.

Uses GITHUB_TOKEN (or github_token in the global config) when set; public
repositories work without a token at a lower rate limit.`,
	Args: cobra.NoArgs,
	RunE: runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)

	owner, repo, err := github.ParseGitHubURL(cfg.IssueRepo)
	if err != nil {
		exitWithError(ExitConfigError, "issue_repo %q: %v", cfg.IssueRepo, err)
	}
	label := config.DefaultIssueLabel
	if len(cfg.IssueLabels) > 0 {
		label = cfg.IssueLabels[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := github.NewClient(github.WithToken(config.GetGitHubToken()))
	subs, err := client.OpenSubmissions(ctx, owner, repo, label)
	if err != nil {
		switch {
		case errors.Is(err, github.ErrUnauthorized):
			exitWithError(ExitAuthError, "%v", err)
		case errors.Is(err, github.ErrRepoNotFound):
			exitWithError(ExitConfigError, "%v", err)
		default:
			exitWithError(ExitError, "%v", err)
		}
	}
	if subs == nil {
		subs = []github.Submission{}
	}

	if humanOutput {
		if len(subs) == 0 {
			outputHuman("No open submissions on %s/%s\n", owner, repo)
			return nil
		}
		outputHuman("%d open submissions on %s/%s:\n\n", len(subs), owner, repo)
		for _, s := range subs {
			outputHuman("  #%-5d %s (by %s, %s)\n", s.Number, truncateString(s.Title, ListTitleMaxLen), s.User, s.CreatedAt.Format("2006-01-02"))
		}
		return nil
	}
	outputJSON(subs)
	return nil
}
