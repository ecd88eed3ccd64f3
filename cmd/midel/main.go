// Package main provides the midel CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/slowvak/midel/internal/auth"
	"github.com/slowvak/midel/internal/config"
	"github.com/slowvak/midel/internal/issue"
	"github.com/slowvak/midel/internal/publication"
	"github.com/slowvak/midel/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verbose enables debug logging on stderr.
var verbose bool

// logger is built in PersistentPreRunE; commands log through it.
var logger = zap.NewNop()

func main() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra errors (bad flags, missing args) are printed here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midel",
	Short: "Publication catalog toolkit for the MIDeL site",
	Long: `midel maintains the MIDeL publications page.

The catalog is a JSON file of year groups, each holding publications.
midel lists, searches, validates and exports it, imports new records from
CSV, fetches PDFs by DOI, builds GitHub submission issues for allow-listed
contributors, and serves a local preview of the page.

All commands output JSON by default; pass --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.Version = Version
}

// newLogger builds the stderr logger. Without --verbose only warnings and
// errors are written so JSON on stdout stays the only output.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return cfg.Build()
}

// getStartingDirectory returns the directory to start searching for a site.
// Checks global config site_path first, then the current working directory.
func getStartingDirectory() (string, int) {
	if root, err := config.ValidateSitePath(); err == nil {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindSite finds the site root, exits on error.
func mustFindSite() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	root, err := config.FindSite(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return root
}

// mustLoadConfig loads the site configuration with MIDEL_* overrides, exits on error.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	cfg.ApplyEnv()
	return cfg
}

// mustLoadCatalog loads the catalog file, exits with ExitDataError on error.
// Load warnings are logged, not fatal.
func mustLoadCatalog(path string) (publication.Catalog, []publication.Warning) {
	c, warnings, err := publication.Load(path)
	if err != nil {
		exitWithError(ExitDataError, "loading catalog: %v", err)
	}
	for _, w := range warnings {
		logger.Warn("catalog record", zap.String("path", path), zap.String("warning", w.String()))
	}
	return c, warnings
}

// mustOpenDatabase opens the SQLite query index, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(root string) *storage.DB {
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustIssueBuilder creates the submission issue builder, exits on error.
func mustIssueBuilder(cfg *config.Config) *issue.Builder {
	b, err := issue.NewBuilder(cfg.IssueRepo, cfg.IssueLabels...)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return b
}

// mustLoginDelay reads MIDEL_LOGIN_DELAY, exits on error.
func mustLoginDelay() auth.Option {
	d, err := config.LoginDelay(auth.DefaultDelay)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return auth.WithDelay(d)
}

// newAuthenticator returns the CLI authenticator over the session state file.
func newAuthenticator() *auth.Authenticator {
	path := config.StatePath()
	if path == "" {
		exitWithError(ExitConfigError, "cannot determine session file location")
	}
	return auth.New(auth.NewFileStore(path), mustLoginDelay())
}
