package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/slowvak/midel/internal/auth"
	"github.com/slowvak/midel/internal/config"
	"github.com/slowvak/midel/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a local preview of the publications page",
	Long: `Serve a local preview of the publications page.

The catalog is re-read on every page view, so edits show up on reload.
The page has the search, year and status filters, citation export, the
mock contributor login and the submission form. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	root := mustFindSite()
	cfg := mustLoadConfig(root)
	builder := mustIssueBuilder(cfg)

	delay, err := config.LoginDelay(auth.DefaultDelay)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	// The server always logs requests at info level.
	if !verbose {
		if l, err := newServeLogger(); err == nil {
			logger = l
		}
	}

	srv := server.New(server.Config{
		CatalogPath: cfg.Catalog(root),
		Issues:      builder,
		LoginDelay:  delay,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.ListenAndServe(ctx, serveAddr, func(a net.Addr) {
		if humanOutput {
			outputHuman("Serving %s on http://%s\n", cfg.Catalog(root), a)
			return
		}
		outputJSON(struct {
			Status  string `json:"status"`
			Addr    string `json:"addr"`
			Catalog string `json:"catalog"`
		}{"serving", a.String(), cfg.Catalog(root)})
	})
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	logger.Info("server stopped", zap.String("addr", serveAddr))
	return nil
}

func newServeLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
