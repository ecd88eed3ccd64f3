package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/slowvak/midel/internal/storage"
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexStatusCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the query index",
	Long: `Commands for the SQLite query index under .midel/cache.

The index is disposable: the catalog JSON file stays the source of truth
and search rebuilds the index whenever the file is newer.`,
}

// IndexResponse is the response for index commands.
type IndexResponse struct {
	Status       string    `json:"status"`
	Source       string    `json:"source,omitempty"`
	Publications int       `json:"publications"`
	Warnings     int       `json:"warnings,omitempty"`
	BuiltAt      time.Time `json:"built_at,omitempty"`
	Stale        bool      `json:"stale,omitempty"`
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query index from the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindSite()
		cfg := mustLoadConfig(root)
		db := mustOpenDatabase(root)
		defer db.Close()

		now := time.Now()
		n, warnings, err := db.RebuildFromFile(cfg.Catalog(root), now)
		if err != nil {
			exitWithError(ExitDataError, "rebuilding index: %v", err)
		}

		if humanOutput {
			outputHuman("Indexed %d publications", n)
			if len(warnings) > 0 {
				outputHuman(" (%d warnings, see midel check)", len(warnings))
			}
			outputHuman("\n")
			return nil
		}
		outputJSON(IndexResponse{
			Status:       "rebuilt",
			Source:       cfg.Catalog(root),
			Publications: n,
			Warnings:     len(warnings),
			BuiltAt:      now.UTC(),
		})
		return nil
	},
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show when the index was built and whether it is stale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := mustFindSite()
		cfg := mustLoadConfig(root)
		db := mustOpenDatabase(root)
		defer db.Close()

		meta, err := db.Meta()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if meta == nil {
			if humanOutput {
				outputHuman("Index not built. Run 'midel index rebuild'.\n")
				return nil
			}
			outputJSON(IndexResponse{Status: "missing"})
			return nil
		}

		stale := indexStale(meta, cfg.Catalog(root))
		if humanOutput {
			outputHuman("%d publications indexed from %s at %s\n", meta.Count, meta.Source, meta.BuiltAt.Local().Format(time.RFC1123))
			if stale {
				outputHuman("The catalog has changed since; search will rebuild it.\n")
			}
			return nil
		}
		outputJSON(IndexResponse{
			Status:       "ok",
			Source:       meta.Source,
			Publications: meta.Count,
			BuiltAt:      meta.BuiltAt,
			Stale:        stale,
		})
		return nil
	},
}

// indexStale reports whether the catalog at path differs from the one the
// index was built from.
func indexStale(meta *storage.Meta, path string) bool {
	if meta == nil || meta.Source != path {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.ModTime().After(meta.BuiltAt)
}

// mustFreshIndex opens the index and rebuilds it when stale.
// The caller is responsible for calling Close() on the returned DB.
func mustFreshIndex(root, catalogPath string) *storage.DB {
	db := mustOpenDatabase(root)
	meta, err := db.Meta()
	if err != nil {
		db.Close()
		exitWithError(ExitError, "%v", err)
	}
	if indexStale(meta, catalogPath) {
		logger.Debug("rebuilding stale index", zap.String("catalog", catalogPath))
		if _, _, err := db.RebuildFromFile(catalogPath, time.Now()); err != nil {
			db.Close()
			exitWithError(ExitDataError, "rebuilding index: %v", err)
		}
	}
	return db
}
