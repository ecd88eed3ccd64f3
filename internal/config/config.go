// Package config handles site configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents site configuration stored in .midel/config.json.
type Config struct {
	CatalogPath string   `json:"catalog_path,omitempty"` // Relative to the site root unless absolute
	IssueRepo   string   `json:"issue_repo,omitempty"`   // owner/name receiving submissions
	IssueLabels []string `json:"issue_labels,omitempty"`
	PDFDir      string   `json:"pdf_dir,omitempty"` // Download target for `midel fetch`
}

const (
	SiteDir    = ".midel"
	ConfigFile = "config.json"
	CacheDir   = "cache"
	DBFile     = "publications.db"

	DefaultCatalogPath = "assets/html/publications.json"
	DefaultIssueRepo   = "slowvak/MIDeL"
	DefaultIssueLabel  = "publication"
	DefaultPDFDir      = "pdfs"
)

// Environment overrides.
const (
	EnvIssueRepo  = "MIDEL_ISSUE_REPO"
	EnvLoginDelay = "MIDEL_LOGIN_DELAY"
)

// Default returns the configuration used when a site has no config file.
func Default() *Config {
	return &Config{
		CatalogPath: DefaultCatalogPath,
		IssueRepo:   DefaultIssueRepo,
		IssueLabels: []string{DefaultIssueLabel},
		PDFDir:      DefaultPDFDir,
	}
}

// SitePath returns the path to the .midel directory from a root path.
func SitePath(root string) string {
	return filepath.Join(root, SiteDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, SiteDir, ConfigFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, SiteDir, CacheDir)
}

// DBPath returns the path to publications.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, SiteDir, CacheDir, DBFile)
}

// IsSite checks if the given path contains a .midel directory.
func IsSite(root string) bool {
	info, err := os.Stat(SitePath(root))
	return err == nil && info.IsDir()
}

// FindSite walks up from the given path to find a site root.
func FindSite(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsSite(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a midel site (no %s directory found)", SiteDir)
		}
		abs = parent
	}
}

// Init creates the .midel directory with a default config, leaving an
// existing config untouched.
func Init(root string) (*Config, error) {
	if err := os.MkdirAll(CachePath(root), 0755); err != nil {
		return nil, fmt.Errorf("creating site directory: %w", err)
	}
	if _, err := os.Stat(ConfigPath(root)); err == nil {
		return Load(root)
	}
	cfg := Default()
	if err := cfg.Save(root); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from the site at the given root. A missing config
// file yields the defaults; unset fields are filled with defaults.
func Load(root string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.merge(fileCfg)
	return cfg, nil
}

func (c *Config) merge(o Config) {
	if o.CatalogPath != "" {
		c.CatalogPath = o.CatalogPath
	}
	if o.IssueRepo != "" {
		c.IssueRepo = o.IssueRepo
	}
	if len(o.IssueLabels) > 0 {
		c.IssueLabels = o.IssueLabels
	}
	if o.PDFDir != "" {
		c.PDFDir = o.PDFDir
	}
}

// Save writes configuration to the site at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(SitePath(root), 0755); err != nil {
		return fmt.Errorf("creating site directory: %w", err)
	}
	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from MIDEL_* environment variables.
func (c *Config) ApplyEnv() {
	if repo := strings.TrimSpace(os.Getenv(EnvIssueRepo)); repo != "" {
		c.IssueRepo = repo
	}
}

// Catalog returns the absolute catalog path for the site at root.
func (c *Config) Catalog(root string) string {
	return resolve(root, c.CatalogPath)
}

// PDFs returns the absolute PDF download directory for the site at root.
func (c *Config) PDFs(root string) string {
	return resolve(root, c.PDFDir)
}

func resolve(root, p string) string {
	p = ExpandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Set updates a field by its JSON key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "catalog_path":
		c.CatalogPath = value
	case "issue_repo":
		c.IssueRepo = value
	case "issue_labels":
		var labels []string
		for _, l := range strings.Split(value, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
		c.IssueLabels = labels
	case "pdf_dir":
		c.PDFDir = value
	default:
		return fmt.Errorf("unknown config key: %s (valid: catalog_path, issue_repo, issue_labels, pdf_dir)", key)
	}
	return nil
}

// LoginDelay returns the simulated login delay from MIDEL_LOGIN_DELAY, or
// def when unset.
func LoginDelay(def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(EnvLoginDelay))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", EnvLoginDelay, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", EnvLoginDelay)
	}
	return d, nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
