package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/midel/config.yml.
type GlobalConfig struct {
	SitePath    string `yaml:"site_path,omitempty"`
	GitHubToken string `yaml:"github_token,omitempty"`
}

const (
	// AppDir is the directory name under the XDG base directories.
	AppDir = "midel"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
	// SessionFile holds the CLI login state.
	SessionFile = "session.json"
)

// ErrSiteNotConfigured is returned when no site is found and site_path is unset.
var ErrSiteNotConfigured = errors.New("site_path not configured")

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/midel/config.yml.
func GlobalConfigPath() string {
	return xdgPath("XDG_CONFIG_HOME", ".config", GlobalConfigFile)
}

// StatePath returns the path to the CLI session file.
// Respects XDG_STATE_HOME, defaults to ~/.local/state/midel/session.json.
func StatePath() string {
	return xdgPath("XDG_STATE_HOME", filepath.Join(".local", "state"), SessionFile)
}

func xdgPath(env, fallback, file string) string {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, AppDir, file)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.SitePath != "" {
		cfg.SitePath = ExpandPath(cfg.SitePath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetGitHubToken returns the GitHub token, preferring GITHUB_TOKEN from the
// environment over the global config.
func GetGitHubToken() string {
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.GitHubToken
}

// ValidateSitePath returns site_path from the global config after checking
// that it holds a site.
func ValidateSitePath() (string, error) {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if cfg.SitePath == "" {
		return "", ErrSiteNotConfigured
	}
	if !IsSite(cfg.SitePath) {
		return "", fmt.Errorf("site_path %s has no %s directory", cfg.SitePath, SiteDir)
	}
	return cfg.SitePath, nil
}

// HelpfulConfigMessage explains how to point midel at a site.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No midel site found.

Run "midel init" in the site root, or create %s:
  mkdir -p %s
  echo 'site_path: /path/to/site' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
