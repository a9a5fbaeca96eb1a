// Package config provides configuration loading and structs for the mulefind server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Search   SearchConfig   `yaml:"search"`
	Sanitize SanitizeConfig `yaml:"sanitize"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the known-files database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DaemonConfig points at the HTTP gateway of the search daemon. An empty URL disables
// daemon providers; searches then only see the known store.
type DaemonConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	Networks []string      `yaml:"networks"`
}

// Enabled reports whether a daemon gateway is configured.
func (d *DaemonConfig) Enabled() bool {
	return strings.TrimSpace(d.URL) != ""
}

// SearchConfig holds request limits and pipeline switches.
type SearchConfig struct {
	DefaultLimit  int   `yaml:"default_limit"`
	MaxLimit      int   `yaml:"max_limit"`
	SanitizeNames *bool `yaml:"sanitize_names"`
	TrackKnown    *bool `yaml:"track_known"`
	// KnownLimit caps hits read from the known store per search.
	KnownLimit int `yaml:"known_limit"`
}

// SanitizeNamesOrDefault returns whether hit names are sanitized; defaults to true when unset.
func (s *SearchConfig) SanitizeNamesOrDefault() bool {
	return s.SanitizeNames == nil || *s.SanitizeNames
}

// TrackKnownOrDefault returns whether daemon hits are recorded; defaults to true when unset.
func (s *SearchConfig) TrackKnownOrDefault() bool {
	return s.TrackKnown == nil || *s.TrackKnown
}

// SanitizeConfig holds the per-character replacement table for hit names.
type SanitizeConfig struct {
	Replacements map[string]string `yaml:"replacements"`
}

// WatchConfig holds shared-directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	// Extensions limits hashed files; empty means every regular file.
	Extensions []string `yaml:"extensions"`
	Recursive  *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting shared directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. ":memory:" is kept as is.
func expandPath(path string, configDir string) string {
	if path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
