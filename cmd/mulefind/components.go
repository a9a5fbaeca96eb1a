package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/mulefind/internal/cli"
	"github.com/hyperjump/mulefind/internal/config"
	"github.com/hyperjump/mulefind/internal/provider"
	"github.com/hyperjump/mulefind/internal/sanitize"
	"github.com/hyperjump/mulefind/internal/search"
	"github.com/hyperjump/mulefind/internal/storage"
	"go.uber.org/zap"
)

// Components holds the long-lived pieces a command works with.
type Components struct {
	Store  *storage.SQLiteStore
	Engine *search.Engine
}

// Close releases the store.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// initializeComponents opens the known store and builds the engine. Daemon providers are
// added for every configured network unless offline is set or no daemon URL is configured.
func initializeComponents(cfg *config.Config, logger *zap.Logger, offline bool) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	var providers []provider.Provider
	if cfg.Daemon.Enabled() && !offline {
		client := provider.NewDaemonClient(cfg.Daemon.URL, cfg.Daemon.Timeout, provider.WithLogger(logger))
		for _, network := range cfg.Daemon.Networks {
			providers = append(providers, provider.NewDaemonProvider(client, network))
		}
	}
	providers = append(providers, provider.NewKnownProvider(store, cfg.Search.KnownLimit))

	opts := []search.Option{search.WithLogger(logger), search.WithTracker(store)}
	if len(cfg.Sanitize.Replacements) > 0 {
		opts = append(opts, search.WithSanitizer(sanitize.New(cfg.Sanitize.Replacements)))
	}
	engine := search.NewEngine(&cfg.Search, providers, opts...)

	return &Components{Store: store, Engine: engine}, nil
}

type providerStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// statusResponse mirrors GET /api/v1/status.
type statusResponse struct {
	KnownFiles     int64                  `json:"known_files"`
	Providers      []providerStatus       `json:"providers"`
	DiskUsageBytes int64                  `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func localStatus(ctx context.Context, cfg *config.Config, c *Components) (statusResponse, error) {
	known, err := c.Store.Count(ctx)
	if err != nil {
		return statusResponse{}, err
	}
	status := statusResponse{
		KnownFiles: known,
		Providers:  make([]providerStatus, 0),
		Config: map[string]interface{}{
			"database_path":       cfg.Storage.DatabasePath,
			"daemon_url":          cfg.Daemon.URL,
			"sanitize_names":      cfg.Search.SanitizeNamesOrDefault(),
			"track_known":         cfg.Search.TrackKnownOrDefault(),
			"library_directories": cfg.Watch.Directories,
		},
	}
	for _, p := range c.Engine.Providers() {
		// A stats failure reports the provider as down.
		available, _ := p.Available(ctx)
		status.Providers = append(status.Providers, providerStatus{Name: p.Name(), Available: available})
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath); err == nil {
		status.DiskUsageBytes = diskBytes
	}
	return status, nil
}

func writeStatusText(w io.Writer, s *statusResponse) {
	fmt.Fprintln(w, "mulefind status")
	fmt.Fprintf(w, "  Known files: %d\n", s.KnownFiles)
	if s.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "  Disk usage:  %s\n", cli.FormatSize(s.DiskUsageBytes))
	}
	fmt.Fprintln(w, "  Providers:")
	for _, p := range s.Providers {
		state := "down"
		if p.Available {
			state = "up"
		}
		fmt.Fprintf(w, "    %-8s %s\n", p.Name, state)
	}
	if s.Config == nil {
		return
	}
	if v, ok := s.Config["database_path"]; ok {
		fmt.Fprintf(w, "  Database:    %v\n", v)
	}
	if v, ok := s.Config["daemon_url"]; ok && v != "" {
		fmt.Fprintf(w, "  Daemon:      %v\n", v)
	}
	if dirs, ok := s.Config["library_directories"]; ok {
		fmt.Fprintf(w, "  Library:     %s\n", joinDirs(dirs))
	}
}

// joinDirs renders library directories from either a decoded JSON array or a []string.
func joinDirs(v interface{}) string {
	var dirs []string
	switch d := v.(type) {
	case []string:
		dirs = d
	case []interface{}:
		for _, x := range d {
			dirs = append(dirs, fmt.Sprint(x))
		}
	}
	if len(dirs) == 0 {
		return "(none)"
	}
	return strings.Join(dirs, ", ")
}
