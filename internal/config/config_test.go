package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
daemon:
  url: "http://127.0.0.1:4711"
  timeout: 5s
  networks: ["kad"]
search:
  sanitize_names: false
sanitize:
  replacements:
    "é": "e"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if !cfg.Daemon.Enabled() || cfg.Daemon.Timeout != 5*time.Second {
		t.Errorf("daemon: %+v", cfg.Daemon)
	}
	if len(cfg.Daemon.Networks) != 1 || cfg.Daemon.Networks[0] != "kad" {
		t.Errorf("networks: %v", cfg.Daemon.Networks)
	}
	if cfg.Search.SanitizeNamesOrDefault() {
		t.Error("sanitize_names: false should be honoured")
	}
	if !cfg.Search.TrackKnownOrDefault() {
		t.Error("track_known should default to true")
	}
	if cfg.Sanitize.Replacements["é"] != "e" {
		t.Errorf("replacements: %v", cfg.Sanitize.Replacements)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_invalid(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/known.db"
watch:
  directories: ["./shared"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "known.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	if want := filepath.Join(dir, "shared"); cfg.Watch.Directories[0] != want {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], want)
	}
}

func TestExpandPath_memory(t *testing.T) {
	if got := expandPath(":memory:", "/etc"); got != ":memory:" {
		t.Errorf("expandPath(:memory:) = %s", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Search.DefaultLimit != 50 || cfg.Search.MaxLimit != 500 || cfg.Search.KnownLimit != 200 {
		t.Errorf("search defaults: %+v", cfg.Search)
	}
	if cfg.Daemon.Enabled() {
		t.Error("daemon should be disabled without a url")
	}
	if cfg.Daemon.Timeout != 30*time.Second {
		t.Errorf("daemon timeout: got %s", cfg.Daemon.Timeout)
	}
	if len(cfg.Daemon.Networks) != 2 || cfg.Daemon.Networks[0] != "global" || cfg.Daemon.Networks[1] != "kad" {
		t.Errorf("daemon networks: got %v", cfg.Daemon.Networks)
	}
	if !cfg.Search.SanitizeNamesOrDefault() || !cfg.Search.TrackKnownOrDefault() {
		t.Error("pipeline switches should default to on")
	}
	if cfg.Sanitize.Replacements == nil {
		t.Error("replacements should be an empty table, not nil")
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset without directories")
	}
}

func TestApplyDefaults_MaxLimitNotBelowDefault(t *testing.T) {
	cfg := &Config{Search: SearchConfig{DefaultLimit: 80, MaxLimit: 20}}
	ApplyDefaults(cfg)
	if cfg.Search.MaxLimit != 80 {
		t.Errorf("max limit: got %d, want 80", cfg.Search.MaxLimit)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/shared"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
		Daemon:  DaemonConfig{URL: "http://gw", Timeout: 10 * time.Second},
		Watch:   WatchConfig{Directories: []string{"/srv/share"}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Daemon.Timeout != 10*time.Second || loaded.Daemon.URL != "http://gw" {
		t.Errorf("loaded daemon: %+v", loaded.Daemon)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != "/srv/share" {
		t.Errorf("loaded watch: %v", loaded.Watch.Directories)
	}
}
