package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/mulefind/data/db/known.db"
	}
	if cfg.Daemon.Timeout == 0 {
		cfg.Daemon.Timeout = 30 * time.Second
	}
	if len(cfg.Daemon.Networks) == 0 {
		cfg.Daemon.Networks = []string{"global", "kad"}
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 50
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 500
	}
	if cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		cfg.Search.MaxLimit = cfg.Search.DefaultLimit
	}
	if cfg.Search.KnownLimit == 0 {
		cfg.Search.KnownLimit = 200
	}
	if cfg.Sanitize.Replacements == nil {
		cfg.Sanitize.Replacements = map[string]string{}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
