package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent atlas configuration stored as config.toml
// in the .atlas/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Projector ProjectorConfig `toml:"projector"`
	API       APIConfig       `toml:"api"`
	Thumbs    ThumbsConfig    `toml:"thumbs"`
}

// StorageConfig holds shared storage settings used by every command.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// DiscoveryConfig holds dataset discovery settings.
type DiscoveryConfig struct {
	// DatasetRoot is the directory holding one folder per artist.
	DatasetRoot string `toml:"dataset_root,omitempty"`

	// PerArtistLimit caps how many files are discovered per artist folder.
	// Zero means no cap.
	PerArtistLimit uint `toml:"per_artist_limit,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Endpoint string `toml:"endpoint,omitempty"`

	// Providers are the upstream providers requested per call; the first
	// one's vector is the one stored.
	Providers []string `toml:"providers,omitempty"`

	// APIKeyEnv names the environment variable carrying the provider API
	// key. The key itself never lands in the config file.
	APIKeyEnv string `toml:"api_key_env,omitempty"`

	TimeoutSeconds uint `toml:"timeout_seconds,omitempty"`
}

// ProjectorConfig holds projection settings.
type ProjectorConfig struct {
	RowWidth uint `toml:"row_width,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`

	// ViewerDir is a directory of static viewer assets served at the root.
	ViewerDir string `toml:"viewer_dir,omitempty"`
}

// ThumbsConfig holds thumbnail generation settings.
type ThumbsConfig struct {
	Dir      string `toml:"dir,omitempty"`
	MaxWidth uint   `toml:"max_width,omitempty"`
	Workers  uint   `toml:"workers,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(name string, get func(c *Config) uint, set func(c *Config, n uint)) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if get(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(get(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			set(c, uint(n))
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"discovery.dataset_root": {
		get: func(c *Config) string { return c.Discovery.DatasetRoot },
		set: func(c *Config, v string) error { c.Discovery.DatasetRoot = v; return nil },
	},
	"discovery.per_artist_limit": uintKey("discovery.per_artist_limit",
		func(c *Config) uint { return c.Discovery.PerArtistLimit },
		func(c *Config, n uint) { c.Discovery.PerArtistLimit = n },
	),
	"embedding.endpoint": {
		get: func(c *Config) string { return c.Embedding.Endpoint },
		set: func(c *Config, v string) error { c.Embedding.Endpoint = v; return nil },
	},
	"embedding.providers": {
		get: func(c *Config) string { return strings.Join(c.Embedding.Providers, ",") },
		set: func(c *Config, v string) error {
			var providers []string
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					providers = append(providers, p)
				}
			}
			if len(providers) == 0 {
				return fmt.Errorf("embedding.providers needs at least one provider")
			}
			c.Embedding.Providers = providers
			return nil
		},
	},
	"embedding.api_key_env": {
		get: func(c *Config) string { return c.Embedding.APIKeyEnv },
		set: func(c *Config, v string) error { c.Embedding.APIKeyEnv = v; return nil },
	},
	"embedding.timeout_seconds": uintKey("embedding.timeout_seconds",
		func(c *Config) uint { return c.Embedding.TimeoutSeconds },
		func(c *Config, n uint) { c.Embedding.TimeoutSeconds = n },
	),
	"projector.row_width": uintKey("projector.row_width",
		func(c *Config) uint { return c.Projector.RowWidth },
		func(c *Config, n uint) { c.Projector.RowWidth = n },
	),
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.viewer_dir": {
		get: func(c *Config) string { return c.API.ViewerDir },
		set: func(c *Config, v string) error { c.API.ViewerDir = v; return nil },
	},
	"thumbs.dir": {
		get: func(c *Config) string { return c.Thumbs.Dir },
		set: func(c *Config, v string) error { c.Thumbs.Dir = v; return nil },
	},
	"thumbs.max_width": uintKey("thumbs.max_width",
		func(c *Config) uint { return c.Thumbs.MaxWidth },
		func(c *Config, n uint) { c.Thumbs.MaxWidth = n },
	),
	"thumbs.workers": uintKey("thumbs.workers",
		func(c *Config) uint { return c.Thumbs.Workers },
		func(c *Config, n uint) { c.Thumbs.Workers = n },
	),
}
