package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/canvaslab/atlas/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the ATLAS_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ATLAS_API_LISTEN, ATLAS_STORAGE_SQLITE_PATH, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: ATLAS_API_LISTEN, ATLAS_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	// Discovery
	v.SetDefault("discovery.dataset_root", d.Discovery.DatasetRoot)
	v.SetDefault("discovery.per_artist_limit", d.Discovery.PerArtistLimit)

	// Embedding
	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)
	v.SetDefault("embedding.providers", d.Embedding.Providers)
	v.SetDefault("embedding.api_key_env", d.Embedding.APIKeyEnv)
	v.SetDefault("embedding.timeout_seconds", d.Embedding.TimeoutSeconds)

	// Projector
	v.SetDefault("projector.row_width", d.Projector.RowWidth)

	// API
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.viewer_dir", d.API.ViewerDir)

	// Thumbs
	v.SetDefault("thumbs.dir", d.Thumbs.Dir)
	v.SetDefault("thumbs.max_width", d.Thumbs.MaxWidth)
	v.SetDefault("thumbs.workers", d.Thumbs.Workers)
}
