package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "atlas ingest", "atlas embed", "atlas project", and "atlas serve").
type Flag struct {
	// Name is the long flag name (e.g. "sqlite").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.sqlite_path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagSQLite         = "sqlite"
	FlagDatasetRoot    = "dataset-root"
	FlagPerArtistLimit = "per-artist-limit"
	FlagEndpoint       = "endpoint"
	FlagProviders      = "providers"
	FlagAPIKeyEnv      = "api-key-env"
	FlagTimeoutSeconds = "timeout-seconds"
	FlagRowWidth       = "row-width"
	FlagAPIListen      = "api-listen"
	FlagViewerDir      = "viewer-dir"
	FlagThumbsDir      = "thumbs-dir"
	FlagThumbsMaxWidth = "thumbs-max-width"
	FlagThumbsWorkers  = "thumbs-workers"
)

// Flags is the default registry used by the atlas commands.
var Flags = FlagSet{
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "path to the sqlite database file",
	},
	FlagDatasetRoot: {
		Name:        "dataset-root",
		Shorthand:   "r",
		ViperKey:    "discovery.dataset_root",
		Description: "directory holding one folder of images per artist",
	},
	FlagPerArtistLimit: {
		Name:        "per-artist-limit",
		ViperKey:    "discovery.per_artist_limit",
		Description: "cap discovered files per artist folder (0 = no cap)",
	},
	FlagEndpoint: {
		Name:        "endpoint",
		ViperKey:    "embedding.endpoint",
		Description: "embedding provider endpoint URL",
	},
	FlagProviders: {
		Name:        "providers",
		ViperKey:    "embedding.providers",
		Description: "comma-separated upstream providers to request",
	},
	FlagAPIKeyEnv: {
		Name:        "api-key-env",
		ViperKey:    "embedding.api_key_env",
		Description: "environment variable holding the provider API key",
	},
	FlagTimeoutSeconds: {
		Name:        "timeout-seconds",
		ViperKey:    "embedding.timeout_seconds",
		Description: "per-request embedding timeout in seconds",
	},
	FlagRowWidth: {
		Name:        "row-width",
		ViperKey:    "projector.row_width",
		Description: "width each embedding is reshaped to before projection",
	},
	FlagAPIListen: {
		Name:        "api-listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "listen address for the API server",
	},
	FlagViewerDir: {
		Name:        "viewer-dir",
		ViperKey:    "api.viewer_dir",
		Description: "directory of static viewer assets served at /",
	},
	FlagThumbsDir: {
		Name:        "thumbs-dir",
		ViperKey:    "thumbs.dir",
		Description: "output directory for generated thumbnails",
	},
	FlagThumbsMaxWidth: {
		Name:        "thumbs-max-width",
		ViperKey:    "thumbs.max_width",
		Description: "maximum thumbnail width in pixels",
	},
	FlagThumbsWorkers: {
		Name:        "thumbs-workers",
		ViperKey:    "thumbs.workers",
		Description: "number of concurrent thumbnail workers",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
