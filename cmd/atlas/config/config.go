// Package configcmder provides the config command for managing persistent
// atlas configuration stored in the .atlas/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent atlas configuration.

Configuration is stored as config.toml in the .atlas/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path,
  discovery.dataset_root, discovery.per_artist_limit,
  embedding.endpoint, embedding.providers, embedding.api_key_env,
  embedding.timeout_seconds,
  projector.row_width,
  api.listen, api.viewer_dir,
  thumbs.dir, thumbs.max_width, thumbs.workers

Use subcommands to get, set, or list configuration values:
  atlas config set <key> <value>    Set a configuration value
  atlas config get <key>            Get a configuration value
  atlas config list                 List all configuration values

Examples:
  atlas config set discovery.dataset_root ./dataset
  atlas config set embedding.providers google,amazon
  atlas config get projector.row_width
  atlas config list`

const configShortDesc string = "Manage persistent atlas configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.PersistentFlags().String("config-dir", "", "Override path to .atlas/ config directory")

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
