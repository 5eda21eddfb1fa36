// Package embedcmder provides the embed command for fetching image embeddings
// for rows still missing their vector.
package embedcmder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/config"
	"github.com/canvaslab/atlas/pkg/discovery"
	"github.com/canvaslab/atlas/pkg/dotdir"
	"github.com/canvaslab/atlas/pkg/embeddings/edenai"
	"github.com/canvaslab/atlas/pkg/logger"
	"github.com/canvaslab/atlas/pkg/pipeline"
	"github.com/canvaslab/atlas/pkg/projector"
	"github.com/canvaslab/atlas/pkg/store"
	"github.com/canvaslab/atlas/pkg/utils"
)

type embedCommander struct {
	sqlitePath     string
	datasetRoot    string
	endpoint       string
	providers      []string
	apiKeyEnv      string
	timeoutSeconds uint
	limit          int
	debug          bool
	logger         *zap.Logger
}

const embedLongDesc string = `Fetch an embedding for every row that does not have one yet.

Each pending row is resolved back to its image file, sent to the embedding
provider, and its vector written to the database as soon as it arrives. A
failed item is recorded and skipped; the run continues with the next item.
Interrupt at any point and re-run: only still-pending rows are processed.

Images the provider rejects as oversized are reported separately so they can
be resized and retried.

The provider API key is read from the environment variable named by
embedding.api_key_env (default EDENAI_API_KEY).

Examples:
  atlas embed
  atlas embed --limit 50
  atlas embed --providers google --timeout-seconds 60`

const embedShortDesc string = "Fetch image embeddings for pending rows"

func NewEmbedCmd() *cobra.Command {
	cmder := &embedCommander{}

	cmd := &cobra.Command{
		Use:   "embed",
		Short: embedShortDesc,
		Long:  embedLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			v, err := config.InitViper("")
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagSQLite,
				config.FlagDatasetRoot,
				config.FlagEndpoint,
				config.FlagProviders,
				config.FlagAPIKeyEnv,
				config.FlagTimeoutSeconds,
			})

			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.datasetRoot = v.GetString("discovery.dataset_root")
			cmder.endpoint = v.GetString("embedding.endpoint")
			cmder.providers = v.GetStringSlice("embedding.providers")
			cmder.apiKeyEnv = v.GetString("embedding.api_key_env")
			cmder.timeoutSeconds = v.GetUint("embedding.timeout_seconds")

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagDatasetRoot, &cmder.datasetRoot)
	config.AddStringFlag(cmd, config.Flags, config.FlagEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKeyEnv, &cmder.apiKeyEnv)
	config.AddUintFlag(cmd, config.Flags, config.FlagTimeoutSeconds, &cmder.timeoutSeconds)
	cmd.Flags().StringSliceVar(&cmder.providers, "providers", nil, "upstream providers to request")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "cap how many items this run embeds (0 = all pending)")

	return cmd
}

func (c *embedCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	if c.datasetRoot == "" {
		return fmt.Errorf("dataset root is required (flag --dataset-root or config discovery.dataset_root)")
	}

	apiKey := os.Getenv(c.apiKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("no API key found in $%s", c.apiKeyEnv)
	}

	dbPath, err := dotdir.NewManager().SQLitePath(c.sqlitePath)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath, c.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := edenai.NewClient(edenai.Config{
		Endpoint:  c.endpoint,
		APIKey:    apiKey,
		Providers: c.providers,
		Timeout:   time.Duration(c.timeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	defer embedder.Close()

	proj, err := projector.New(projector.Config{})
	if err != nil {
		return err
	}

	pl, err := pipeline.New(pipeline.Config{
		Store:     st,
		Embedder:  embedder,
		Resolver:  &discovery.Source{Root: c.datasetRoot},
		Projector: proj,
		Logger:    c.logger,
		Limit:     c.limit,
	})
	if err != nil {
		return err
	}

	result, runErr := pl.EmbedPending(ctx)
	if result != nil {
		fmt.Println(result.Summary())
		for _, f := range result.Skipped {
			fmt.Printf("  skipped (size limit): %s\n", f.Identifier)
		}
		for _, f := range result.Errored {
			fmt.Printf("  errored: %s: %s\n", f.Identifier, utils.Truncate(f.Reason, 120))
		}
	}

	return runErr
}
