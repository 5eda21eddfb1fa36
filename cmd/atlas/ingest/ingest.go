// Package ingestcmder provides the ingest command for registering dataset
// images in the database.
package ingestcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/config"
	"github.com/canvaslab/atlas/pkg/discovery"
	"github.com/canvaslab/atlas/pkg/dotdir"
	"github.com/canvaslab/atlas/pkg/logger"
	"github.com/canvaslab/atlas/pkg/pipeline"
	"github.com/canvaslab/atlas/pkg/projector"
	"github.com/canvaslab/atlas/pkg/store"
)

type ingestCommander struct {
	sqlitePath     string
	datasetRoot    string
	perArtistLimit uint
	debug          bool
	logger         *zap.Logger
}

const ingestLongDesc string = `Register dataset images as database rows.

Walks one folder per artist under the dataset root and upserts a placeholder
row per image. Rows are keyed by filename, so re-running ingest never
duplicates entries; embedding and projection columns are filled by later
pipeline stages.

With no arguments every artist folder under the dataset root is ingested.
Pass artist display names to ingest a subset ("Claude Monet" maps to the
Claude_Monet folder).

Examples:
  atlas ingest
  atlas ingest "Claude Monet" "Francisco Goya"
  atlas ingest --dataset-root ./images --per-artist-limit 100`

const ingestShortDesc string = "Register dataset images in the database"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest [artist ...]",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
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
				config.FlagPerArtistLimit,
			})

			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.datasetRoot = v.GetString("discovery.dataset_root")
			cmder.perArtistLimit = v.GetUint("discovery.per_artist_limit")

			return cmder.run(cmd.Context(), args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagDatasetRoot, &cmder.datasetRoot)
	config.AddUintFlag(cmd, config.Flags, config.FlagPerArtistLimit, &cmder.perArtistLimit)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, artists []string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	if c.datasetRoot == "" {
		return fmt.Errorf("dataset root is required (flag --dataset-root or config discovery.dataset_root)")
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

	src := &discovery.Source{Root: c.datasetRoot, PerArtist: int(c.perArtistLimit)}

	if len(artists) == 0 {
		artists, err = src.Artists()
		if err != nil {
			return err
		}
	}

	files, err := src.ByArtists(artists)
	if err != nil {
		return err
	}

	proj, err := projector.New(projector.Config{})
	if err != nil {
		return err
	}

	pl, err := pipeline.New(pipeline.Config{
		Store:     st,
		Projector: proj,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	result, err := pl.Ingest(ctx, files)
	if err != nil {
		return err
	}

	fmt.Println(result.Summary())
	return nil
}
