// Package statuscmder provides the status command for reporting pipeline
// progress across the database.
package statuscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/config"
	"github.com/canvaslab/atlas/pkg/dotdir"
	"github.com/canvaslab/atlas/pkg/logger"
	"github.com/canvaslab/atlas/pkg/pipeline"
	"github.com/canvaslab/atlas/pkg/projector"
	"github.com/canvaslab/atlas/pkg/store"
)

type statusCommander struct {
	sqlitePath string
	debug      bool
	logger     *zap.Logger
}

const statusLongDesc string = `Report how far each pipeline stage has progressed.

For embeddings and both projection families this prints how many rows have
the field, how many still lack it, the next file to process, and contiguous
ID ranges showing exactly where the gaps sit.

Examples:
  atlas status
  atlas status --sqlite ./atlas.sqlite`

const statusShortDesc string = "Report pipeline progress"

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
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
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagSQLite})
			cmder.sqlitePath = v.GetString("storage.sqlite_path")

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)

	return cmd
}

func (c *statusCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	dbPath, err := dotdir.NewManager().SQLitePath(c.sqlitePath)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath, c.logger)
	if err != nil {
		return err
	}
	defer st.Close()

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

	status, err := pl.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Println(status.Summary())
	return nil
}
