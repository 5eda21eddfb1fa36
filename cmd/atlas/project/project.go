// Package projectcmder provides the project command for reducing stored
// embeddings to 2D coordinates.
package projectcmder

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

type projectCommander struct {
	sqlitePath string
	rowWidth   uint
	policy     string
	recompute  bool
	debug      bool
	logger     *zap.Logger
}

const projectLongDesc string = `Reduce stored embeddings to 2D scatter-plot coordinates.

Every row that has an embedding but no coordinates for the chosen policy is
projected and patched in place.

Policies:
  independent   Each item is reduced on its own; its position never shifts
                when other items are added.
  joint         All pending items are reduced in one shared fit, so positions
                are comparable across the whole set. This is what the viewer
                plots.

--recompute clears the chosen policy's coordinates first so the whole set is
projected fresh; the other policy's coordinates are untouched.

Examples:
  atlas project
  atlas project --policy independent
  atlas project --policy joint --recompute --row-width 64`

const projectShortDesc string = "Reduce embeddings to 2D coordinates"

func NewProjectCmd() *cobra.Command {
	cmder := &projectCommander{}

	cmd := &cobra.Command{
		Use:   "project",
		Short: projectShortDesc,
		Long:  projectLongDesc,
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
				config.FlagRowWidth,
			})

			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.rowWidth = v.GetUint("projector.row_width")

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddUintFlag(cmd, config.Flags, config.FlagRowWidth, &cmder.rowWidth)
	cmd.Flags().StringVarP(&cmder.policy, "policy", "p", string(store.PolicyJoint), "projection policy (independent or joint)")
	cmd.Flags().BoolVar(&cmder.recompute, "recompute", false, "clear this policy's coordinates and project the whole set fresh")

	return cmd
}

func (c *projectCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	policy := store.Policy(c.policy)
	if !policy.Valid() {
		return fmt.Errorf("unknown policy %q (valid: %s, %s)",
			c.policy, store.PolicyIndependent, store.PolicyJoint)
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

	proj, err := projector.New(projector.Config{RowWidth: int(c.rowWidth)})
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

	if c.recompute {
		if err := st.ClearProjections(ctx, policy); err != nil {
			return err
		}
		c.logger.Info("cleared existing coordinates", zap.String("policy", string(policy)))
	}

	result, runErr := pl.ProjectPending(ctx, policy)
	if result != nil {
		fmt.Println(result.Summary())
		for _, f := range result.Errored {
			fmt.Printf("  errored: %s: %s\n", f.Identifier, f.Reason)
		}
	}

	return runErr
}
