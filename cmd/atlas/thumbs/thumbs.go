// Package thumbscmder provides the thumbs command for generating and checking
// viewer thumbnails.
package thumbscmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/cliui"
	"github.com/canvaslab/atlas/pkg/config"
	"github.com/canvaslab/atlas/pkg/discovery"
	"github.com/canvaslab/atlas/pkg/dotdir"
	"github.com/canvaslab/atlas/pkg/logger"
	"github.com/canvaslab/atlas/pkg/store"
	"github.com/canvaslab/atlas/pkg/thumbs"
)

type thumbsCommander struct {
	sqlitePath  string
	datasetRoot string
	dir         string
	maxWidth    uint
	workers     uint
	debug       bool
	logger      *zap.Logger
}

const thumbsLongDesc string = `Generate viewer thumbnails for every ingested image.

Each database row is resolved back to its source image and resized to a
width-capped JPEG in the thumbnail directory. Existing thumbnails are
overwritten. Unreadable sources are reported and skipped.

Subcommands check an existing thumbnail directory:
  atlas thumbs verify     Decode every thumbnail and report corrupt files
  atlas thumbs missing    List ingested images without a thumbnail

Examples:
  atlas thumbs --thumbs-dir ./thumbs
  atlas thumbs --thumbs-max-width 512 --thumbs-workers 8`

const thumbsShortDesc string = "Generate viewer thumbnails"

func NewThumbsCmd() *cobra.Command {
	cmder := &thumbsCommander{}

	cmd := &cobra.Command{
		Use:   "thumbs",
		Short: thumbsShortDesc,
		Long:  thumbsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmder.bind(cmd); err != nil {
				return err
			}
			return cmder.runGenerate(cmd.Context())
		},
	}

	cmder.addFlags(cmd)
	cmd.AddCommand(newVerifyCmd(cmder))
	cmd.AddCommand(newMissingCmd(cmder))

	return cmd
}

func (c *thumbsCommander) addFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &c.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagDatasetRoot, &c.datasetRoot)
	config.AddStringFlag(cmd, config.Flags, config.FlagThumbsDir, &c.dir)
	config.AddUintFlag(cmd, config.Flags, config.FlagThumbsMaxWidth, &c.maxWidth)
	config.AddUintFlag(cmd, config.Flags, config.FlagThumbsWorkers, &c.workers)
}

func (c *thumbsCommander) bind(cmd *cobra.Command) error {
	var err error
	c.debug, err = cmd.Flags().GetBool("debug")
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
		config.FlagThumbsDir,
		config.FlagThumbsMaxWidth,
		config.FlagThumbsWorkers,
	})

	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.datasetRoot = v.GetString("discovery.dataset_root")
	c.dir = v.GetString("thumbs.dir")
	c.maxWidth = v.GetUint("thumbs.max_width")
	c.workers = v.GetUint("thumbs.workers")

	c.logger = logger.NewLogger(c.debug)

	if c.dir == "" {
		return fmt.Errorf("thumbnail directory is required (flag --thumbs-dir or config thumbs.dir)")
	}

	return nil
}

func (c *thumbsCommander) runGenerate(ctx context.Context) error {
	defer c.logger.Sync()

	if c.datasetRoot == "" {
		return fmt.Errorf("dataset root is required (flag --dataset-root or config discovery.dataset_root)")
	}

	filenames, artists, err := c.ingested(ctx)
	if err != nil {
		return err
	}

	pool, err := thumbs.NewPool(&thumbs.Config{
		MaxWidth:   c.maxWidth,
		NumWorkers: c.workers,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	src := &discovery.Source{Root: c.datasetRoot}
	queued := 0
	for i, name := range filenames {
		path, err := src.Resolve(artists[i], name)
		if err != nil {
			c.logger.Warn("source image missing, skipping",
				zap.String("filename", name),
				zap.Error(err),
			)
			continue
		}

		if pool.Enqueue(thumbs.Job{Source: path, Dest: thumbs.DestPath(c.dir, name)}) {
			queued++
		}
	}

	var made int
	var failed []thumbs.Failure
	_ = cliui.Step(os.Stdout, fmt.Sprintf("generating %d thumbnails", queued), func() error {
		pool.Close()
		made, failed = pool.Results()
		if len(failed) > 0 {
			return fmt.Errorf("%d failed", len(failed))
		}
		return nil
	})

	fmt.Printf("Thumbnails complete: %d written, %d failed of %d queued\n", made, len(failed), queued)
	for _, f := range failed {
		fmt.Printf("  failed: %s: %s\n", f.Source, f.Reason)
	}

	return nil
}

// ingested returns the filename and artist per database row, id ordered.
func (c *thumbsCommander) ingested(ctx context.Context) ([]string, []string, error) {
	dbPath, err := dotdir.NewManager().SQLitePath(c.sqlitePath)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(dbPath, c.logger)
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	records, err := st.All(ctx)
	if err != nil {
		return nil, nil, err
	}

	filenames := make([]string, 0, len(records))
	artists := make([]string, 0, len(records))
	for _, rec := range records {
		filenames = append(filenames, rec.Filename)
		artists = append(artists, rec.Artist)
	}

	return filenames, artists, nil
}

func newVerifyCmd(parent *thumbsCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Decode every thumbnail and report corrupt files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := parent.bind(cmd); err != nil {
				return err
			}
			defer parent.logger.Sync()

			ok, bad, err := thumbs.Verify(parent.dir)
			if err != nil {
				return err
			}

			fmt.Printf("Thumbnails readable: %d, corrupt: %d\n", ok, len(bad))
			for _, path := range bad {
				fmt.Printf("  corrupt: %s\n", path)
			}
			return nil
		},
	}

	parent.addFlags(cmd)
	return cmd
}

func newMissingCmd(parent *thumbsCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missing",
		Short: "List ingested images without a thumbnail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := parent.bind(cmd); err != nil {
				return err
			}
			defer parent.logger.Sync()

			filenames, _, err := parent.ingested(cmd.Context())
			if err != nil {
				return err
			}

			missing := thumbs.Missing(filenames, parent.dir)
			fmt.Printf("Missing thumbnails: %d of %d\n", len(missing), len(filenames))
			for _, name := range missing {
				fmt.Printf("  missing: %s\n", name)
			}
			return nil
		},
	}

	parent.addFlags(cmd)
	return cmd
}
