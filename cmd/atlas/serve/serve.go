// Package servecmder provides the serve command for running the HTTP API and
// static viewer.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/api"
	"github.com/canvaslab/atlas/pkg/config"
	"github.com/canvaslab/atlas/pkg/dotdir"
	"github.com/canvaslab/atlas/pkg/logger"
	"github.com/canvaslab/atlas/pkg/pipeline"
	"github.com/canvaslab/atlas/pkg/projector"
	"github.com/canvaslab/atlas/pkg/store"
)

type ServeCommander struct {
	apiListen  string
	sqlitePath string
	viewerDir  string
	thumbsDir  string
	logFile    string
	debug      bool
	logger     *zap.Logger
}

const serveLongDesc string = `Run the atlas HTTP server.

Serves the projected points and pipeline status as JSON, and optionally a
directory of static viewer assets at the root:

  GET /ping              health check
  GET /api/points        every item with joint coordinates
  GET /api/status        per-stage pipeline progress
  GET /api/items/:ref    one item by id or filename

Examples:
  atlas serve
  atlas serve --api-listen :9000 --viewer-dir ./viewer --thumbs-dir ./thumbs`

const serveShortDesc string = "Run the atlas HTTP server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
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
				config.FlagAPIListen,
				config.FlagViewerDir,
				config.FlagThumbsDir,
			})

			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.apiListen = v.GetString("api.listen")
			cmder.viewerDir = v.GetString("api.viewer_dir")
			cmder.thumbsDir = v.GetString("thumbs.dir")

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagViewerDir, &cmder.viewerDir)
	config.AddStringFlag(cmd, config.Flags, config.FlagThumbsDir, &cmder.thumbsDir)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "also write logs to this file")

	return cmd
}

func (c *ServeCommander) run() error {
	writers := []*os.File{os.Stdout}
	if c.logFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.logFile), 0o755); err != nil {
			return fmt.Errorf("creating log dir: %w", err)
		}
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		writers = append(writers, f)
	}

	if len(writers) == 2 {
		c.logger = logger.NewLoggerWithWriters(c.debug, writers[0], writers[1])
	} else {
		c.logger = logger.NewLogger(c.debug)
	}
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

	server := api.NewServer(api.Config{
		ListenAddr: c.apiListen,
		ViewerDir:  c.viewerDir,
		ThumbsDir:  c.thumbsDir,
	}, st, pl, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}
