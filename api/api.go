package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/pipeline"
	"github.com/canvaslab/atlas/pkg/store"
)

// Server is the API server for querying the atlas system
type Server struct {
	config   Config
	store    *store.Store
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The store is injected to allow sharing with other components.
func NewServer(config Config, st *store.Store, pl *pipeline.Pipeline, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		store:    st,
		pipeline: pl,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/api/points", s.handlePoints)
	app.Get("/api/status", s.handleStatus)
	app.Get("/api/items/:ref", s.handleGetItem)

	if config.ThumbsDir != "" {
		app.Static("/thumbs", config.ThumbsDir)
	}
	if config.ViewerDir != "" {
		app.Static("/", config.ViewerDir)
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
