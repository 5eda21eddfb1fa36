package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/store"
)

// parseRef treats an all-digit param as an id and anything else as a filename.
func parseRef(param string) store.Ref {
	if id, err := strconv.ParseInt(param, 10, 64); err == nil {
		return store.ByID(id)
	}
	return store.ByFilename(param)
}

// ErrorResponse is the JSON body returned for handler failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PointsResponse carries every plottable point.
type PointsResponse struct {
	Count  int           `json:"count"`
	Points []store.Point `json:"points"`
}

// ItemResponse is the public view of one record. The raw embedding stays out
// of the payload; only its presence is reported.
type ItemResponse struct {
	ID           int64             `json:"id"`
	Artist       string            `json:"artist,omitempty"`
	Filename     string            `json:"filename"`
	HasEmbedding bool              `json:"has_embedding"`
	Independent  *store.Projection `json:"independent,omitempty"`
	Joint        *store.Projection `json:"joint,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handlePoints returns every record with complete joint coordinates, ready
// for the scatter-plot viewer.
func (s *Server) handlePoints(c *fiber.Ctx) error {
	points, err := s.store.Points(c.Context())
	if err != nil {
		s.logger.Error("listing points failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list points"})
	}

	if points == nil {
		points = []store.Point{}
	}

	return c.JSON(PointsResponse{Count: len(points), Points: points})
}

// handleStatus returns the per-stage pipeline progress snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	status, err := s.pipeline.Status(c.Context())
	if err != nil {
		s.logger.Error("computing status failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to compute status"})
	}

	return c.JSON(status)
}

// handleGetItem returns one record by numeric id or filename.
func (s *Server) handleGetItem(c *fiber.Ctx) error {
	param := c.Params("ref")
	if param == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "ref parameter required"})
	}

	rec, err := s.store.Get(c.Context(), parseRef(param))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "item not found"})
	}
	if err != nil {
		s.logger.Error("reading item failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read item"})
	}

	return c.JSON(ItemResponse{
		ID:           rec.ID,
		Artist:       rec.Artist,
		Filename:     rec.Filename,
		HasEmbedding: rec.HasEmbedding,
		Independent:  rec.Independent,
		Joint:        rec.Joint,
	})
}
