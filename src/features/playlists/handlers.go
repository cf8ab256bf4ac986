package playlists

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for playlists
type Handler struct {
	service *Service
}

// NewHandler creates a new playlists handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

type playlistView struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Mode Mode   `json:"mode"`
}

// ListPlaylists returns the local playlists with their reconciliation mode.
func (h *Handler) ListPlaylists(c *fiber.Ctx) error {
	slog.Debug("ListPlaylists handler called")

	pls, err := h.service.Library().Playlists(c.UserContext())
	if err != nil {
		slog.Error("Failed to list playlists", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	out := make([]playlistView, 0, len(pls))
	for _, pl := range pls {
		out = append(out, playlistView{Key: pl.Key, Name: pl.Name, Mode: h.service.ModeOf(pl.Name)})
	}
	return c.JSON(out)
}
