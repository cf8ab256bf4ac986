package syncing

import (
	"errors"
	"log/slog"

	"github.com/contre95/plexify/src/music"
	"github.com/gofiber/fiber/v2"
)

const maxHistoryLimit = 500

// Handler is the handler for the syncing feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the syncing feature.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// GetStatus returns whether a cycle runs, when the next one starts and the last report.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// ListCycles returns the stored cycle reports, newest first.
func (h *Handler) ListCycles(c *fiber.Ctx) error {
	history := h.service.History()
	if history == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cycle history is disabled"})
	}
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > maxHistoryLimit {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be between 1 and 500"})
	}
	reports, err := history.List(c.UserContext(), limit)
	if err != nil {
		slog.Error("Failed to list cycles", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(reports)
}

// GetLastCycle returns the most recent cycle report.
func (h *Handler) GetLastCycle(c *fiber.Ctx) error {
	if report, ok := h.service.LastReport(); ok {
		return c.JSON(report)
	}
	if history := h.service.History(); history != nil {
		reports, err := history.List(c.UserContext(), 1)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if len(reports) > 0 {
			return c.JSON(reports[0])
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no cycle has run yet"})
}

// GetCycle returns one stored cycle report.
func (h *Handler) GetCycle(c *fiber.Ctx) error {
	history := h.service.History()
	if history == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "cycle history is disabled"})
	}
	report, err := history.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, music.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// TriggerSync asks the loop to start a cycle now.
func (h *Handler) TriggerSync(c *fiber.Ctx) error {
	queued := h.service.Trigger()
	slog.Info("Sync requested over HTTP", "queued", queued)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": queued, "running": h.service.Status().Running})
}
