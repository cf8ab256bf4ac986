package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// GetConfig returns the redacted configuration in the requested format.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	format := c.Query("fmt", "json")
	slog.Debug("GetConfig handler called", "format", format)

	switch format {
	case "yaml":
		c.Set("Content-Type", "text/yaml")
		return c.SendString(h.configManager.GetYAML())
	case "json":
		c.Set("Content-Type", "application/json")
		return c.SendString(h.configManager.GetJSON())
	default:
		return c.Status(fiber.StatusBadRequest).SendString("Invalid format. Use 'json' or 'yaml'")
	}
}

// ReloadConfig re-reads the configuration file.
func (h *Handler) ReloadConfig(c *fiber.Ctx) error {
	if err := h.configManager.Reload(); err != nil {
		slog.Warn("Configuration reload rejected", "error", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "reloaded"})
}

// DownloadDatabase serves the cycle history database file for download.
func (h *Handler) DownloadDatabase(c *fiber.Ctx) error {
	dbPath := h.configManager.Get().Database.Path
	if dbPath == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Database path not configured")
	}
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filepath.Base(dbPath)))
	c.Set("Content-Type", "application/octet-stream")
	return c.SendFile(dbPath)
}
