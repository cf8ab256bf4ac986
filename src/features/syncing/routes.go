package syncing

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the syncing feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	api := app.Group("/api")
	api.Get("/status", handler.GetStatus)
	api.Get("/cycles", handler.ListCycles)
	api.Get("/cycles/last", handler.GetLastCycle)
	api.Get("/cycles/:id", handler.GetCycle)
	api.Post("/sync", handler.TriggerSync)
}
