package hosting

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/features/metrics"
	"github.com/contre95/plexify/src/features/playlists"
	"github.com/contre95/plexify/src/features/syncing"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server. collector may be nil.
func NewServer(cfg *config.Manager, syncService *syncing.Service, playlistsService *playlists.Service, collector *metrics.Collector) *Server {
	json := jsoniter.ConfigCompatibleWithStandardLibrary
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		AppName:               "Plexify",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	config.RegisterRoutes(app, cfg)
	playlists.RegisterRoutes(app, playlistsService)
	syncing.RegisterRoutes(app, syncService)
	if collector != nil {
		metrics.RegisterRoutes(app, collector)
	}

	return &Server{app: app, port: cfg.Get().Server.Port}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("Internal Server Error", "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
