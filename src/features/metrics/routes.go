package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers the Prometheus scrape endpoint.
func RegisterRoutes(app *fiber.App, collector *Collector) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(collector.Gatherer(), promhttp.HandlerOpts{})))
}
