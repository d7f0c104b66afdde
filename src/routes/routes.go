package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"marketsim/src/config"
	"marketsim/src/handlers"
	"marketsim/src/metrics"
	"marketsim/src/middleware"
)

func SetupRoutes(app *fiber.App, cfg config.ServerConfig, log zerolog.Logger, availability *middleware.ServiceAvailability, reportHandler *handlers.ReportHandler, exporter *metrics.Exporter) {
	app.Use(availability.Middleware())
	app.Use(middleware.RequestLogger(log, cfg.RequestLogging))

	api := app.Group("/api/v1")

	if !cfg.RateLimitDisabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		api.Use(rateLimiter.Middleware())
	}

	api.Get("/scenarios", reportHandler.ListScenarios)
	api.Get("/scenarios/:name", reportHandler.GetScenario)
	api.Get("/scenarios/:name/snapshots", reportHandler.GetSnapshots)
	api.Get("/scenarios/:name/trades", reportHandler.GetTrades)
	api.Get("/scenarios/:name/depth", reportHandler.GetDepth)

	app.Get("/health", reportHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(exporter.Handler()))
}
