package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"marketsim/src/config"
	"marketsim/src/handlers"
	"marketsim/src/logger"
	"marketsim/src/metrics"
	"marketsim/src/middleware"
	"marketsim/src/routes"
	"marketsim/src/sim"
)

const usage = "usage: marketsim [run|serve]"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.InitLogger(cfg.Logger)
	defer logger.CloseLogger()
	log := logger.GetLogger()

	mode := "run"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	switch mode {
	case "run":
		err = runScenarios(ctx, cfg, log)
	case "serve":
		err = serve(ctx, cfg, log)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Str("mode", mode).Msg("Exiting with error")
		logger.CloseLogger()
		os.Exit(1)
	}
}

func runScenarios(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Int("scenarios", len(cfg.Sim.Scenarios)).
		Float64("horizon", cfg.Sim.Horizon).
		Int64("seed", cfg.Sim.Seed).
		Msg("Running simulation")

	reports, err := sim.RunAll(ctx, cfg.Sim.Scenarios, sim.OptionsFromConfig(cfg, log))
	if err != nil {
		return err
	}

	for _, r := range reports {
		log.Info().
			Str("scenario", r.Scenario.Name).
			Int("trades", r.Metrics.TradeCount).
			Int64("volume", r.Metrics.Volume).
			Float64("vwap", r.Metrics.VWAP).
			Float64("avg_spread", r.Metrics.AvgSpread).
			Float64("volatility", r.Metrics.Volatility).
			Msg("Scenario summary")
	}
	return nil
}

// serve starts the report viewer right away and publishes the reports once
// every scenario has finished. Until then the API answers 503.
func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reportHandler := handlers.NewReportHandler(cfg.Server.DefaultLimit, cfg.Server.MaxLimit)
	availability := middleware.NewServiceAvailability(cfg.Server.MaxConcurrentRequests)
	exporter := metrics.NewExporter()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	routes.SetupRoutes(app, cfg.Server, log, availability, reportHandler, exporter)

	port := ":" + cfg.Server.Port
	serverError := make(chan error, 1)

	go func() {
		if err := app.Listen(port); err != nil {
			serverError <- err
		}
	}()

	log.Info().
		Str("port", port).
		Strs("endpoints", []string{
			"GET /api/v1/scenarios",
			"GET /api/v1/scenarios/:name",
			"GET /api/v1/scenarios/:name/snapshots",
			"GET /api/v1/scenarios/:name/trades",
			"GET /api/v1/scenarios/:name/depth",
			"GET /health",
			"GET /metrics",
		}).
		Msg("Report viewer started")

	simDone := make(chan error, 1)
	go func() {
		reports, err := sim.RunAll(ctx, cfg.Sim.Scenarios, sim.OptionsFromConfig(cfg, log))
		if err != nil {
			simDone <- err
			return
		}
		reportHandler.Publish(reports)
		exporter.Observe(reports)
		availability.SetReady(true)
		simDone <- nil
	}()

	var runErr error
	for waiting := true; waiting; {
		select {
		case err := <-serverError:
			log.Error().
				Err(err).
				Str("port", port).
				Str("hint", "Port may be already in use. Try: PORT=3000 marketsim serve").
				Msg("Server failed to start")
			return err
		case err := <-simDone:
			simDone = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				runErr = err
				waiting = false
			}
		case <-ctx.Done():
			log.Info().Msg("Received shutdown signal, shutting down...")
			waiting = false
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		// edge case: timeout during shutdown is acceptable
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().
				Dur("timeout", cfg.Server.ShutdownTimeout).
				Msg("Timeout exceeded, shutting down...")
		} else {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	} else {
		log.Info().Msg("Shutdown complete")
	}

	return runErr
}
