package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sgxfeed/docs"
	"sgxfeed/internal/app"
	"sgxfeed/internal/config"
	handlers "sgxfeed/internal/http/handler"
	"sgxfeed/internal/http/middleware"
	"sgxfeed/internal/logging"
	tracing "sgxfeed/internal/otel"
	"sgxfeed/internal/scheduler"
)

// @title SGX Feed API
// @version 1.0
// @description Ingests the SGX derivatives daily files and serves the version catalog.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()

	logger := logging.New(os.Stdout, loc, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger)
	if err != nil {
		fatal(logger, "tracing_init_failed", err)
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "startup_failed", err)
	}
	defer a.Close()

	prom, err := middleware.NewPrometheusMiddleware(a.Registry)
	if err != nil {
		fatal(logger, "metrics_init_failed", err)
	}

	server := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	traceMW := middleware.Noop()
	if !tracing.Disabled() {
		traceMW = otelfiber.Middleware()
	}
	server.Use(traceMW)
	server.Use(middleware.RequestID())
	server.Use(middleware.Logger(logger))
	server.Use(prom.Handler())

	server.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(server, a.DB, a.Ingest, a.Catalog)

	// Swagger UI with dynamic host and scheme
	server.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	var sched *scheduler.Scheduler
	if cfg.Schedule.Enabled {
		sched, err = scheduler.New(cfg.Schedule.Cron, loc, a.Ingest, logger)
		if err != nil {
			fatal(logger, "scheduler_init_failed", err)
		}
		sched.Start()
	}

	addr := ":" + cfg.Port
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- server.Listen(addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		if err != nil {
			logger.Error("server_failed", "error", err)
		}
	}

	logger.Info("shutdown_started")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			logger.Error("scheduler_stop_failed", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing_shutdown_failed", "error", err)
	}
	logger.Info("shutdown_complete")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
