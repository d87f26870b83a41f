package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"bcs-dashboard/internal/config"
	"bcs-dashboard/internal/dates"
	"bcs-dashboard/internal/middleware"
	"bcs-dashboard/internal/observability"
	"bcs-dashboard/internal/server"
	"bcs-dashboard/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	analytics, err := services.NewAnalytics(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize analytics", "error", err)
		os.Exit(1)
	}

	// Warm the cache for the default view so the first request is a hit.
	start := time.Now()
	defaultRange, err := dates.ParseRange(cfg.Generator.DefaultRange)
	if err != nil {
		logger.Error("invalid default range", "error", err)
		os.Exit(1)
	}
	analytics.Snapshot(cfg.Generator.DefaultTenant, defaultRange, cfg.Generator.DefaultSeed)
	logger.Info("default snapshot warmed", "duration", time.Since(start))

	srv := server.NewServer(analytics, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service")
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
