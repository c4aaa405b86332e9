package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"air-quality-platform/internal/analytics"
	"air-quality-platform/internal/config"
	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/handlers"
	"air-quality-platform/internal/repository"
	"air-quality-platform/internal/services"
	"air-quality-platform/pkg/database"
	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewStructuredLogger("air-quality-api", version, logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting air quality API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"data_source": cfg.Data.Source,
		"data_path":   cfg.Data.Path,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("air_quality")
	clock := clockwork.NewRealClock()

	// Select the dataset source
	var source dataset.Loader
	switch cfg.Data.Source {
	case "database":
		db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{
				"driver": cfg.Database.Driver,
			}, err)
		}
		defer db.Close()

		repo := repository.NewObservationRepository(db, logger, metricsCollector, clock)
		source = services.NewDatabaseSource(repo)
	default:
		source, err = dataset.NewFileSource(cfg.Data.Path)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Invalid data path", logging.Fields{
				"data_path": cfg.Data.Path,
			}, err)
		}
	}

	// Initialize services
	dashboard := services.NewDashboardService(
		source,
		dataset.NewCache(clock),
		analytics.CorrelationOptions{SampleSize: cfg.Data.SampleSize, Seed: cfg.Data.SampleSeed},
		logger,
		metricsCollector,
	)

	// Warm the cache; a missing file is reported per request rather than fatal
	if _, err := dashboard.Table(ctx); err != nil {
		logger.Warn(ctx, "[STARTUP_WARN] Dataset not loaded", logging.Fields{
			"source": source.Key(),
			"error":  err.Error(),
		})
	}

	// Setup router
	handler := handlers.NewDashboardHandler(dashboard, logger, metricsCollector, clock)
	router := handlers.NewRouter(handler, promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
