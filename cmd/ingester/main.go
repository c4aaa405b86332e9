package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"

	"air-quality-platform/internal/config"
	"air-quality-platform/internal/repository"
	"air-quality-platform/internal/services"
	"air-quality-platform/migrations"
	"air-quality-platform/pkg/database"
	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dataPath := flag.String("data", "", "CSV file or directory of CSV files (default: data.path from config)")
	batchSize := flag.Int("batch-size", services.DefaultBatchSize, "Number of records to write in each batch")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before ingesting")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dataPath == "" {
		*dataPath = cfg.Data.Path
	}

	// Initialize logger
	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewStructuredLogger("air-quality-ingester", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting air quality data ingestion", logging.Fields{
		"version":    "1.0.0",
		"data_path":  *dataPath,
		"batch_size": *batchSize,
		"driver":     cfg.Database.Driver,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("air_quality_ingester")

	// Initialize database
	db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	if *migrate {
		applied, err := migrations.Apply(ctx, db.DB(), migrations.Up)
		if err != nil {
			logger.Fatal(ctx, "[INGESTER_ERROR] Migration failed", logging.Fields{}, err)
		}
		logger.Info(ctx, "[INGESTER_MIGRATE] Schema up to date", logging.Fields{
			"migrations": applied,
		})
	}

	// Initialize repository and service
	clock := clockwork.NewRealClock()
	repo := repository.NewObservationRepository(db, logger, metricsCollector, clock)
	ingestionService := services.NewIngestionService(repo, logger, metricsCollector, clock)

	// Ingest data
	result, err := ingestionService.IngestPath(ctx, *dataPath, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"data_path": *dataPath,
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:      %d\n", result.TotalFiles)
	fmt.Printf("Total Records:    %d\n", result.TotalRecords)
	fmt.Printf("Stored Records:   %d\n", result.StoredRecords)
	fmt.Printf("Skipped Records:  %d\n", result.SkippedRecords)
	fmt.Printf("Stations:         %d\n", result.StationsCreated)
	fmt.Printf("Batches:          %d\n", result.Batches)
	fmt.Printf("Duration:         %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Records/Second:   %.2f\n", float64(result.StoredRecords)/secs)
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"total_records":    result.TotalRecords,
		"stored_records":   result.StoredRecords,
		"skipped_records":  result.SkippedRecords,
		"duration_seconds": result.Duration.Seconds(),
	})
}
