package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"air-quality-platform/internal/config"
	"air-quality-platform/migrations"
	"air-quality-platform/pkg/database"
	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

func main() {
	directionFlag := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	direction, err := migrations.ParseDirection(*directionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Connect to database
	logger := logging.NewStructuredLogger("air-quality-migrate", "1.0.0", logging.WarnLevel)
	db, err := database.Open(cfg.Database.Connection(), logger, metrics.NewCollector("air_quality_migrate"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", db.Driver())

	applied, err := migrations.Apply(context.Background(), db.DB(), direction)
	for _, name := range applied {
		fmt.Printf("Applied migration: %s\n", name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		db.Close()
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
