package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
	"air-quality-platform/internal/repository"
	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

// DefaultBatchSize is the number of observations written per transaction
const DefaultBatchSize = 1000

// IngestionService copies CSV datasets into the observation store
type IngestionService struct {
	repo    repository.ObservationRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	clock   clockwork.Clock
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles      int           `json:"total_files"`
	TotalRecords    int           `json:"total_records"`
	StoredRecords   int           `json:"stored_records"`
	SkippedRecords  int           `json:"skipped_records"`
	StationsCreated int           `json:"stations_created"`
	Batches         int           `json:"batches"`
	Duration        time.Duration `json:"duration"`
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.ObservationRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, clock clockwork.Clock) *IngestionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
		clock:   clock,
	}
}

// IngestPath loads a CSV file or directory and stores every row.
// Rows the loader skipped are counted but never stored.
func (s *IngestionService) IngestPath(ctx context.Context, path string, batchSize int) (*IngestionResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	startTime := s.clock.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"path":       path,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	table, err := dataset.LoadPath(path)
	if err != nil {
		s.metrics.RecordIngestionError("load_error")
		return nil, err
	}

	stats := table.Stats()
	result := &IngestionResult{
		TotalFiles:     stats.Files,
		TotalRecords:   stats.Rows + stats.Skipped,
		SkippedRecords: stats.Skipped,
	}
	s.metrics.IngestionSkippedTotal.Add(float64(stats.Skipped))

	s.logger.Info(ctx, "[INGEST_LOADED] Dataset parsed", logging.Fields{
		"files":        stats.Files,
		"rows":         stats.Rows,
		"skipped_rows": stats.Skipped,
		"stage":        "FILE_DISCOVERY",
	})

	for _, name := range table.Stations() {
		if err := s.repo.CreateStation(ctx, &models.Station{Name: name}); err != nil {
			s.metrics.RecordIngestionError("station_error")
			return nil, fmt.Errorf("failed to create station %s: %w", name, err)
		}
		result.StationsCreated++
	}

	batch := make([]*models.Observation, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.repo.CreateObservationsBatch(ctx, batch); err != nil {
			s.metrics.RecordIngestionError("batch_error")
			return fmt.Errorf("failed to insert batch %d: %w", result.Batches+1, err)
		}
		result.StoredRecords += len(batch)
		result.Batches++
		batch = batch[:0]
		return nil
	}

	for i := 0; i < table.Len(); i++ {
		batch = append(batch, table.Observation(i))
		if len(batch) < batchSize {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := flush(); err != nil {
			return nil, err
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	result.Duration = s.clock.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":      result.TotalFiles,
		"total_records":    result.TotalRecords,
		"stored_records":   result.StoredRecords,
		"skipped_records":  result.SkippedRecords,
		"stations":         result.StationsCreated,
		"batches":          result.Batches,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}
