package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"air-quality-platform/internal/analytics"
	"air-quality-platform/internal/dataset"
	"air-quality-platform/internal/models"
	"air-quality-platform/internal/repository"
	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

// DatabaseSourceKey is the cache key of the observation store
const DatabaseSourceKey = "db:observations"

// DatabaseSource loads the whole observation store as a table.
type DatabaseSource struct {
	repo repository.ObservationRepository
}

// NewDatabaseSource creates a table loader backed by repo
func NewDatabaseSource(repo repository.ObservationRepository) *DatabaseSource {
	return &DatabaseSource{repo: repo}
}

// Key returns the cache identity of the store
func (s *DatabaseSource) Key() string { return DatabaseSourceKey }

// Load reads every stored observation
func (s *DatabaseSource) Load(ctx context.Context) (*dataset.Table, error) {
	observations, err := s.repo.GetObservations(ctx, repository.ObservationFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}
	return dataset.FromObservations(DatabaseSourceKey, observations), nil
}

// DashboardService answers dashboard queries against a cached table
type DashboardService struct {
	source      dataset.Loader
	cache       *dataset.Cache
	correlation analytics.CorrelationOptions
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// DatasetStatus reports what the service serves
type DatasetStatus struct {
	Source  string              `json:"source"`
	Loaded  bool                `json:"loaded"`
	Entries []dataset.EntryInfo `json:"entries"`
}

// NewDashboardService creates a dashboard service reading from source through cache.
// A zero SampleSize in opts falls back to the default sample.
func NewDashboardService(source dataset.Loader, cache *dataset.Cache, opts analytics.CorrelationOptions, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	if opts.SampleSize <= 0 {
		opts = analytics.DefaultCorrelationOptions()
	}
	return &DashboardService{
		source:      source,
		cache:       cache,
		correlation: opts,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// Table returns the loaded dataset, loading it on first use
func (s *DashboardService) Table(ctx context.Context) (*dataset.Table, error) {
	ctx = logging.WithDataset(ctx, s.source.Key())

	table, hit, err := s.cache.Get(ctx, &instrumentedLoader{Loader: s.source, service: s})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCacheLookup(hit)
	return table, nil
}

// Status reports the configured source and the populated cache entries
func (s *DashboardService) Status() DatasetStatus {
	entries := s.cache.Entries()
	status := DatasetStatus{Source: s.source.Key(), Entries: entries}
	for _, e := range entries {
		if e.Key == status.Source {
			status.Loaded = true
		}
	}
	return status
}

// Stations lists the distinct stations of the dataset
func (s *DashboardService) Stations(ctx context.Context) ([]string, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return table.Stations(), nil
}

// Summary computes the headline metrics of the filtered view
func (s *DashboardService) Summary(ctx context.Context, filter models.FilterSpec, measure string) (models.Summary, error) {
	view, done, err := s.begin(ctx, "summary", filter)
	if err != nil {
		return models.Summary{}, err
	}
	defer done()

	return analytics.Summarize(view, measure)
}

// Aggregate averages measure per group key over the filtered view
func (s *DashboardService) Aggregate(ctx context.Context, filter models.FilterSpec, groupBy models.GroupBy, measure string) (models.AggregateSeries, error) {
	view, done, err := s.begin(ctx, "aggregate", filter)
	if err != nil {
		return models.AggregateSeries{}, err
	}
	defer done()

	return analytics.Aggregate(view, groupBy, measure)
}

// Ranking orders stations by their mean of measure
func (s *DashboardService) Ranking(ctx context.Context, filter models.FilterSpec, measure string, order models.SortOrder) (models.AggregateSeries, error) {
	view, done, err := s.begin(ctx, "ranking", filter)
	if err != nil {
		return models.AggregateSeries{}, err
	}
	defer done()

	series, err := analytics.Aggregate(view, models.GroupByStation, measure)
	if err != nil {
		return models.AggregateSeries{}, err
	}
	return analytics.Rank(series, order), nil
}

// Distribution counts observations per health category
func (s *DashboardService) Distribution(ctx context.Context, filter models.FilterSpec, measure string) ([]models.CategoryCount, error) {
	view, done, err := s.begin(ctx, "distribution", filter)
	if err != nil {
		return nil, err
	}
	defer done()

	return analytics.Distribution(view, measure)
}

// Correlation relates covariate to target over the filtered view
func (s *DashboardService) Correlation(ctx context.Context, filter models.FilterSpec, covariate, target string) (models.Correlation, error) {
	view, done, err := s.begin(ctx, "correlation", filter)
	if err != nil {
		return models.Correlation{}, err
	}
	defer done()

	return analytics.Correlate(view, covariate, target, s.correlation)
}

// begin loads the table, applies filter and starts the operation timer.
func (s *DashboardService) begin(ctx context.Context, operation string, filter models.FilterSpec) (dataset.View, func(), error) {
	table, err := s.Table(ctx)
	if err != nil {
		return dataset.View{}, nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.AnalyticsDuration.WithLabelValues(operation))
	view := analytics.Apply(table.View(), filter)
	s.metrics.FilteredRows.Observe(float64(view.Len()))

	ctx = logging.WithDataset(ctx, s.source.Key())
	return view, func() {
		duration := timer.ObserveDuration()
		s.logger.Debug(ctx, "[DASHBOARD_QUERY] Query computed", logging.Fields{
			"operation":   operation,
			"rows":        view.Len(),
			"filtered":    filter.Active(),
			"duration_ms": duration.Milliseconds(),
		})
	}, nil
}

// instrumentedLoader records load outcomes; the cache only calls it on a miss.
type instrumentedLoader struct {
	dataset.Loader
	service *DashboardService
}

func (l *instrumentedLoader) Load(ctx context.Context) (*dataset.Table, error) {
	s := l.service
	key := l.Key()
	timer := s.metrics.NewTimer(s.metrics.DatasetLoadDuration)

	s.logger.Info(ctx, "[DATASET_LOAD_START] Loading dataset", logging.Fields{
		"source": key,
	})

	table, err := l.Loader.Load(ctx)
	duration := timer.ObserveDuration()
	if err != nil {
		outcome := loadOutcome(err)
		s.metrics.RecordDatasetLoad(key, outcome, 0)
		s.logger.Error(ctx, "[DATASET_LOAD_ERROR] Dataset load failed", logging.Fields{
			"source":  key,
			"outcome": outcome,
		}, err)
		return nil, err
	}

	stats := table.Stats()
	s.metrics.RecordDatasetLoad(key, "success", table.Len())
	s.logger.Info(ctx, "[DATASET_LOAD_COMPLETE] Dataset loaded", logging.Fields{
		"source":       key,
		"rows":         table.Len(),
		"files":        stats.Files,
		"skipped_rows": stats.Skipped,
		"measures":     len(table.Measures()),
		"duration_ms":  duration.Milliseconds(),
	})
	return table, nil
}

func loadOutcome(err error) string {
	var missing *models.MissingFileError
	var parse *models.ParseError
	switch {
	case errors.As(err, &missing):
		return "missing_file"
	case errors.As(err, &parse):
		return "parse_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

// Age reports how long ago the configured source was loaded; zero when not loaded.
func (s *DashboardService) Age(now time.Time) time.Duration {
	for _, e := range s.cache.Entries() {
		if e.Key == s.source.Key() {
			return now.Sub(e.LoadedAt)
		}
	}
	return 0
}
