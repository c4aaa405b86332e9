package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"air-quality-platform/internal/models"
	"air-quality-platform/pkg/database"
	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

// ObservationRepository provides data access for stations and observations
type ObservationRepository interface {
	// Station operations
	CreateStation(ctx context.Context, station *models.Station) error
	GetStation(ctx context.Context, name string) (*models.Station, error)
	ListStations(ctx context.Context) ([]*models.Station, error)

	// Observation operations
	CreateObservationsBatch(ctx context.Context, observations []*models.Observation) error
	GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.Observation, error)
	CountObservations(ctx context.Context) (int, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// ObservationFilter narrows GetObservations. A zero Limit returns every match.
type ObservationFilter struct {
	models.FilterSpec
	Limit  int
	Offset int
}

const observationColumns = `station, observed_at, pm25, pm10, so2, no2, co, o3, temp, pres, dewp, rain, wspm`

// observationRepository implements ObservationRepository on PostgreSQL or SQLite
type observationRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	clock   clockwork.Clock
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, clock clockwork.Clock) ObservationRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &observationRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
		clock:   clock,
	}
}

// CreateStation registers a station; existing stations are left untouched
func (r *observationRepository) CreateStation(ctx context.Context, station *models.Station) error {
	if station.CreatedAt.IsZero() {
		station.CreatedAt = r.clock.Now().UTC()
	}

	query := `
		INSERT INTO stations (name, created_at)
		VALUES (?, ?)
		ON CONFLICT (name) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, "insert_station", query, station.Name, station.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create station: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_STATION] Station created", logging.Fields{
		"station": station.Name,
	})

	return nil
}

// GetStation retrieves a station by name
func (r *observationRepository) GetStation(ctx context.Context, name string) (*models.Station, error) {
	query := `SELECT name, created_at FROM stations WHERE name = ?`

	var station models.Station
	err := r.db.GetContext(ctx, "get_station", &station, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "station", ID: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}

	station.CreatedAt = station.CreatedAt.UTC()
	return &station, nil
}

// ListStations retrieves every station ordered by name
func (r *observationRepository) ListStations(ctx context.Context) ([]*models.Station, error) {
	query := `SELECT name, created_at FROM stations ORDER BY name`

	stations := []*models.Station{}
	if err := r.db.SelectContext(ctx, "list_stations", &stations, query); err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	for _, s := range stations {
		s.CreatedAt = s.CreatedAt.UTC()
	}

	return stations, nil
}

// CreateObservationsBatch upserts observations in a single transaction.
// A second write for the same (station, observed_at) replaces the measures.
func (r *observationRepository) CreateObservationsBatch(ctx context.Context, observations []*models.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	start := r.clock.Now()
	defer func() {
		r.metrics.IngestionBatchSize.Observe(float64(len(observations)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(observations),
			"duration_ms": r.clock.Since(start).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO observations (`+observationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (station, observed_at) DO UPDATE SET
			pm25 = EXCLUDED.pm25,
			pm10 = EXCLUDED.pm10,
			so2 = EXCLUDED.so2,
			no2 = EXCLUDED.no2,
			co = EXCLUDED.co,
			o3 = EXCLUDED.o3,
			temp = EXCLUDED.temp,
			pres = EXCLUDED.pres,
			dewp = EXCLUDED.dewp,
			rain = EXCLUDED.rain,
			wspm = EXCLUDED.wspm
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, obs := range observations {
		_, err := stmt.ExecContext(ctx,
			obs.Station,
			obs.ObservedAt.UTC(),
			obs.PM25, obs.PM10, obs.SO2, obs.NO2, obs.CO, obs.O3,
			obs.Temp, obs.Pres, obs.Dewp, obs.Rain, obs.WSPM,
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation %s@%s: %w",
				obs.Station, obs.ObservedAt.Format(time.RFC3339), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(observations)))

	return nil
}

// GetObservations retrieves observations matching filter, ordered by time then station.
// Date and year bounds are inclusive and translated to half-open timestamp ranges.
func (r *observationRepository) GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.Observation, error) {
	if filter.Stations != nil && len(filter.Stations) == 0 {
		return []*models.Observation{}, nil
	}

	var where []string
	var args []interface{}

	if len(filter.Stations) > 0 {
		where = append(where, "station IN (?)")
		args = append(args, filter.Stations)
	}
	if filter.DateFrom != nil {
		where = append(where, "observed_at >= ?")
		args = append(args, startOfDay(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, "observed_at < ?")
		args = append(args, startOfDay(*filter.DateTo).AddDate(0, 0, 1))
	}
	if filter.YearFrom != nil {
		where = append(where, "observed_at >= ?")
		args = append(args, time.Date(*filter.YearFrom, 1, 1, 0, 0, 0, 0, time.UTC))
	}
	if filter.YearTo != nil {
		where = append(where, "observed_at < ?")
		args = append(args, time.Date(*filter.YearTo+1, 1, 1, 0, 0, 0, 0, time.UTC))
	}

	query := `SELECT ` + observationColumns + ` FROM observations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY observed_at, station"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	query, args, err := r.db.In(query, args...)
	if err != nil {
		return nil, err
	}

	observations := []*models.Observation{}
	if err := r.db.SelectContext(ctx, "get_observations", &observations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get observations: %w", err)
	}
	for _, obs := range observations {
		obs.ObservedAt = obs.ObservedAt.UTC()
	}

	return observations, nil
}

// CountObservations returns the number of stored observations
func (r *observationRepository) CountObservations(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, "count_observations", &count, `SELECT COUNT(*) FROM observations`); err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return count, nil
}

// HealthCheck checks database connectivity
func (r *observationRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsTransient returns false as missing rows are permanent
func (e *NotFoundError) IsTransient() bool {
	return false
}
