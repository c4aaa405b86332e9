package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// MemoryPath opens a private in-memory SQLite database
const MemoryPath = ":memory:"

const poolMonitorInterval = 10 * time.Second

// Config holds database connection configuration
type Config struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN builds the driver-specific connection string.
func (c *Config) DSN() (string, error) {
	switch c.Driver {
	case DriverPostgres, "":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
		), nil
	case DriverSQLite:
		params := "_foreign_keys=on&_busy_timeout=5000"
		if c.Path == MemoryPath {
			return MemoryPath + "?" + params, nil
		}
		if dir := filepath.Dir(c.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		if strings.HasPrefix(c.Path, "file:") {
			sep := "?"
			if strings.Contains(c.Path, "?") {
				sep = "&"
			}
			return c.Path + sep + params + "&_journal_mode=WAL", nil
		}
		return fmt.Sprintf("file:%s?%s&_journal_mode=WAL", c.Path, params), nil
	}
	return "", fmt.Errorf("unsupported database driver %q", c.Driver)
}

// DB wraps sqlx.DB with query metrics, logging and pool monitoring.
// Queries are written with ? placeholders and rebound for the active driver.
type DB struct {
	db      *sqlx.DB
	driver  string
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	config  *Config
	clock   clockwork.Clock
	stop    chan struct{}
	done    chan struct{}
}

// Open connects to the configured database and starts pool monitoring.
func Open(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*DB, error) {
	return OpenWithClock(cfg, logger, metricsCollector, clockwork.NewRealClock())
}

// OpenWithClock is Open with an explicit clock driving the pool monitor.
func OpenWithClock(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, clock clockwork.Clock) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if driver == DriverSQLite && cfg.Path == MemoryPath {
		// every connection to :memory: is a separate database
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	if maxOpen == 1 {
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info(context.Background(), "[DB_INIT] Database connection established", logging.Fields{
		"driver":            driver,
		"host":              cfg.Host,
		"database":          cfg.Database,
		"path":              cfg.Path,
		"max_open_conns":    maxOpen,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	d := &DB{
		db:      db,
		driver:  driver,
		logger:  logger,
		metrics: metricsCollector,
		config:  cfg,
		clock:   clock,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go d.monitorConnectionPool()

	return d, nil
}

// Close stops pool monitoring and closes the database connection
func (d *DB) Close() error {
	select {
	case <-d.stop:
		return nil
	default:
		close(d.stop)
	}
	<-d.done

	d.logger.Info(context.Background(), "[DB_CLOSE] Closing database connection", logging.Fields{
		"driver": d.driver,
	})
	return d.db.Close()
}

// DB returns the underlying sqlx.DB instance
func (d *DB) DB() *sqlx.DB {
	return d.db
}

// Driver returns the driver name
func (d *DB) Driver() string {
	return d.driver
}

// Rebind converts ? placeholders to the driver's bind style
func (d *DB) Rebind(query string) string {
	return d.db.Rebind(query)
}

// In expands slice arguments of query and rebinds the result.
func (d *DB) In(query string, args ...interface{}) (string, []interface{}, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("expand query: %w", err)
	}
	return d.db.Rebind(q), expanded, nil
}

func (d *DB) observe(queryType string, start time.Time) time.Duration {
	duration := d.clock.Since(start)
	d.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	return duration
}

// QueryContext executes a query with context and metrics
func (d *DB) QueryContext(ctx context.Context, queryType, query string, args ...interface{}) (*sqlx.Rows, error) {
	start := d.clock.Now()
	defer func() {
		duration := d.observe(queryType, start)
		d.logger.Debug(ctx, "[DB_QUERY] Query executed", logging.Fields{
			"query_type":  queryType,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	rows, err := d.db.QueryxContext(ctx, d.db.Rebind(query), args...)
	if err != nil {
		d.metrics.RecordDBError("query_error")
		d.logger.Error(ctx, "[DB_QUERY_ERROR] Query failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return nil, err
	}

	return rows, nil
}

// ExecContext executes a command with context and metrics
func (d *DB) ExecContext(ctx context.Context, queryType, query string, args ...interface{}) (sql.Result, error) {
	start := d.clock.Now()
	defer d.observe(queryType, start)

	result, err := d.db.ExecContext(ctx, d.db.Rebind(query), args...)
	if err != nil {
		d.metrics.RecordDBError("exec_error")
		d.logger.Error(ctx, "[DB_EXEC_ERROR] Command failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return nil, err
	}

	return result, nil
}

// GetContext executes a query that returns a single row
func (d *DB) GetContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	start := d.clock.Now()
	defer d.observe(queryType, start)

	err := d.db.GetContext(ctx, dest, d.db.Rebind(query), args...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		d.metrics.RecordDBError("get_error")
		d.logger.Error(ctx, "[DB_GET_ERROR] Get query failed", logging.Fields{
			"query_type": queryType,
		}, err)
	}

	return err
}

// SelectContext executes a query that returns multiple rows
func (d *DB) SelectContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	start := d.clock.Now()
	defer d.observe(queryType, start)

	err := d.db.SelectContext(ctx, dest, d.db.Rebind(query), args...)
	if err != nil {
		d.metrics.RecordDBError("select_error")
		d.logger.Error(ctx, "[DB_SELECT_ERROR] Select query failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return err
	}

	return nil
}

// BeginTx begins a new transaction. PostgreSQL transactions are
// serializable; SQLite serializes writers itself.
func (d *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	var opts *sql.TxOptions
	if d.driver == DriverPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}

	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		d.metrics.RecordDBError("transaction_begin_error")
		d.logger.Error(ctx, "[DB_TX_ERROR] Failed to begin transaction", logging.Fields{}, err)
		return nil, err
	}

	return tx, nil
}

// monitorConnectionPool periodically updates connection pool metrics until Close
func (d *DB) monitorConnectionPool() {
	defer close(d.done)

	ticker := d.clock.NewTicker(poolMonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.Chan():
			d.reportPool()
		}
	}
}

func (d *DB) reportPool() {
	stats := d.db.Stats()

	d.metrics.UpdateDBConnectionPool(stats.InUse, stats.Idle, stats.OpenConnections)

	if stats.MaxOpenConnections <= 0 {
		return
	}
	utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
	if utilization > 0.8 {
		d.logger.Warn(context.Background(), "[DB_POOL_WARNING] Connection pool utilization high", logging.Fields{
			"in_use":      stats.InUse,
			"idle":        stats.Idle,
			"total":       stats.OpenConnections,
			"max_open":    stats.MaxOpenConnections,
			"utilization": fmt.Sprintf("%.2f%%", utilization*100),
		})
	}
}

// HealthCheck performs a database health check
func (d *DB) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}
