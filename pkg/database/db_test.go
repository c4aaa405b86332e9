package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"air-quality-platform/pkg/logging"
	"air-quality-platform/pkg/metrics"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(
		&Config{Driver: DriverSQLite, Path: MemoryPath, MaxOpenConns: 10},
		logging.NewNopLogger(),
		metrics.NewCollectorWithRegistry("aq", prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConfig_DSN(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			"postgres",
			Config{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", Database: "aq", SSLMode: "disable"},
			"host=db port=5432 user=u password=p dbname=aq sslmode=disable",
		},
		{
			"default driver",
			Config{Host: "db", Port: 5432, User: "u", Database: "aq", SSLMode: "require"},
			"host=db port=5432 user=u password= dbname=aq sslmode=require",
		},
		{
			"sqlite memory",
			Config{Driver: DriverSQLite, Path: MemoryPath},
			":memory:?_foreign_keys=on&_busy_timeout=5000",
		},
		{
			"sqlite file",
			Config{Driver: DriverSQLite, Path: filepath.Join(dir, "nested", "aq.db")},
			"file:" + filepath.Join(dir, "nested", "aq.db") + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DSN()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := (&Config{Driver: "mysql"}).DSN()
	assert.Error(t, err)
}

func TestDB_MemoryRoundTrip(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	assert.Equal(t, DriverSQLite, db.Driver())
	assert.Equal(t, 1, db.DB().Stats().MaxOpenConnections, "memory databases use a single connection")

	_, err := db.ExecContext(ctx, "create", `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "insert", `INSERT INTO t (id, name) VALUES (?, ?), (?, ?)`, 1, "Dongsi", 2, "Dingling")
	require.NoError(t, err)

	var name string
	require.NoError(t, db.GetContext(ctx, "get", &name, `SELECT name FROM t WHERE id = ?`, 2))
	assert.Equal(t, "Dingling", name)

	err = db.GetContext(ctx, "get", &name, `SELECT name FROM t WHERE id = ?`, 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	query, args, err := db.In(`SELECT name FROM t WHERE id IN (?) ORDER BY id`, []int{1, 2})
	require.NoError(t, err)
	var names []string
	require.NoError(t, db.SelectContext(ctx, "select", &names, query, args...))
	assert.Equal(t, []string{"Dongsi", "Dingling"}, names)

	rows, err := db.QueryContext(ctx, "query", `SELECT id FROM t`)
	require.NoError(t, err)
	n := 0
	for rows.Next() {
		n++
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, 2, n)

	require.NoError(t, db.HealthCheck(ctx))
}

func TestDB_Transaction(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "create", `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO t (id) VALUES (1)`)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var count int
	require.NoError(t, db.GetContext(ctx, "count", &count, `SELECT COUNT(*) FROM t`))
	assert.Zero(t, count)
}

func TestDB_ExecErrorIsReturned(t *testing.T) {
	db := openMemory(t)

	_, err := db.ExecContext(context.Background(), "bad", `INSERT INTO missing_table VALUES (1)`)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing_table"))
}

func TestDB_CloseIsIdempotent(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
}
