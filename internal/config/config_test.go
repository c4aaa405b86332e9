package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AQ_CONFIG", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "air_quality", cfg.Database.Database)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "csv", cfg.Data.Source)
	assert.Equal(t, "all_data.csv", cfg.Data.Path)
	assert.Equal(t, 1000, cfg.Data.SampleSize)
	assert.Equal(t, uint64(42), cfg.Data.SampleSeed)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AQ_CONFIG", "")
	t.Setenv("AQ_SERVER_PORT", "9090")
	t.Setenv("AQ_SERVER_READ_TIMEOUT", "5s")
	t.Setenv("AQ_DATABASE_DRIVER", "sqlite3")
	t.Setenv("AQ_DATABASE_PATH", "/tmp/aq.db")
	t.Setenv("AQ_LOGGING_LEVEL", "debug")
	t.Setenv("AQ_DATA_PATH", "/data/PRSA")
	t.Setenv("AQ_DATA_SAMPLE_SEED", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "/tmp/aq.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/data/PRSA", cfg.Data.Path)
	assert.Equal(t, uint64(7), cfg.Data.SampleSeed)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFile_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
data:
  source: database
  sample_size: 250
logging:
  level: warn
`), 0o644))
	t.Setenv("AQ_LOGGING_LEVEL", "error")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "database", cfg.Data.Source)
	assert.Equal(t, 250, cfg.Data.SampleSize)
	assert.Equal(t, "error", cfg.Logging.Level, "env wins over file")
	assert.Equal(t, "localhost", cfg.Database.Host, "defaults fill the rest")
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Database: DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Database: "aq"},
		Logging:  LoggingConfig{Level: "info"},
		Data:     DataConfig{Source: "csv", Path: "all_data.csv", SampleSize: 1000},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"no shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported database driver"},
		{"postgres without host", func(c *Config) { c.Database.Host = "" }, "database host"},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite3" }, "database path"},
		{"sqlite with path", func(c *Config) { c.Database.Driver = "sqlite3"; c.Database.Path = "x.db" }, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad source", func(c *Config) { c.Data.Source = "s3" }, "unsupported data source"},
		{"csv without path", func(c *Config) { c.Data.Path = "" }, "data path"},
		{"database source", func(c *Config) { c.Data.Source = "database"; c.Data.Path = "" }, ""},
		{"zero sample", func(c *Config) { c.Data.SampleSize = 0 }, "sample_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "secret"

	out := cfg.Redacted()
	assert.Equal(t, "****", out.Database.Password)
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestConnection(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "sqlite3"
	cfg.Database.Path = filepath.Join(t.TempDir(), "aq.db")

	conn := cfg.Database.Connection()
	assert.Equal(t, "sqlite3", conn.Driver)
	assert.Equal(t, cfg.Database.Path, conn.Path)
	assert.Equal(t, cfg.Database.MaxOpenConns, conn.MaxOpenConns)
	assert.Equal(t, cfg.Database.ConnMaxLifetime, conn.ConnMaxLifetime)

	dsn, err := conn.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, cfg.Database.Path)
}
