package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"air-quality-platform/pkg/database"
)

// EnvPrefix prefixes every environment override, e.g. AQ_SERVER_PORT.
const EnvPrefix = "AQ"

// Config is the complete runtime configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Data     DataConfig     `mapstructure:"data" yaml:"data"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the observation store.
// Driver is "postgres" or "sqlite3"; Path is only used by sqlite3.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Database        string        `mapstructure:"database" yaml:"database"`
	SSLMode         string        `mapstructure:"sslmode" yaml:"sslmode"`
	Path            string        `mapstructure:"path" yaml:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DataConfig selects where the dashboard reads observations from.
// Source "csv" reads Path (a file or a directory of per-station files);
// "database" reads the observation store.
type DataConfig struct {
	Source     string `mapstructure:"source" yaml:"source"`
	Path       string `mapstructure:"path" yaml:"path"`
	SampleSize int    `mapstructure:"sample_size" yaml:"sample_size"`
	SampleSeed uint64 `mapstructure:"sample_seed" yaml:"sample_seed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "air_quality")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "air_quality.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 1*time.Minute)

	v.SetDefault("logging.level", "info")

	v.SetDefault("data.source", "csv")
	v.SetDefault("data.path", "all_data.csv")
	v.SetDefault("data.sample_size", 1000)
	v.SetDefault("data.sample_seed", 42)
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// AQ_* environment variables, in increasing precedence. The file is taken
// from AQ_CONFIG, falling back to ./config.yaml when present.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv(EnvPrefix + "_CONFIG"))
}

// LoadConfigFile is LoadConfig with an explicit config file. An empty path
// looks for an optional config.yaml in the working directory.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the binaries cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server shutdown_timeout must be positive")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return errors.New("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Database == "" {
			return errors.New("database name is required")
		}
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite3")
		}
	default:
		return fmt.Errorf("unsupported database driver %q, expected postgres or sqlite3", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return errors.New("database connection limits must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	switch c.Data.Source {
	case "csv":
		if c.Data.Path == "" {
			return errors.New("data path is required for csv source")
		}
	case "database":
	default:
		return fmt.Errorf("unsupported data source %q, expected csv or database", c.Data.Source)
	}
	if c.Data.SampleSize <= 0 {
		return fmt.Errorf("data sample_size must be positive, got %d", c.Data.SampleSize)
	}

	return nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = "****"
	}
	return c
}

// Connection converts the database section for database.Open
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		Path:            d.Path,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}
