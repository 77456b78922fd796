package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends for the profile slot.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Trace exporters.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	Server   Server
	Log      Log
	Storage  Storage
	Redis    RedisConfig
	Postgres PostgresConfig
	Photo    Photo
	Legacy   Legacy
	Tracing  Tracing
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"DOSSIER_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"DOSSIER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"DOSSIER_REQUEST_TIMEOUT" envDefault:"30s"`
}

type Log struct {
	Level  string `env:"DOSSIER_LOG_LEVEL" envDefault:"info"`
	Format string `env:"DOSSIER_LOG_FORMAT" envDefault:"json"`
}

// Storage selects where the profile slot lives.
type Storage struct {
	Backend  string `env:"DOSSIER_STORAGE" envDefault:"file"`
	SlotKey  string `env:"DOSSIER_SLOT_KEY" envDefault:"profile"`
	FilePath string `env:"DOSSIER_FILE_PATH" envDefault:"data/profile.json"`
}

// RedisConfig holds connection settings for the redis slot.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig holds connection settings for the postgres slot.
type PostgresConfig struct {
	DSN             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"5"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// Photo configures the photo collaborator. An empty Dir disables photos.
type Photo struct {
	Dir string `env:"DOSSIER_PHOTO_DIR" envDefault:"data/photos"`
}

// Legacy configures how data written by earlier releases is read. Their
// dates are instants of local midnight, so Timezone should be the user's
// zone. "Local" is the process zone.
type Legacy struct {
	Timezone string `env:"DOSSIER_LEGACY_TIMEZONE" envDefault:"Local"`
}

// Location resolves Timezone.
func (l Legacy) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("DOSSIER_LEGACY_TIMEZONE: %w", err)
	}
	return loc, nil
}

// Tracing selects where spans go. "none" leaves the global no-op provider.
type Tracing struct {
	Exporter string `env:"DOSSIER_TRACE_EXPORTER" envDefault:"none"`
}

// FromEnv parses and validates the configuration.
func FromEnv() (Config, error) {
	return parse(env.Options{})
}

// FromMap is FromEnv over an explicit variable set.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("DOSSIER_FILE_PATH is required for the file backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.SlotKey == "" {
		return fmt.Errorf("DOSSIER_SLOT_KEY must not be empty")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	switch c.Tracing.Exporter {
	case TraceExporterNone, TraceExporterStdout:
	default:
		return fmt.Errorf("unknown trace exporter %q", c.Tracing.Exporter)
	}
	if _, err := c.Legacy.Location(); err != nil {
		return err
	}
	return nil
}
