// Package config loads server settings from CACHEQUEST_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	HTTPAddr string `env:"CACHEQUEST_HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"CACHEQUEST_LOG_LEVEL" envDefault:"info"`

	TileWidth         float64 `env:"CACHEQUEST_TILE_WIDTH"         envDefault:"0.0001"`
	VisibilityRadius  int     `env:"CACHEQUEST_VISIBILITY_RADIUS"  envDefault:"8"`
	SpawnProbability  float64 `env:"CACHEQUEST_SPAWN_PROBABILITY"  envDefault:"0.1"`
	MaxTokens         int     `env:"CACHEQUEST_MAX_TOKENS"         envDefault:"5"`
	InteractionRadius float64 `env:"CACHEQUEST_INTERACTION_RADIUS" envDefault:"10"`
	OriginLat         float64 `env:"CACHEQUEST_ORIGIN_LAT"         envDefault:"36.98949379578401"`
	OriginLng         float64 `env:"CACHEQUEST_ORIGIN_LNG"         envDefault:"-122.06277128548504"`
	Autosave          bool    `env:"CACHEQUEST_AUTOSAVE"           envDefault:"true"`

	Store      string `env:"CACHEQUEST_STORE"       envDefault:"sqlite"`
	SQLitePath string `env:"CACHEQUEST_SQLITE_PATH" envDefault:"cachequest.db"`
	DBDSN      string `env:"CACHEQUEST_DB_DSN"`

	FeedURL      string        `env:"CACHEQUEST_FEED_URL"`
	FeedPath     string        `env:"CACHEQUEST_FEED_PATH"`
	FeedInterval time.Duration `env:"CACHEQUEST_FEED_INTERVAL" envDefault:"1s"`
	FeedLoop     bool          `env:"CACHEQUEST_FEED_LOOP"`

	MetricsExporter string        `env:"CACHEQUEST_METRICS_EXPORTER" envDefault:"none"`
	MetricsInterval time.Duration `env:"CACHEQUEST_METRICS_INTERVAL" envDefault:"60s"`

	CORSOrigins []string `env:"CACHEQUEST_CORS_ORIGINS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the server configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.TileWidth <= 0:
		return fmt.Errorf("%w: tile width must be positive", ErrInvalid)
	case c.VisibilityRadius < 0:
		return fmt.Errorf("%w: visibility radius must not be negative", ErrInvalid)
	case c.SpawnProbability < 0 || c.SpawnProbability > 1:
		return fmt.Errorf("%w: spawn probability must be within [0,1]", ErrInvalid)
	case c.MaxTokens < 1:
		return fmt.Errorf("%w: max tokens must be at least 1", ErrInvalid)
	case c.InteractionRadius <= 0:
		return fmt.Errorf("%w: interaction radius must be positive", ErrInvalid)
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: CACHEQUEST_SQLITE_PATH is required for the sqlite store", ErrInvalid)
		}
	case StorePostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("%w: CACHEQUEST_DB_DSN is required for the postgres store", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// HlogLevel maps LogLevel onto hertz's logger levels.
func (c Config) HlogLevel() hlog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(raw string) (hlog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return hlog.LevelTrace, true
	case "debug":
		return hlog.LevelDebug, true
	case "info", "":
		return hlog.LevelInfo, true
	case "notice":
		return hlog.LevelNotice, true
	case "warn", "warning":
		return hlog.LevelWarn, true
	case "error":
		return hlog.LevelError, true
	case "fatal":
		return hlog.LevelFatal, true
	default:
		return hlog.LevelInfo, false
	}
}
