package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	RateLimit         int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	CacheEnabled    bool          `envconfig:"CACHE_ENABLED" default:"true"`
	HistoryCacheTTL time.Duration `envconfig:"HISTORY_CACHE_TTL" default:"24h"`

	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"fanmetrics_session"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`

	MarketStart     string        `envconfig:"MARKET_START" default:"2020-01"`
	HistorySeed     uint64        `envconfig:"MARKET_HISTORY_SEED" default:"42"`
	SessionSeed     uint64        `envconfig:"MARKET_SEED" default:"0"`
	PanelSize       int           `envconfig:"PANEL_SIZE" default:"100"`
	SessionCapacity int           `envconfig:"SESSION_CAPACITY" default:"1000"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"30s"`
	CatalogFile     string        `envconfig:"CATALOG_FILE"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if _, err := c.HistoryStart(); err != nil {
		return fmt.Errorf("MARKET_START must be YYYY-MM: %w", err)
	}
	if c.PanelSize <= 0 {
		return errors.New("PANEL_SIZE must be positive")
	}
	if c.SessionCapacity <= 0 {
		return errors.New("SESSION_CAPACITY must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.RefreshInterval < time.Second {
		return errors.New("REFRESH_INTERVAL must be at least 1s")
	}
	return nil
}

// HistoryStart parses MarketStart as the first month of history.
func (c *Config) HistoryStart() (time.Time, error) {
	return time.Parse("2006-01", c.MarketStart)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
