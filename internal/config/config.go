package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application settings. Defaults mirror the hosted viewer;
// every field can be overridden through HUB_* environment variables.
type Config struct {
	// Static reference data, served from the app's own origin.
	DataBaseURL   string `envconfig:"DATA_BASE_URL" default:"" validate:"omitempty,url"`
	LocationsFile string `envconfig:"LOCATIONS_FILE" default:"globals/data/locations.json" validate:"required"`
	MarketFile    string `envconfig:"MARKET_FILE" default:"market/data/market.json" validate:"required"`

	// External market API.
	ESIBaseURL string `envconfig:"ESI_BASE_URL" default:"https://esi.evetech.net/latest/markets" validate:"required,url"`

	// Region selection. 10000002 is The Forge (Jita).
	DefaultRegionID int32 `envconfig:"DEFAULT_REGION_ID" default:"10000002" validate:"required,gt=0"`

	// History cache freshness window and retention.
	HistoryTTL  time.Duration `envconfig:"HISTORY_TTL" default:"5m" validate:"required"`
	HistoryDays int           `envconfig:"HISTORY_DAYS" default:"365" validate:"required,gt=0"`

	// Benchmark item for the ticker. 44992 is PLEX.
	TickerTypeID int32 `envconfig:"TICKER_TYPE_ID" default:"44992" validate:"gt=0"`

	// Search behavior.
	SearchMinLength  int `envconfig:"SEARCH_MIN_LENGTH" default:"3" validate:"gte=1"`
	SearchMaxResults int `envconfig:"SEARCH_MAX_RESULTS" default:"100" validate:"gt=0"`

	// HTTP server.
	Port int `envconfig:"PORT" default:"13370" validate:"gt=0,lte=65535"`
}

// Default returns a Config with all defaults applied and no environment
// overrides. Used by tests that need a known baseline.
func Default() *Config {
	return &Config{
		LocationsFile:    "globals/data/locations.json",
		MarketFile:       "market/data/market.json",
		ESIBaseURL:       "https://esi.evetech.net/latest/markets",
		DefaultRegionID:  10000002,
		HistoryTTL:       5 * time.Minute,
		HistoryDays:      365,
		TickerTypeID:     44992,
		SearchMinLength:  3,
		SearchMaxResults: 100,
		Port:             13370,
	}
}

// Load builds a Config from defaults plus HUB_* environment overrides and
// validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("HUB", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
