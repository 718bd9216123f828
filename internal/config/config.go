// Package config loads the acquisition core's runtime configuration from
// the environment into a typed struct.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the acquisition pipeline consumes.
type Config struct {
	DBPath string `env:"DB_PATH" envDefault:"./data/reelforge.db"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true"`

	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	StalledThreshold time.Duration `env:"STALLED_THRESHOLD" envDefault:"6h"`

	SeedingMinRatio float64       `env:"SEEDING_MIN_RATIO" envDefault:"1.0"`
	SeedingMinTime  time.Duration `env:"SEEDING_MIN_TIME" envDefault:"24h"`
	SeedingMaxTime  time.Duration `env:"SEEDING_MAX_TIME" envDefault:"168h"`

	AutoBlockAfter    int  `env:"AUTO_BLOCK_AFTER" envDefault:"3"`
	DeleteOnFail      bool `env:"DELETE_ON_FAIL" envDefault:"true"`
	SearchAlternative bool `env:"SEARCH_ALTERNATIVE" envDefault:"true"`

	SampleThresholdBytes int64         `env:"SAMPLE_THRESHOLD_BYTES" envDefault:"104857600"`
	ImportTimeout        time.Duration `env:"IMPORT_TIMEOUT" envDefault:"1h"`

	RecycleBinPath string `env:"RECYCLE_BIN_PATH" envDefault:""`
	KeepOldFiles   bool   `env:"KEEP_OLD_FILES" envDefault:"false"`

	SearchIntervalMinutes int `env:"SEARCH_INTERVAL_MINUTES" envDefault:"60"`
	RSSIntervalMinutes    int `env:"RSS_INTERVAL_MINUTES" envDefault:"15"`

	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay    time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
	RetryMaxAttempts uint64        `env:"RETRY_MAX_ATTEMPTS" envDefault:"5"`
}

// Load parses Config from the process environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config from environment: %w", err)
	}
	return cfg, nil
}
