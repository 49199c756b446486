package config

import (
	"time"
)

const defaultStatsPollingInterval = 5 * time.Minute

type PollerConfig struct {
	// StatsPollingInterval is how often the ledger recomputes the sum of all
	// stakes and compares it against the stored global total.
	StatsPollingInterval time.Duration `mapstructure:"stats-polling-interval"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.StatsPollingInterval <= 0 {
		cfg.StatsPollingInterval = defaultStatsPollingInterval
	}

	return nil
}
