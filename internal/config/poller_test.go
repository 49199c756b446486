package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerConfigValidate(t *testing.T) {
	t.Run("interval set", func(t *testing.T) {
		cfg := &PollerConfig{StatsPollingInterval: 3 * time.Minute}

		err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, 3*time.Minute, cfg.StatsPollingInterval)
	})

	t.Run("interval not set - should use default", func(t *testing.T) {
		cfg := &PollerConfig{}

		err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, defaultStatsPollingInterval, cfg.StatsPollingInterval)
	})

	t.Run("interval negative - should use default", func(t *testing.T) {
		cfg := &PollerConfig{StatsPollingInterval: -1 * time.Minute}

		err := cfg.Validate()
		require.NoError(t, err)
		assert.Equal(t, defaultStatsPollingInterval, cfg.StatsPollingInterval)
	})
}
