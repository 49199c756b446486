package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Principal: "0x8ba1f109551bd432803012645ac136ddd64dba72",
		},
		Db: DbConfig{
			Username: "test",
			Password: "test",
			Address:  "mongodb://localhost:27017",
			DbName:   "staking-ledger",
		},
		Fhe: FheConfig{
			KeyFile: "/tmp/bfv.keys",
		},
		Registry: RegistryConfig{
			Endpoint:      "http://localhost:8090",
			Principal:     "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			Timeout:       15 * time.Second,
			MaxRetryTimes: 3,
			RetryInterval: 1 * time.Second,
		},
		Queue: &QueueConfig{
			User:     "test",
			Password: "test",
			URL:      "localhost:5672",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			WriteTimeout: 30 * time.Second,
			ReadTimeout:  10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Metrics: MetricsConfig{
			Host: "0.0.0.0",
			Port: 2112,
		},
		Poller: PollerConfig{
			StatsPollingInterval: 1 * time.Minute,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	// principals come out checksummed
	assert.Equal(t, "0x8ba1f109551bD432803012645Ac136ddd64DBA72", cfg.Ledger.Principal)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", cfg.Registry.Principal)
}

func TestConfigOptionalQueue(t *testing.T) {
	cfg := validConfig()
	cfg.Queue = nil

	require.NoError(t, cfg.Validate())
	assert.Nil(t, cfg.Queue)
}

func TestConfigValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{
			name:   "bad ledger principal",
			mutate: func(cfg *Config) { cfg.Ledger.Principal = "not-an-address" },
		},
		{
			name:   "missing db address",
			mutate: func(cfg *Config) { cfg.Db.Address = "" },
		},
		{
			name:   "missing fhe key file",
			mutate: func(cfg *Config) { cfg.Fhe.KeyFile = "" },
		},
		{
			name:   "missing registry endpoint",
			mutate: func(cfg *Config) { cfg.Registry.Endpoint = "" },
		},
		{
			name:   "bad registry principal",
			mutate: func(cfg *Config) { cfg.Registry.Principal = "0x123" },
		},
		{
			name:   "zero registry retries",
			mutate: func(cfg *Config) { cfg.Registry.MaxRetryTimes = 0 },
		},
		{
			name:   "missing queue credentials",
			mutate: func(cfg *Config) { cfg.Queue.Password = "" },
		},
		{
			name:   "server port out of range",
			mutate: func(cfg *Config) { cfg.Server.Port = 0 },
		},
		{
			name:   "metrics port below 1024",
			mutate: func(cfg *Config) { cfg.Metrics.Port = 80 },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestQueueConfigPublishTimeoutDefault(t *testing.T) {
	cfg := &QueueConfig{
		User:     "test",
		Password: "test",
		URL:      "localhost:5672",
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultPublishTimeout, cfg.PublishTimeout)
}
