package config

import (
	"fmt"
	"time"

	"github.com/cipherstake/staking-ledger/pkg"
)

type RegistryConfig struct {
	// Endpoint specifies the URL of the confidential asset registry,
	// including the protocol prefix.
	Endpoint      string        `mapstructure:"endpoint"`
	Principal     string        `mapstructure:"principal"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetryTimes uint          `mapstructure:"max-retry-times"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
}

func (cfg *RegistryConfig) Validate() error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("registry endpoint is required")
	}

	normalized, err := pkg.NormalizeAccountAddress(cfg.Principal)
	if err != nil {
		return fmt.Errorf("invalid registry principal: %w", err)
	}
	cfg.Principal = normalized

	if cfg.Timeout <= 0 {
		return fmt.Errorf("registry timeout must be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return fmt.Errorf("registry max retry times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return fmt.Errorf("registry retry interval must be positive")
	}

	return nil
}
