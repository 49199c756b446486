package config

import (
	"fmt"
	"time"
)

const defaultPublishTimeout = 10 * time.Second

type QueueConfig struct {
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	URL            string        `mapstructure:"url"`
	PublishTimeout time.Duration `mapstructure:"publish-timeout"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.User == "" {
		return fmt.Errorf("missing queue user")
	}
	if cfg.Password == "" {
		return fmt.Errorf("missing queue password")
	}
	if cfg.URL == "" {
		return fmt.Errorf("missing queue url")
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}

	return nil
}
