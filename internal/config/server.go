package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle-timeout"`
}

func (cfg *ServerConfig) Validate() error {
	if cfg.Host == "" {
		return fmt.Errorf("server host is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("server idle timeout must be positive")
	}

	return nil
}

func (cfg *ServerConfig) Address() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}
