package config

import (
	"fmt"
)

type FheConfig struct {
	// KeyFile is where the BFV keyset lives. A missing file is generated on
	// first start; losing it makes every stored ciphertext undecryptable.
	KeyFile string `mapstructure:"key-file"`
}

func (cfg *FheConfig) Validate() error {
	if cfg.KeyFile == "" {
		return fmt.Errorf("fhe key file path must be set")
	}

	return nil
}
