package config

import (
	"fmt"

	"github.com/cipherstake/staking-ledger/pkg"
)

// LedgerConfig identifies the ledger itself toward its collaborators: the
// registry account that custodies staked balances and appears on every
// accumulator ACL.
type LedgerConfig struct {
	Principal string `mapstructure:"principal"`
}

func (cfg *LedgerConfig) Validate() error {
	normalized, err := pkg.NormalizeAccountAddress(cfg.Principal)
	if err != nil {
		return fmt.Errorf("invalid ledger principal: %w", err)
	}
	cfg.Principal = normalized

	return nil
}
