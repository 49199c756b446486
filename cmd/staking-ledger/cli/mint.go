package cli

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/cipherstake/staking-ledger/internal/clients/registryclient"
	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/pkg"
)

// MintCmd issues confidential registry balance to an account, the bootstrap
// step before it can stake anything. In order to run it you need to call the
// binary with account and amount arguments + config flag like this:
// ./staking-ledger mint 0xabc... 1000000 --delegate-for 720h --config config.yml
func MintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint [account] [amount]",
		Short: "Mint confidential registry balance for an account",
		Args:  cobra.ExactArgs(2),
		RunE:  mint,
	}

	cmd.Flags().Duration("delegate-for", 0, "also delegate spending to the ledger for this duration")

	return cmd
}

func mint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	account, err := pkg.NormalizeAccountAddress(args[0])
	if err != nil {
		return err
	}
	amount, err := uint256.FromDecimal(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	registry := registryclient.NewClient(&cfg.Registry)
	cipher, err := registry.Mint(ctx, account, amount)
	if err != nil {
		return err
	}
	fmt.Printf("minted %s to %s (cipher %s)\n", amount.Dec(), account, cipher.Hex())

	delegateFor, err := cmd.Flags().GetDuration("delegate-for")
	if err != nil {
		return err
	}
	if delegateFor > 0 {
		until := time.Now().Add(delegateFor)
		if err := registry.SetOperator(ctx, account, cfg.Ledger.Principal, until); err != nil {
			return err
		}
		fmt.Printf("delegated spending to %s until %s\n", cfg.Ledger.Principal, until.Format(time.RFC3339))
	}

	return nil
}
