package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/db"
	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/pkg"
)

// DecryptStakeCmd opens an account's stake ciphertext with the locally
// configured keyset. Decryption is ACL-gated: it succeeds only for a
// principal the handle was granted to.
// ./staking-ledger decrypt-stake 0xabc... --config config.yml
func DecryptStakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt-stake [account]",
		Short: "Decrypt an account's stake cipher with the configured keyset",
		Args:  cobra.ExactArgs(1),
		RunE:  decryptStake,
	}

	cmd.Flags().String("principal", "", "principal to decrypt as (default: the ledger principal)")

	return cmd
}

func decryptStake(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	account, err := pkg.NormalizeAccountAddress(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	flagPrincipal, err := cmd.Flags().GetString("principal")
	if err != nil {
		return err
	}
	principal := cfg.Ledger.Principal
	if flagPrincipal != "" {
		principal, err = pkg.NormalizeAccountAddress(flagPrincipal)
		if err != nil {
			return err
		}
	}

	database, err := db.New(ctx, cfg.Db)
	if err != nil {
		return err
	}

	engine, err := fhe.NewBFVEngine(&cfg.Fhe, database)
	if err != nil {
		return err
	}

	stake, err := database.GetStake(ctx, account)
	if err != nil {
		if db.IsNotFoundError(err) {
			fmt.Printf("%s has no stake record\n", account)
			return nil
		}
		return err
	}

	handle, err := stake.CipherHandle()
	if err != nil {
		return err
	}

	amount, err := engine.Decrypt(ctx, handle, principal)
	if err != nil {
		if errors.Is(err, fhe.ErrDecryptDenied) {
			return fmt.Errorf("principal %s is not on the cipher's ACL", principal)
		}
		return err
	}

	fmt.Printf("account:   %s\n", account)
	fmt.Printf("cipher:    %s\n", stake.StakeCipher)
	fmt.Printf("plaintext: %s\n", amount.Dec())
	if amount.Dec() != stake.Amount {
		fmt.Println("WARNING: decrypted amount diverges from the plaintext bookkeeping")
	}

	return nil
}
