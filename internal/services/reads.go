package services

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/db"
	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/types"
	"github.com/cipherstake/staking-ledger/pkg"
)

// GetStake reports the plaintext stake for an account. An account that never
// staked reads as zero; so does one that withdrew everything, which is a
// steady state rather than a removal.
func (s *Service) GetStake(ctx context.Context, account string) (*uint256.Int, error) {
	account, err := pkg.NormalizeAccountAddress(account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidAccount, err)
	}

	stake, _, err := s.loadStake(ctx, account)
	if err != nil {
		return nil, err
	}

	return stake, nil
}

// GetStakeCipher reports the account's encrypted-stake handle, the zero
// handle when no ciphertext exists yet. Callers need their own decryption
// rights to use it; the ledger never decrypts on a caller's behalf.
func (s *Service) GetStakeCipher(ctx context.Context, account string) (fhe.Handle, error) {
	account, err := pkg.NormalizeAccountAddress(account)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: %v", types.ErrInvalidAccount, err)
	}

	_, cipher, err := s.loadStake(ctx, account)
	if err != nil {
		return fhe.Handle{}, err
	}

	return cipher, nil
}

func (s *Service) GetTotalStaked(ctx context.Context) (*uint256.Int, error) {
	total, _, err := s.loadTotals(ctx)
	if err != nil {
		return nil, err
	}

	return total, nil
}

func (s *Service) GetTotalStakedCipher(ctx context.Context) (fhe.Handle, error) {
	_, cipher, err := s.loadTotals(ctx)
	if err != nil {
		return fhe.Handle{}, err
	}

	return cipher, nil
}

// IsOperator reports whether the account holds a live transfer delegation
// toward the ledger. The registry's view is queried fresh on every call and
// never cached; delegation validity is the registry's to decide.
func (s *Service) IsOperator(ctx context.Context, account string) (bool, time.Time, error) {
	account, err := pkg.NormalizeAccountAddress(account)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("%w: %v", types.ErrInvalidAccount, err)
	}

	return s.registry.IsOperator(ctx, account, s.cfg.Ledger.Principal)
}

// loadStake returns both views of an account's stake, zero values when the
// account has no record.
func (s *Service) loadStake(ctx context.Context, account string) (*uint256.Int, fhe.Handle, error) {
	doc, err := s.db.GetStake(ctx, account)
	if err != nil {
		if db.IsNotFoundError(err) {
			return uint256.NewInt(0), fhe.Handle{}, nil
		}
		return nil, fhe.Handle{}, fmt.Errorf("failed to load stake for %s: %w", account, err)
	}

	stake, err := doc.AmountUint256()
	if err != nil {
		return nil, fhe.Handle{}, err
	}
	cipher, err := doc.CipherHandle()
	if err != nil {
		return nil, fhe.Handle{}, err
	}

	return stake, cipher, nil
}

func (s *Service) loadTotals(ctx context.Context) (*uint256.Int, fhe.Handle, error) {
	doc, err := s.db.GetTotals(ctx)
	if err != nil {
		return nil, fhe.Handle{}, fmt.Errorf("failed to load global totals: %w", err)
	}

	total, err := doc.TotalUint256()
	if err != nil {
		return nil, fhe.Handle{}, err
	}
	cipher, err := doc.CipherHandle()
	if err != nil {
		return nil, fhe.Handle{}, err
	}

	return total, cipher, nil
}
