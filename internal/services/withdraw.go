package services

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
	"github.com/cipherstake/staking-ledger/internal/types"
	"github.com/cipherstake/staking-ledger/pkg"
)

// Withdraw returns amount units from the ledger's confidential balance to the
// account, mirroring Deposit with homomorphic subtraction and a transfer-out.
// The plaintext stake comparison is the sole access gate; the encrypted stake
// is trusted to match it by the ledger invariant.
func (s *Service) Withdraw(ctx context.Context, account string, amount uint64) error {
	account, err := pkg.NormalizeAccountAddress(account)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidAccount, err)
	}
	if amount == 0 {
		return types.ErrInvalidAmount
	}

	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	start := time.Now()
	event, err := s.applyWithdraw(ctx, account, amount)
	metrics.RecordLedgerOpDuration("withdraw", time.Since(start), err != nil)
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str("account", account).
		Uint64("amount", amount).
		Msg("Withdrawal committed")

	s.publishEvent(ctx, event, amount)

	return nil
}

func (s *Service) applyWithdraw(ctx context.Context, account string, amount uint64) (*model.EventDocument, error) {
	var event *model.EventDocument

	err := s.db.WithTransaction(ctx, func(txCtx context.Context) error {
		stake, stakeCipher, err := s.loadStake(txCtx, account)
		if err != nil {
			return err
		}

		delta := uint256.NewInt(amount)
		if stake.Lt(delta) {
			return fmt.Errorf("%w: stake %s, requested %d", types.ErrInsufficientStake, stake.Dec(), amount)
		}

		total, totalCipher, err := s.loadTotals(txCtx)
		if err != nil {
			return err
		}

		newStake := new(uint256.Int).Sub(stake, delta)
		// conservation keeps the total at least as large as any single stake
		newTotal := new(uint256.Int).Sub(total, delta)

		deltaCipher, err := s.engine.Encrypt(txCtx, amount)
		if err != nil {
			return fmt.Errorf("failed to encrypt withdrawal amount: %w", err)
		}
		if err := s.allowTransfer(txCtx, deltaCipher, account); err != nil {
			return err
		}

		newStakeCipher, err := s.foldCipher(txCtx, stakeCipher, deltaCipher, s.engine.Subtract, account)
		if err != nil {
			return fmt.Errorf("failed to fold stake cipher: %w", err)
		}
		newTotalCipher, err := s.foldCipher(txCtx, totalCipher, deltaCipher, s.engine.Subtract, s.cfg.Ledger.Principal)
		if err != nil {
			return fmt.Errorf("failed to fold total cipher: %w", err)
		}

		if err := s.db.UpsertStake(txCtx, account, newStake, newStakeCipher); err != nil {
			return fmt.Errorf("failed to upsert stake: %w", err)
		}
		if err := s.db.UpsertTotals(txCtx, newTotal, newTotalCipher); err != nil {
			return fmt.Errorf("failed to upsert totals: %w", err)
		}

		event = model.NewEventDocument(types.EventWithdrawType, account, delta, newStakeCipher)
		if err := s.db.SaveEvent(txCtx, event); err != nil {
			return fmt.Errorf("failed to save withdrawal event: %w", err)
		}

		// the ledger pays the account out of its own confidential balance
		if err := s.registry.ConfidentialTransfer(txCtx, account, deltaCipher); err != nil {
			return fmt.Errorf("confidential transfer-out rejected: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}
