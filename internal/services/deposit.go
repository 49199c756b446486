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

// Deposit moves amount units of the account's confidential balance into the
// ledger and advances all four bookkeeping quantities: the account's
// plaintext and encrypted stake and the global plaintext and encrypted
// totals. Either everything commits or nothing does; a registry rejection
// rolls back the bookkeeping entirely.
func (s *Service) Deposit(ctx context.Context, account string, amount uint64) error {
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
	event, err := s.applyDeposit(ctx, account, amount)
	metrics.RecordLedgerOpDuration("deposit", time.Since(start), err != nil)
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str("account", account).
		Uint64("amount", amount).
		Msg("Deposit committed")

	s.publishEvent(ctx, event, amount)

	return nil
}

func (s *Service) applyDeposit(ctx context.Context, account string, amount uint64) (*model.EventDocument, error) {
	var event *model.EventDocument

	err := s.db.WithTransaction(ctx, func(txCtx context.Context) error {
		stake, stakeCipher, err := s.loadStake(txCtx, account)
		if err != nil {
			return err
		}
		total, totalCipher, err := s.loadTotals(txCtx)
		if err != nil {
			return err
		}

		delta := uint256.NewInt(amount)
		newStake, overflow := new(uint256.Int).AddOverflow(stake, delta)
		if overflow {
			return fmt.Errorf("%w: stake for %s", types.ErrAmountOverflow, account)
		}
		newTotal, overflow := new(uint256.Int).AddOverflow(total, delta)
		if overflow {
			return fmt.Errorf("%w: global total", types.ErrAmountOverflow)
		}

		// one encryption per operation: the handle feeds both accumulator
		// folds and the transfer, so the three stay provably the same amount
		deltaCipher, err := s.engine.Encrypt(txCtx, amount)
		if err != nil {
			return fmt.Errorf("failed to encrypt deposit amount: %w", err)
		}
		if err := s.allowTransfer(txCtx, deltaCipher, account); err != nil {
			return err
		}

		newStakeCipher, err := s.foldCipher(txCtx, stakeCipher, deltaCipher, s.engine.Add, account)
		if err != nil {
			return fmt.Errorf("failed to fold stake cipher: %w", err)
		}
		newTotalCipher, err := s.foldCipher(txCtx, totalCipher, deltaCipher, s.engine.Add, s.cfg.Ledger.Principal)
		if err != nil {
			return fmt.Errorf("failed to fold total cipher: %w", err)
		}

		if err := s.db.UpsertStake(txCtx, account, newStake, newStakeCipher); err != nil {
			return fmt.Errorf("failed to upsert stake: %w", err)
		}
		if err := s.db.UpsertTotals(txCtx, newTotal, newTotalCipher); err != nil {
			return fmt.Errorf("failed to upsert totals: %w", err)
		}

		event = model.NewEventDocument(types.EventDepositType, account, delta, newStakeCipher)
		if err := s.db.SaveEvent(txCtx, event); err != nil {
			return fmt.Errorf("failed to save deposit event: %w", err)
		}

		// the transfer goes last so a registry rejection aborts every write
		// above; there is no observable state where bookkeeping advanced but
		// the asset did not move
		if err := s.registry.ConfidentialTransferFrom(txCtx, account, s.cfg.Ledger.Principal, deltaCipher); err != nil {
			return fmt.Errorf("confidential transfer-in rejected: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}
