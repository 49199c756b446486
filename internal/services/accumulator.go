package services

import (
	"context"
	"fmt"

	"github.com/cipherstake/staking-ledger/internal/fhe"
)

// foldCipher folds a freshly encrypted delta into an accumulator handle and
// returns the handle of the result. The first contribution bypasses
// combination entirely: the engine's combine primitives do not accept an
// implicit zero operand, so an uninitialized accumulator is assigned the
// delta directly. The subject and the ledger are granted decryption rights on
// whatever handle comes out.
func (s *Service) foldCipher(
	ctx context.Context,
	current, delta fhe.Handle,
	combine func(ctx context.Context, a, b fhe.Handle) (fhe.Handle, error),
	subject string,
) (fhe.Handle, error) {
	initialized, err := s.engine.IsInitialized(ctx, current)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("failed to check accumulator state: %w", err)
	}

	next := delta
	if initialized {
		next, err = combine(ctx, current, delta)
		if err != nil {
			return fhe.Handle{}, err
		}
	}

	for _, principal := range []string{subject, s.cfg.Ledger.Principal} {
		if err := s.engine.Allow(ctx, next, principal); err != nil {
			return fhe.Handle{}, fmt.Errorf("failed to grant decrypt to %s: %w", principal, err)
		}
	}

	return next, nil
}

// allowTransfer opens a delta cipher to everyone the transfer path touches:
// the account it concerns, the ledger, and the registry, which validates the
// amounts it settles by reading them.
func (s *Service) allowTransfer(ctx context.Context, h fhe.Handle, account string) error {
	for _, principal := range []string{account, s.cfg.Ledger.Principal, s.cfg.Registry.Principal} {
		if err := s.engine.Allow(ctx, h, principal); err != nil {
			return fmt.Errorf("failed to grant decrypt on transfer cipher to %s: %w", principal, err)
		}
	}

	return nil
}
