package types

import "errors"

// Validation failures raised by the ledger before any state is touched.
// Callers match on these with errors.Is; the API layer maps them to status
// codes.
var (
	// ErrInvalidAmount rejects zero-valued deposits and withdrawals.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrInvalidAccount rejects account identifiers that do not parse as
	// hex addresses.
	ErrInvalidAccount = errors.New("invalid account address")

	// ErrInsufficientStake rejects withdrawals exceeding the account's
	// plaintext stake. The plaintext comparison is the sole gate; the
	// encrypted stake is trusted to match by the ledger invariant.
	ErrInsufficientStake = errors.New("withdrawal amount exceeds current stake")

	// ErrAmountOverflow is returned when a deposit would push a stake or
	// the global total past the 256-bit bookkeeping width.
	ErrAmountOverflow = errors.New("stake bookkeeping overflow")

	// ErrInvalidConstruction is returned by NewService when the asset
	// registry or the encryption engine is absent. The service fails at
	// construction, never at call time.
	ErrInvalidConstruction = errors.New("asset registry and encryption engine are required")
)
