package registryclient

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/fhe"
)

type RegistryInterface interface {
	Mint(ctx context.Context, account string, amount *uint256.Int) (fhe.Handle, error)
	ConfidentialTransferFrom(ctx context.Context, from, to string, cipher fhe.Handle) error
	ConfidentialTransfer(ctx context.Context, to string, cipher fhe.Handle) error
	SetOperator(ctx context.Context, owner, operator string, until time.Time) error
	IsOperator(ctx context.Context, owner, operator string) (bool, time.Time, error)
	ConfidentialBalanceOf(ctx context.Context, account string) (fhe.Handle, error)
}
