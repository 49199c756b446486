package db

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/fhe"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetStake(ctx context.Context, account string) (*model.StakeDocument, error)
	UpsertStake(ctx context.Context, account string, amount *uint256.Int, cipher fhe.Handle) error
	SumStakes(ctx context.Context) (*uint256.Int, uint64, error)
	GetTotals(ctx context.Context) (*model.TotalsDocument, error)
	UpsertTotals(ctx context.Context, total *uint256.Int, cipher fhe.Handle) error
	SaveEvent(ctx context.Context, event *model.EventDocument) error
	GetEventsByAccount(ctx context.Context, account string, limit int64) ([]model.EventDocument, error)
	GetRecentEvents(ctx context.Context, limit int64) ([]model.EventDocument, error)

	// the db doubles as the engine's ciphertext store so cipher writes join
	// ledger transactions
	fhe.CipherStore
}
