package services

import (
	"sync"

	"github.com/cipherstake/staking-ledger/consumer"
	"github.com/cipherstake/staking-ledger/internal/clients/registryclient"
	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/db"
	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/types"
)

// Service is the staking ledger core. It keeps every balance in two views, a
// plaintext value and a ciphertext handle, advances both on each deposit and
// withdrawal, and hands the asset movement itself to the confidential
// registry. The two views are maintained independently and must stay
// numerically equal; nothing ever derives one from the other.
type Service struct {
	cfg      *config.Config
	db       db.DbInterface
	engine   fhe.Engine
	registry registryclient.RegistryInterface
	sink     consumer.EventSink

	// ledgerMu serializes mutations. Every deposit and withdrawal touches
	// the global totals, so they contend on a single hot spot anyway.
	ledgerMu sync.Mutex
}

func NewService(
	cfg *config.Config,
	db db.DbInterface,
	engine fhe.Engine,
	registry registryclient.RegistryInterface,
	sink consumer.EventSink,
) (*Service, error) {
	if engine == nil || registry == nil {
		return nil, types.ErrInvalidConstruction
	}

	return &Service{
		cfg:      cfg,
		db:       db,
		engine:   engine,
		registry: registry,
		sink:     sink,
	}, nil
}
