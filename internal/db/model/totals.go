package model

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/fhe"
)

const TotalsCollection = "totals"

// GlobalTotalsID is the only document id in the totals collection.
const GlobalTotalsID = "global_totals"

// TotalsDocument holds the ledger-wide staked total in both representations.
type TotalsDocument struct {
	ID          string `bson:"_id"` // Always "global_totals"
	Total       string `bson:"total"`
	TotalCipher string `bson:"total_cipher"`
	UpdatedAt   int64  `bson:"updated_at"` // Unix timestamp of last update
}

func (d *TotalsDocument) TotalUint256() (*uint256.Int, error) {
	total, err := uint256.FromDecimal(d.Total)
	if err != nil {
		return nil, fmt.Errorf("corrupt total amount: %w", err)
	}
	return total, nil
}

func (d *TotalsDocument) CipherHandle() (fhe.Handle, error) {
	// empty before the first deposit: no ciphertext exists yet
	if d.TotalCipher == "" {
		return fhe.Handle{}, nil
	}
	handle, err := fhe.HandleFromHex(d.TotalCipher)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("corrupt total cipher: %w", err)
	}
	return handle, nil
}
