package model

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/fhe"
)

const StakeCollection = "stakes"

// StakeDocument mirrors one account's staked balance in both representations.
// Amount is a decimal uint256 string (bson has no 256-bit integer type);
// StakeCipher is the hex handle of the encrypted balance.
type StakeDocument struct {
	Account     string `bson:"_id"` // normalized account address
	Amount      string `bson:"amount"`
	StakeCipher string `bson:"stake_cipher"`
	UpdatedAt   int64  `bson:"updated_at"` // Unix timestamp of last update
}

func (d *StakeDocument) AmountUint256() (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt stake amount for %s: %w", d.Account, err)
	}
	return amount, nil
}

func (d *StakeDocument) CipherHandle() (fhe.Handle, error) {
	handle, err := fhe.HandleFromHex(d.StakeCipher)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("corrupt stake cipher for %s: %w", d.Account, err)
	}
	return handle, nil
}
