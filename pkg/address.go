package pkg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAccountAddress validates a 20-byte hex account address and returns
// its EIP-55 checksummed form. All ledger state is keyed by the normalized
// form so lookups are case-insensitive for callers.
func NormalizeAccountAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("account %q is not a valid hex address", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

func ValidateAccountAddress(address string) error {
	_, err := NormalizeAccountAddress(address)
	return err
}
