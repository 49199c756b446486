package testutil

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/fhe"
)

// RandomAlphaNum generates random alphanumeric string
// in case length <= 0 it returns empty string
func RandomAlphaNum(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	if length <= 0 {
		return "", fmt.Errorf("length must be greater than 0")
	}

	randomString := make([]byte, length)
	for i := range randomString {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		randomString[i] = charset[num.Int64()]
	}

	return string(randomString), nil
}

// RandomAccountAddress generates a checksummed account address.
func RandomAccountAddress() string {
	var addr common.Address
	for i := range addr {
		addr[i] = byte(gofakeit.Number(0, 255))
	}
	return addr.Hex()
}

// RandomAmount generates a non-zero amount small enough that test scenarios
// can add a handful of them without overflow concerns.
func RandomAmount() *uint256.Int {
	return uint256.NewInt(uint64(gofakeit.IntRange(1, 1_000_000_000)))
}

// RandomHandle generates a ciphertext handle. The handle is random bytes, not
// derived from any ciphertext, so it only suits store-level tests.
func RandomHandle() fhe.Handle {
	var h fhe.Handle
	for i := range h {
		h[i] = byte(gofakeit.Number(0, 255))
	}
	return h
}
