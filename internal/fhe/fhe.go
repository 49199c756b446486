// Package fhe holds the confidential-arithmetic capability of the ledger:
// opaque ciphertext handles, the engine interface balances are mutated
// through, and a lattice-based implementation on BFV.
package fhe

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

var (
	// ErrUnknownHandle is returned when a handle does not reference a stored
	// ciphertext. The zero handle is always unknown.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")
	// ErrCapacityExceeded is returned when an operation would push a
	// ciphertext past the engine's accumulation capacity.
	ErrCapacityExceeded = errors.New("ciphertext capacity exceeded")
	// ErrDecryptDenied is returned when the requesting principal is not on
	// the ciphertext's decryption ACL.
	ErrDecryptDenied = errors.New("decryption not allowed for principal")
)

// HandleLength is the byte length of a ciphertext handle.
const HandleLength = 32

// Handle is an opaque identifier of a ciphertext held by the engine. The zero
// value means "no ciphertext yet" and is distinct from a ciphertext that
// encrypts zero.
type Handle [HandleLength]byte

func (h Handle) IsZero() bool {
	return h == Handle{}
}

// Hex returns the 0x-prefixed hex form of the handle.
func (h Handle) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Handle) UnmarshalText(data []byte) error {
	parsed, err := HandleFromHex(string(data))
	if err != nil {
		return err
	}
	*h = parsed

	return nil
}

// HandleFromHex parses a handle from its hex form. The 0x prefix is optional.
func HandleFromHex(s string) (Handle, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle hex: %w", err)
	}
	if len(raw) != HandleLength {
		return Handle{}, fmt.Errorf("invalid handle length %d, expected %d", len(raw), HandleLength)
	}

	var h Handle
	copy(h[:], raw)
	return h, nil
}

// Engine is the mutation surface the ledger consumes. Amounts go in through
// Encrypt and only come back out through the gated Decryptor path. Subtract
// cannot detect underflow; callers gate amounts on the plaintext side.
type Engine interface {
	Encrypt(ctx context.Context, amount uint64) (Handle, error)
	Add(ctx context.Context, a, b Handle) (Handle, error)
	Subtract(ctx context.Context, a, b Handle) (Handle, error)
	IsInitialized(ctx context.Context, h Handle) (bool, error)
	// Allow grants principal the right to decrypt h. Granting twice is a no-op.
	Allow(ctx context.Context, h Handle, principal string) error
}

// Decryptor is the gated read path. The ledger's mutation logic never
// consumes it; operator tooling and tests do.
type Decryptor interface {
	Decrypt(ctx context.Context, h Handle, principal string) (*uint256.Int, error)
}

// KeyedEngine is the full surface of an engine holding decryption keys.
type KeyedEngine interface {
	Engine
	Decryptor
}
