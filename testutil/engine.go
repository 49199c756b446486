package testutil

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/fhe"
)

// FakeEngine is an in-memory stand-in for the BFV engine. Every ciphertext is
// shadowed by its plaintext value, so tests can check that homomorphic
// results track the plaintext ledger exactly. Handles are sequential, which
// also makes "one encryption per operation" assertions possible through
// EncryptCalls.
type FakeEngine struct {
	mu           sync.Mutex
	values       map[fhe.Handle]*uint256.Int
	acls         map[fhe.Handle][]string
	seq          uint64
	EncryptCalls int
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		values: make(map[fhe.Handle]*uint256.Int),
		acls:   make(map[fhe.Handle][]string),
	}
}

func (e *FakeEngine) nextHandle() fhe.Handle {
	e.seq++
	var h fhe.Handle
	// tagged first byte keeps fake handles visibly distinct from the zero handle
	h[0] = 0xfa
	binary.BigEndian.PutUint64(h[24:], e.seq)
	return h
}

func (e *FakeEngine) lookup(h fhe.Handle) (*uint256.Int, error) {
	v, ok := e.values[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h)
	}
	return v, nil
}

func (e *FakeEngine) Encrypt(_ context.Context, amount uint64) (fhe.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.EncryptCalls++
	h := e.nextHandle()
	e.values[h] = uint256.NewInt(amount)
	e.acls[h] = []string{}
	return h, nil
}

func (e *FakeEngine) Add(_ context.Context, a, b fhe.Handle) (fhe.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	va, err := e.lookup(a)
	if err != nil {
		return fhe.Handle{}, err
	}
	vb, err := e.lookup(b)
	if err != nil {
		return fhe.Handle{}, err
	}

	h := e.nextHandle()
	e.values[h] = new(uint256.Int).Add(va, vb)
	e.acls[h] = []string{}
	return h, nil
}

// Subtract wraps on underflow, like the homomorphic engine would produce
// garbage. Callers are expected to gate amounts on the plaintext side, and
// invariant checks in tests surface any violation.
func (e *FakeEngine) Subtract(_ context.Context, a, b fhe.Handle) (fhe.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	va, err := e.lookup(a)
	if err != nil {
		return fhe.Handle{}, err
	}
	vb, err := e.lookup(b)
	if err != nil {
		return fhe.Handle{}, err
	}

	h := e.nextHandle()
	e.values[h] = new(uint256.Int).Sub(va, vb)
	e.acls[h] = []string{}
	return h, nil
}

func (e *FakeEngine) IsInitialized(_ context.Context, h fhe.Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h.IsZero() {
		return false, nil
	}
	_, ok := e.values[h]
	return ok, nil
}

func (e *FakeEngine) Allow(_ context.Context, h fhe.Handle, principal string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.lookup(h); err != nil {
		return err
	}
	if principal == "" {
		return fmt.Errorf("empty principal")
	}
	if !slices.Contains(e.acls[h], principal) {
		e.acls[h] = append(e.acls[h], principal)
	}
	return nil
}

func (e *FakeEngine) Decrypt(_ context.Context, h fhe.Handle, principal string) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.lookup(h)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(e.acls[h], principal) {
		return nil, fmt.Errorf("%w: %s on %s", fhe.ErrDecryptDenied, principal, h)
	}
	return v.Clone(), nil
}

// Value returns the plaintext behind a handle without any ACL check. Test
// assertions use it; production code never sees this type.
func (e *FakeEngine) Value(h fhe.Handle) (*uint256.Int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.values[h]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// AllowedPrincipals returns a copy of the ACL for a handle.
func (e *FakeEngine) AllowedPrincipals(h fhe.Handle) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.acls[h])
}
