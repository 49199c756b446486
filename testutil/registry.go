package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/clients/registryclient"
	"github.com/cipherstake/staking-ledger/internal/fhe"
)

// FakeRegistry is an in-memory confidential asset registry. It enforces the
// real rules: transfers settle only when the registry principal can decrypt
// the cipher, the owner has an unexpired delegation to the ledger, and the
// confidential balance covers the amount. Violations come back as
// *registryclient.TransferError, so failure-path tests exercise the same
// errors production would see.
type FakeRegistry struct {
	mu                sync.Mutex
	engine            fhe.KeyedEngine
	ledgerPrincipal   string
	registryPrincipal string
	balances          map[string]*uint256.Int
	delegations       map[string]map[string]time.Time

	// Now is injectable so delegation expiry can be tested without sleeping.
	Now func() time.Time

	// TransferFromErr and TransferErr force failures independent of registry
	// rules, e.g. to simulate an unreachable registry.
	TransferFromErr error
	TransferErr     error

	TransferFromCalls int
	TransferCalls     int
}

// NewFakeRegistry builds a registry over engine, which settles transfers by
// decrypting as registryPrincipal. Any keyed engine works, including the real
// lattice one.
func NewFakeRegistry(engine fhe.KeyedEngine, ledgerPrincipal, registryPrincipal string) *FakeRegistry {
	return &FakeRegistry{
		engine:            engine,
		ledgerPrincipal:   ledgerPrincipal,
		registryPrincipal: registryPrincipal,
		balances:          make(map[string]*uint256.Int),
		delegations:       make(map[string]map[string]time.Time),
		Now:               time.Now,
	}
}

func (r *FakeRegistry) balance(account string) *uint256.Int {
	b, ok := r.balances[account]
	if !ok {
		b = uint256.NewInt(0)
		r.balances[account] = b
	}
	return b
}

// SetBalance seeds an account's confidential balance.
func (r *FakeRegistry) SetBalance(account string, amount *uint256.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.balances[account] = amount.Clone()
}

// Balance returns a copy of an account's confidential balance.
func (r *FakeRegistry) Balance(account string) *uint256.Int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.balance(account).Clone()
}

func (r *FakeRegistry) Mint(ctx context.Context, account string, amount *uint256.Int) (fhe.Handle, error) {
	r.mu.Lock()
	balance := r.balance(account)
	balance.Add(balance, amount)
	newBalance := balance.Clone()
	r.mu.Unlock()

	cipher, err := r.engine.Encrypt(ctx, newBalance.Uint64())
	if err != nil {
		return fhe.Handle{}, err
	}
	if err := r.engine.Allow(ctx, cipher, r.registryPrincipal); err != nil {
		return fhe.Handle{}, err
	}
	return cipher, nil
}

func (r *FakeRegistry) ConfidentialTransferFrom(ctx context.Context, from, to string, cipher fhe.Handle) error {
	r.mu.Lock()
	r.TransferFromCalls++
	forced := r.TransferFromErr
	r.mu.Unlock()
	if forced != nil {
		return forced
	}

	// the registry only settles amounts it was allowed to read
	amount, err := r.engine.Decrypt(ctx, cipher, r.registryPrincipal)
	if err != nil {
		return fmt.Errorf("registry cannot read transfer cipher: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.delegations[from][r.ledgerPrincipal]
	if !ok || !r.Now().Before(until) {
		return &registryclient.TransferError{Reason: registryclient.ReasonDelegationMissing}
	}

	return r.move(from, to, amount)
}

func (r *FakeRegistry) ConfidentialTransfer(ctx context.Context, to string, cipher fhe.Handle) error {
	r.mu.Lock()
	r.TransferCalls++
	forced := r.TransferErr
	r.mu.Unlock()
	if forced != nil {
		return forced
	}

	amount, err := r.engine.Decrypt(ctx, cipher, r.registryPrincipal)
	if err != nil {
		return fmt.Errorf("registry cannot read transfer cipher: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.move(r.ledgerPrincipal, to, amount)
}

func (r *FakeRegistry) move(from, to string, amount *uint256.Int) error {
	fromBalance := r.balance(from)
	if fromBalance.Lt(amount) {
		return &registryclient.TransferError{Reason: registryclient.ReasonInsufficientBalance}
	}

	fromBalance.Sub(fromBalance, amount)
	toBalance := r.balance(to)
	toBalance.Add(toBalance, amount)
	return nil
}

func (r *FakeRegistry) SetOperator(_ context.Context, owner, operator string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.delegations[owner] == nil {
		r.delegations[owner] = make(map[string]time.Time)
	}
	r.delegations[owner][operator] = until
	return nil
}

func (r *FakeRegistry) IsOperator(_ context.Context, owner, operator string) (bool, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.delegations[owner][operator]
	if !ok {
		return false, time.Time{}, nil
	}
	return r.Now().Before(until), until, nil
}

func (r *FakeRegistry) ConfidentialBalanceOf(ctx context.Context, account string) (fhe.Handle, error) {
	cipher, err := r.engine.Encrypt(ctx, r.Balance(account).Uint64())
	if err != nil {
		return fhe.Handle{}, err
	}
	if err := r.engine.Allow(ctx, cipher, r.registryPrincipal); err != nil {
		return fhe.Handle{}, err
	}
	return cipher, nil
}
