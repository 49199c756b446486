package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/db"
	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/fhe"
)

// FakeDB implements db.DbInterface in memory. WithTransaction snapshots the
// whole state up front and restores it when the callback fails, mirroring the
// all-or-nothing durability of the mongo transaction. Reads issued while a
// transaction is in flight see its uncommitted writes; the service serializes
// mutations, so tests never hit that window.
type FakeDB struct {
	mu      sync.Mutex
	stakes  map[string]*model.StakeDocument
	totals  *model.TotalsDocument
	events  []model.EventDocument
	ciphers map[fhe.Handle]*fhe.CipherRecord
}

func NewFakeDB() *FakeDB {
	return &FakeDB{
		stakes:  make(map[string]*model.StakeDocument),
		ciphers: make(map[fhe.Handle]*fhe.CipherRecord),
	}
}

type fakeDBState struct {
	stakes  map[string]*model.StakeDocument
	totals  *model.TotalsDocument
	events  []model.EventDocument
	ciphers map[fhe.Handle]*fhe.CipherRecord
}

func (f *FakeDB) snapshot() fakeDBState {
	state := fakeDBState{
		stakes:  make(map[string]*model.StakeDocument, len(f.stakes)),
		events:  slices.Clone(f.events),
		ciphers: make(map[fhe.Handle]*fhe.CipherRecord, len(f.ciphers)),
	}
	for account, doc := range f.stakes {
		cp := *doc
		state.stakes[account] = &cp
	}
	if f.totals != nil {
		cp := *f.totals
		state.totals = &cp
	}
	for h, rec := range f.ciphers {
		state.ciphers[h] = &fhe.CipherRecord{
			Handle: rec.Handle,
			Data:   slices.Clone(rec.Data),
			Depth:  rec.Depth,
			ACL:    slices.Clone(rec.ACL),
		}
	}
	return state
}

func (f *FakeDB) restore(state fakeDBState) {
	f.stakes = state.stakes
	f.totals = state.totals
	f.events = state.events
	f.ciphers = state.ciphers
}

func (f *FakeDB) Ping(context.Context) error {
	return nil
}

func (f *FakeDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	state := f.snapshot()
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.restore(state)
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *FakeDB) GetStake(_ context.Context, account string) (*model.StakeDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := f.stakes[account]
	if !ok {
		return nil, &db.NotFoundError{
			Key:     account,
			Message: "no stake record for account",
		}
	}
	cp := *doc
	return &cp, nil
}

func (f *FakeDB) UpsertStake(_ context.Context, account string, amount *uint256.Int, cipher fhe.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stakes[account] = &model.StakeDocument{
		Account:     account,
		Amount:      amount.Dec(),
		StakeCipher: cipher.Hex(),
		UpdatedAt:   time.Now().Unix(),
	}
	return nil
}

func (f *FakeDB) SumStakes(context.Context) (*uint256.Int, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sum := uint256.NewInt(0)
	var count uint64
	for _, doc := range f.stakes {
		amount, err := doc.AmountUint256()
		if err != nil {
			return nil, 0, err
		}
		var overflow bool
		sum, overflow = new(uint256.Int).AddOverflow(sum, amount)
		if overflow {
			return nil, 0, fmt.Errorf("stake sum overflows uint256")
		}
		count++
	}
	return sum, count, nil
}

func (f *FakeDB) GetTotals(context.Context) (*model.TotalsDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.totals == nil {
		return &model.TotalsDocument{
			ID:    model.GlobalTotalsID,
			Total: "0",
		}, nil
	}
	cp := *f.totals
	return &cp, nil
}

func (f *FakeDB) UpsertTotals(_ context.Context, total *uint256.Int, cipher fhe.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.totals = &model.TotalsDocument{
		ID:          model.GlobalTotalsID,
		Total:       total.Dec(),
		TotalCipher: cipher.Hex(),
		UpdatedAt:   time.Now().Unix(),
	}
	return nil
}

func (f *FakeDB) SaveEvent(_ context.Context, event *model.EventDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.events {
		if existing.ID == event.ID {
			return &db.DuplicateKeyError{
				Key:     event.ID,
				Message: "event already recorded",
			}
		}
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *FakeDB) GetEventsByAccount(_ context.Context, account string, limit int64) ([]model.EventDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []model.EventDocument
	// newest first, like the timestamp-descending index
	for i := len(f.events) - 1; i >= 0 && int64(len(events)) < limit; i-- {
		if f.events[i].Account == account {
			events = append(events, f.events[i])
		}
	}
	return events, nil
}

func (f *FakeDB) GetRecentEvents(_ context.Context, limit int64) ([]model.EventDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []model.EventDocument
	for i := len(f.events) - 1; i >= 0 && int64(len(events)) < limit; i-- {
		events = append(events, f.events[i])
	}
	return events, nil
}

func (f *FakeDB) SaveCipher(_ context.Context, rec *fhe.CipherRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ciphers[rec.Handle] = &fhe.CipherRecord{
		Handle: rec.Handle,
		Data:   slices.Clone(rec.Data),
		Depth:  rec.Depth,
		ACL:    slices.Clone(rec.ACL),
	}
	return nil
}

func (f *FakeDB) GetCipher(_ context.Context, h fhe.Handle) (*fhe.CipherRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.ciphers[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h)
	}
	return &fhe.CipherRecord{
		Handle: rec.Handle,
		Data:   slices.Clone(rec.Data),
		Depth:  rec.Depth,
		ACL:    slices.Clone(rec.ACL),
	}, nil
}

func (f *FakeDB) GrantDecrypt(_ context.Context, h fhe.Handle, principal string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.ciphers[h]
	if !ok {
		return fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h)
	}
	if !slices.Contains(rec.ACL, principal) {
		rec.ACL = append(rec.ACL, principal)
	}
	return nil
}

// StakeCount reports how many accounts hold a stake record.
func (f *FakeDB) StakeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.stakes)
}
