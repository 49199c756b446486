package testutil

import (
	"context"
	"sync"

	"github.com/cipherstake/staking-ledger/consumer"
)

// FakeSink records the events the service publishes. PushErr forces publish
// failures so tests can check they never fail the ledger operation itself.
type FakeSink struct {
	mu        sync.Mutex
	deposits  []consumer.StakingEvent
	withdraws []consumer.StakingEvent

	PushErr error
}

func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

func (s *FakeSink) Start() error {
	return nil
}

func (s *FakeSink) PushDepositEvent(_ context.Context, ev *consumer.StakingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PushErr != nil {
		return s.PushErr
	}
	s.deposits = append(s.deposits, *ev)
	return nil
}

func (s *FakeSink) PushWithdrawEvent(_ context.Context, ev *consumer.StakingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PushErr != nil {
		return s.PushErr
	}
	s.withdraws = append(s.withdraws, *ev)
	return nil
}

func (s *FakeSink) Stop() error {
	return nil
}

func (s *FakeSink) DepositEvents() []consumer.StakingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]consumer.StakingEvent(nil), s.deposits...)
}

func (s *FakeSink) WithdrawEvents() []consumer.StakingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]consumer.StakingEvent(nil), s.withdraws...)
}
