package consumer

import (
	"context"
)

// StakingEvent is the wire form of a ledger event pushed to downstream
// consumers. Amounts are plaintext here; the configured event pipeline is
// trusted the same way the ledger's own bookkeeping is.
type StakingEvent struct {
	EventType   string `json:"event_type"`
	Account     string `json:"account"`
	Amount      uint64 `json:"amount"`
	StakeCipher string `json:"stake_cipher"`
	Timestamp   int64  `json:"timestamp"`
}

type EventSink interface {
	Start() error
	PushDepositEvent(ctx context.Context, ev *StakingEvent) error
	PushWithdrawEvent(ctx context.Context, ev *StakingEvent) error
	Stop() error
}
