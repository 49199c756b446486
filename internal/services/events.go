package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/cipherstake/staking-ledger/consumer"
	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
	"github.com/cipherstake/staking-ledger/internal/types"
)

// publishEvent pushes a committed ledger event to the configured sink. The
// event log written inside the operation's transaction is authoritative;
// publish failures are counted and logged, never surfaced to the caller.
func (s *Service) publishEvent(ctx context.Context, event *model.EventDocument, amount uint64) {
	if s.sink == nil {
		return
	}

	ev := &consumer.StakingEvent{
		EventType:   event.Type,
		Account:     event.Account,
		Amount:      amount,
		StakeCipher: event.StakeCipher,
		Timestamp:   event.Timestamp,
	}

	var err error
	switch types.EventType(event.Type) {
	case types.EventDepositType:
		err = s.sink.PushDepositEvent(ctx, ev)
	case types.EventWithdrawType:
		err = s.sink.PushWithdrawEvent(ctx, ev)
	}
	if err != nil {
		metrics.RecordQueueSendError()
		log.Ctx(ctx).Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("Failed to publish ledger event")
	}
}
