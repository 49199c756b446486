package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
	"github.com/cipherstake/staking-ledger/internal/utils/poller"
)

// StartStatsPoller starts the periodic consistency sweep
func (s *Service) StartStatsPoller(ctx context.Context) {
	statsPoller := poller.NewPoller(
		s.cfg.Poller.StatsPollingInterval,
		metrics.RecordPollerDuration("stats", s.checkLedgerConsistency),
	)
	go statsPoller.Start(ctx)
}

// checkLedgerConsistency recomputes the sum of all stakes and compares it
// against the stored global total. The sweep is purely observational: it
// refreshes the exported gauges and raises a divergence counter on mismatch,
// but never blocks or repairs the ledger.
func (s *Service) checkLedgerConsistency(ctx context.Context) error {
	log := log.Ctx(ctx)

	startTime := time.Now()
	sum, accounts, err := s.db.SumStakes(ctx)
	aggregationDuration := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("failed to sum stakes: %w", err)
	}

	log.Debug().
		Dur("aggregation_duration_ms", aggregationDuration).
		Uint64("staked_accounts", accounts).
		Msg("Stake sum aggregation completed")

	totals, err := s.db.GetTotals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load global totals: %w", err)
	}
	total, err := totals.TotalUint256()
	if err != nil {
		return fmt.Errorf("failed to parse global total: %w", err)
	}

	metrics.RecordLedgerTotalStaked(total)
	metrics.RecordLedgerStakedAccounts(accounts)

	if !sum.Eq(total) {
		metrics.IncLedgerTotalsDivergence()
		log.Error().
			Str("stake_sum", sum.Dec()).
			Str("total_staked", total.Dec()).
			Msg("Global total diverged from the sum of stakes")
		return nil
	}

	log.Debug().
		Str("total_staked", total.Dec()).
		Msg("Ledger totals consistent")

	return nil
}
