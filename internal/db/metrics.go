package db

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.run("WithTransaction", func() error {
		return d.db.WithTransaction(ctx, fn)
	})
}

func (d *DbWithMetrics) GetStake(ctx context.Context, account string) (result *model.StakeDocument, err error) {
	//nolint:errcheck
	d.run("GetStake", func() error {
		result, err = d.db.GetStake(ctx, account)
		return err
	})

	return
}

func (d *DbWithMetrics) UpsertStake(ctx context.Context, account string, amount *uint256.Int, cipher fhe.Handle) error {
	return d.run("UpsertStake", func() error {
		return d.db.UpsertStake(ctx, account, amount, cipher)
	})
}

func (d *DbWithMetrics) SumStakes(ctx context.Context) (sum *uint256.Int, count uint64, err error) {
	//nolint:errcheck
	d.run("SumStakes", func() error {
		sum, count, err = d.db.SumStakes(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) GetTotals(ctx context.Context) (result *model.TotalsDocument, err error) {
	//nolint:errcheck
	d.run("GetTotals", func() error {
		result, err = d.db.GetTotals(ctx)
		return err
	})

	return
}

func (d *DbWithMetrics) UpsertTotals(ctx context.Context, total *uint256.Int, cipher fhe.Handle) error {
	return d.run("UpsertTotals", func() error {
		return d.db.UpsertTotals(ctx, total, cipher)
	})
}

func (d *DbWithMetrics) SaveEvent(ctx context.Context, event *model.EventDocument) error {
	return d.run("SaveEvent", func() error {
		return d.db.SaveEvent(ctx, event)
	})
}

func (d *DbWithMetrics) GetEventsByAccount(ctx context.Context, account string, limit int64) (result []model.EventDocument, err error) {
	//nolint:errcheck
	d.run("GetEventsByAccount", func() error {
		result, err = d.db.GetEventsByAccount(ctx, account, limit)
		return err
	})

	return
}

func (d *DbWithMetrics) GetRecentEvents(ctx context.Context, limit int64) (result []model.EventDocument, err error) {
	//nolint:errcheck
	d.run("GetRecentEvents", func() error {
		result, err = d.db.GetRecentEvents(ctx, limit)
		return err
	})

	return
}

func (d *DbWithMetrics) SaveCipher(ctx context.Context, rec *fhe.CipherRecord) error {
	return d.run("SaveCipher", func() error {
		return d.db.SaveCipher(ctx, rec)
	})
}

func (d *DbWithMetrics) GetCipher(ctx context.Context, h fhe.Handle) (result *fhe.CipherRecord, err error) {
	//nolint:errcheck
	d.run("GetCipher", func() error {
		result, err = d.db.GetCipher(ctx, h)
		return err
	})

	return
}

func (d *DbWithMetrics) GrantDecrypt(ctx context.Context, h fhe.Handle, principal string) error {
	return d.run("GrantDecrypt", func() error {
		return d.db.GrantDecrypt(ctx, h, principal)
	})
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
