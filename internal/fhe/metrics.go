package fhe

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
)

type engineWithMetrics struct {
	eng KeyedEngine
}

func NewEngineWithMetrics(eng KeyedEngine) KeyedEngine {
	return &engineWithMetrics{eng: eng}
}

func (e *engineWithMetrics) Encrypt(ctx context.Context, amount uint64) (Handle, error) {
	return runEngineMethodWithMetrics("Encrypt", func() (Handle, error) {
		return e.eng.Encrypt(ctx, amount)
	})
}

func (e *engineWithMetrics) Add(ctx context.Context, a, b Handle) (Handle, error) {
	return runEngineMethodWithMetrics("Add", func() (Handle, error) {
		return e.eng.Add(ctx, a, b)
	})
}

func (e *engineWithMetrics) Subtract(ctx context.Context, a, b Handle) (Handle, error) {
	return runEngineMethodWithMetrics("Subtract", func() (Handle, error) {
		return e.eng.Subtract(ctx, a, b)
	})
}

func (e *engineWithMetrics) IsInitialized(ctx context.Context, h Handle) (bool, error) {
	return runEngineMethodWithMetrics("IsInitialized", func() (bool, error) {
		return e.eng.IsInitialized(ctx, h)
	})
}

func (e *engineWithMetrics) Allow(ctx context.Context, h Handle, principal string) error {
	type zero struct{}
	_, err := runEngineMethodWithMetrics("Allow", func() (zero, error) {
		return zero{}, e.eng.Allow(ctx, h, principal)
	})

	return err
}

func (e *engineWithMetrics) Decrypt(ctx context.Context, h Handle, principal string) (*uint256.Int, error) {
	return runEngineMethodWithMetrics("Decrypt", func() (*uint256.Int, error) {
		return e.eng.Decrypt(ctx, h, principal)
	})
}

func runEngineMethodWithMetrics[T any](method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	metrics.RecordFheEngineLatency(duration, method, err != nil)
	return v, err
}
