package registryclient

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
)

type registryClientWithMetrics struct {
	registry RegistryInterface
}

func NewRegistryClientWithMetrics(registry RegistryInterface) *registryClientWithMetrics {
	return &registryClientWithMetrics{registry: registry}
}

func (r *registryClientWithMetrics) Mint(ctx context.Context, account string, amount *uint256.Int) (fhe.Handle, error) {
	return runRegistryClientMethodWithMetrics("Mint", func() (fhe.Handle, error) {
		return r.registry.Mint(ctx, account, amount)
	})
}

func (r *registryClientWithMetrics) ConfidentialTransferFrom(ctx context.Context, from, to string, cipher fhe.Handle) error {
	// this is just auxiliary type in order to call runRegistryClientMethodWithMetrics which always returns 2 values
	type zero struct{}
	_, err := runRegistryClientMethodWithMetrics[zero]("ConfidentialTransferFrom", func() (zero, error) {
		return zero{}, r.registry.ConfidentialTransferFrom(ctx, from, to, cipher)
	})

	return err
}

func (r *registryClientWithMetrics) ConfidentialTransfer(ctx context.Context, to string, cipher fhe.Handle) error {
	type zero struct{}
	_, err := runRegistryClientMethodWithMetrics[zero]("ConfidentialTransfer", func() (zero, error) {
		return zero{}, r.registry.ConfidentialTransfer(ctx, to, cipher)
	})

	return err
}

func (r *registryClientWithMetrics) SetOperator(ctx context.Context, owner, operator string, until time.Time) error {
	type zero struct{}
	_, err := runRegistryClientMethodWithMetrics[zero]("SetOperator", func() (zero, error) {
		return zero{}, r.registry.SetOperator(ctx, owner, operator, until)
	})

	return err
}

func (r *registryClientWithMetrics) IsOperator(ctx context.Context, owner, operator string) (bool, time.Time, error) {
	type operatorStatus struct {
		active bool
		until  time.Time
	}
	status, err := runRegistryClientMethodWithMetrics("IsOperator", func() (operatorStatus, error) {
		active, until, err := r.registry.IsOperator(ctx, owner, operator)
		return operatorStatus{active: active, until: until}, err
	})

	return status.active, status.until, err
}

func (r *registryClientWithMetrics) ConfidentialBalanceOf(ctx context.Context, account string) (fhe.Handle, error) {
	return runRegistryClientMethodWithMetrics("ConfidentialBalanceOf", func() (fhe.Handle, error) {
		return r.registry.ConfidentialBalanceOf(ctx, account)
	})
}

func runRegistryClientMethodWithMetrics[T any](method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	metrics.RecordRegistryClientLatency(duration, method, err != nil)
	return v, err
}
