package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollerRunsImmediatelyAndOnTicks(t *testing.T) {
	var calls atomic.Int64
	p := NewPoller(10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go p.Start(ctx)

	require.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond, "expected the immediate run plus ticks")

	p.Stop()
	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, stopped, calls.Load(), "poll method ran after Stop")
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	var calls atomic.Int64
	p := NewPoller(5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	go p.Start(ctx)

	require.Eventually(t, func() bool {
		return calls.Load() >= 1
	}, time.Second, time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, stopped, calls.Load(), "poll method ran after context cancellation")
}
