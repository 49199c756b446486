package services

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/types"
	"github.com/cipherstake/staking-ledger/testutil"
)

func TestNewServiceRequiresCollaborators(t *testing.T) {
	engine := testutil.NewFakeEngine()
	registry := testutil.NewFakeRegistry(engine, testutil.RandomAccountAddress(), testutil.RandomAccountAddress())
	cfg := &config.Config{}
	fakeDB := testutil.NewFakeDB()

	t.Run("nil engine", func(t *testing.T) {
		_, err := NewService(cfg, fakeDB, nil, registry, nil)
		require.ErrorIs(t, err, types.ErrInvalidConstruction)
	})

	t.Run("nil registry", func(t *testing.T) {
		_, err := NewService(cfg, fakeDB, engine, nil, nil)
		require.ErrorIs(t, err, types.ErrInvalidConstruction)
	})

	t.Run("sink is optional", func(t *testing.T) {
		svc, err := NewService(cfg, fakeDB, engine, registry, nil)
		require.NoError(t, err)
		require.NotNil(t, svc)
	})
}

func TestGetStakeUnknownAccount(t *testing.T) {
	lt := newTestLedger(t)
	account := testutil.RandomAccountAddress()

	stake, err := lt.svc.GetStake(t.Context(), account)
	require.NoError(t, err)
	assert.True(t, stake.IsZero())

	cipher, err := lt.svc.GetStakeCipher(t.Context(), account)
	require.NoError(t, err)
	assert.True(t, cipher.IsZero())
}

func TestGetTotalStakedEmptyLedger(t *testing.T) {
	lt := newTestLedger(t)

	total, err := lt.svc.GetTotalStaked(t.Context())
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	cipher, err := lt.svc.GetTotalStakedCipher(t.Context())
	require.NoError(t, err)
	assert.True(t, cipher.IsZero())
}

func TestIsOperator(t *testing.T) {
	lt := newTestLedger(t)
	account := testutil.RandomAccountAddress()

	active, _, err := lt.svc.IsOperator(t.Context(), account)
	require.NoError(t, err)
	assert.False(t, active, "no delegation was ever granted")

	until := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	require.NoError(t, lt.registry.SetOperator(t.Context(), account, lt.ledgerPrincipal, until))

	active, expiry, err := lt.svc.IsOperator(t.Context(), account)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, until, expiry)

	// expiry is the registry's call, made fresh on every query
	lt.registry.Now = func() time.Time { return until.Add(time.Minute) }
	active, expiry, err = lt.svc.IsOperator(t.Context(), account)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, until, expiry)
}

func TestIsOperatorRejectsInvalidAccount(t *testing.T) {
	lt := newTestLedger(t)

	_, _, err := lt.svc.IsOperator(t.Context(), "bogus")
	require.ErrorIs(t, err, types.ErrInvalidAccount)
}

func TestEventsReachSink(t *testing.T) {
	lt := newTestLedger(t)
	account := testutil.RandomAccountAddress()
	lt.fundAccount(t, account, 10_000_000)

	require.NoError(t, lt.svc.Deposit(t.Context(), account, 3_000_000))
	require.NoError(t, lt.svc.Withdraw(t.Context(), account, 1_000_000))

	deposits := lt.sink.DepositEvents()
	require.Len(t, deposits, 1)
	assert.Equal(t, types.EventDepositType.String(), deposits[0].EventType)
	assert.Equal(t, account, deposits[0].Account)
	assert.Equal(t, uint64(3_000_000), deposits[0].Amount)
	assert.NotEmpty(t, deposits[0].StakeCipher)
	assert.NotZero(t, deposits[0].Timestamp)

	withdraws := lt.sink.WithdrawEvents()
	require.Len(t, withdraws, 1)
	assert.Equal(t, uint64(1_000_000), withdraws[0].Amount)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	lt := newTestLedger(t)
	account := testutil.RandomAccountAddress()
	lt.fundAccount(t, account, 5_000_000)

	lt.sink.PushErr = errors.New("broker down")

	require.NoError(t, lt.svc.Deposit(t.Context(), account, 1_000_000))

	// the durable event log is authoritative and already holds the event
	events, err := lt.db.GetEventsByAccount(t.Context(), account, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, lt.sink.DepositEvents())
}

func TestNilSinkSkipsPublishing(t *testing.T) {
	fakeDB := testutil.NewFakeDB()
	engine := testutil.NewFakeEngine()
	ledgerPrincipal := testutil.RandomAccountAddress()
	registryPrincipal := testutil.RandomAccountAddress()
	registry := testutil.NewFakeRegistry(engine, ledgerPrincipal, registryPrincipal)

	cfg := &config.Config{
		Ledger:   config.LedgerConfig{Principal: ledgerPrincipal},
		Registry: config.RegistryConfig{Principal: registryPrincipal},
	}
	svc, err := NewService(cfg, fakeDB, engine, registry, nil)
	require.NoError(t, err)

	account := testutil.RandomAccountAddress()
	registry.SetBalance(account, uint256.NewInt(2_000_000))
	require.NoError(t, registry.SetOperator(t.Context(), account, ledgerPrincipal, time.Now().Add(time.Hour)))

	require.NoError(t, svc.Deposit(t.Context(), account, 1_000_000))
}
