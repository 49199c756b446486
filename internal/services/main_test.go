package services

import (
	"os"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
	"github.com/cipherstake/staking-ledger/testutil"
)

func TestMain(m *testing.M) {
	// ledger operations record durations; metrics must be registered once
	metrics.Init(9996)
	os.Exit(m.Run())
}

// testLedger wires a Service to the in-memory fakes. The engine shadows every
// ciphertext with its plaintext, so tests can decrypt accumulators and check
// them against the plaintext bookkeeping directly.
type testLedger struct {
	svc      *Service
	db       *testutil.FakeDB
	engine   *testutil.FakeEngine
	registry *testutil.FakeRegistry
	sink     *testutil.FakeSink

	ledgerPrincipal   string
	registryPrincipal string
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()

	fakeDB := testutil.NewFakeDB()
	engine := testutil.NewFakeEngine()
	ledgerPrincipal := testutil.RandomAccountAddress()
	registryPrincipal := testutil.RandomAccountAddress()
	registry := testutil.NewFakeRegistry(engine, ledgerPrincipal, registryPrincipal)
	sink := testutil.NewFakeSink()

	cfg := &config.Config{
		Ledger:   config.LedgerConfig{Principal: ledgerPrincipal},
		Registry: config.RegistryConfig{Principal: registryPrincipal},
	}

	svc, err := NewService(cfg, fakeDB, engine, registry, sink)
	require.NoError(t, err)

	return &testLedger{
		svc:               svc,
		db:                fakeDB,
		engine:            engine,
		registry:          registry,
		sink:              sink,
		ledgerPrincipal:   ledgerPrincipal,
		registryPrincipal: registryPrincipal,
	}
}

// fundAccount seeds a confidential balance and a live delegation toward the
// ledger, the two registry-side preconditions of a deposit.
func (lt *testLedger) fundAccount(t *testing.T, account string, balance uint64) {
	t.Helper()

	lt.registry.SetBalance(account, uint256.NewInt(balance))
	err := lt.registry.SetOperator(t.Context(), account, lt.ledgerPrincipal, time.Now().Add(time.Hour))
	require.NoError(t, err)
}

// decrypt reads a handle through the gated path as the ledger principal,
// which is granted on every accumulator the service writes.
func (lt *testLedger) decrypt(t *testing.T, h fhe.Handle) uint64 {
	t.Helper()

	v, err := lt.engine.Decrypt(t.Context(), h, lt.ledgerPrincipal)
	require.NoError(t, err)
	return v.Uint64()
}

// snapshot captures everything an aborted operation must leave untouched.
type ledgerSnapshot struct {
	stake          *uint256.Int
	stakeCipher    fhe.Handle
	total          *uint256.Int
	totalCipher    fhe.Handle
	accountBalance *uint256.Int
	ledgerBalance  *uint256.Int
	eventCount     int
}

func (lt *testLedger) snapshot(t *testing.T, account string) ledgerSnapshot {
	t.Helper()

	stake, err := lt.svc.GetStake(t.Context(), account)
	require.NoError(t, err)
	stakeCipher, err := lt.svc.GetStakeCipher(t.Context(), account)
	require.NoError(t, err)
	total, err := lt.svc.GetTotalStaked(t.Context())
	require.NoError(t, err)
	totalCipher, err := lt.svc.GetTotalStakedCipher(t.Context())
	require.NoError(t, err)
	events, err := lt.db.GetRecentEvents(t.Context(), 1000)
	require.NoError(t, err)

	return ledgerSnapshot{
		stake:          stake,
		stakeCipher:    stakeCipher,
		total:          total,
		totalCipher:    totalCipher,
		accountBalance: lt.registry.Balance(account),
		ledgerBalance:  lt.registry.Balance(lt.ledgerPrincipal),
		eventCount:     len(events),
	}
}

func (lt *testLedger) requireUnchanged(t *testing.T, account string, before ledgerSnapshot) {
	t.Helper()

	after := lt.snapshot(t, account)
	require.Equal(t, before.stake, after.stake, "plaintext stake changed")
	require.Equal(t, before.stakeCipher, after.stakeCipher, "stake cipher handle changed")
	require.Equal(t, before.total, after.total, "plaintext total changed")
	require.Equal(t, before.totalCipher, after.totalCipher, "total cipher handle changed")
	require.Equal(t, before.accountBalance, after.accountBalance, "account confidential balance changed")
	require.Equal(t, before.ledgerBalance, after.ledgerBalance, "ledger confidential balance changed")
	require.Equal(t, before.eventCount, after.eventCount, "event log grew")
}
