package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
	"github.com/cipherstake/staking-ledger/internal/services"
	"github.com/cipherstake/staking-ledger/testutil"
)

func TestMain(m *testing.M) {
	metrics.Init(9995)
	os.Exit(m.Run())
}

type testAPI struct {
	server   *Server
	registry *testutil.FakeRegistry
	engine   *testutil.FakeEngine

	ledgerPrincipal string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	fakeDB := testutil.NewFakeDB()
	engine := testutil.NewFakeEngine()
	ledgerPrincipal := testutil.RandomAccountAddress()
	registryPrincipal := testutil.RandomAccountAddress()
	registry := testutil.NewFakeRegistry(engine, ledgerPrincipal, registryPrincipal)

	cfg := &config.Config{
		Ledger:   config.LedgerConfig{Principal: ledgerPrincipal},
		Registry: config.RegistryConfig{Principal: registryPrincipal},
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}

	svc, err := services.NewService(cfg, fakeDB, engine, registry, nil)
	require.NoError(t, err)

	return &testAPI{
		server:          New(&cfg.Server, svc, fakeDB),
		registry:        registry,
		engine:          engine,
		ledgerPrincipal: ledgerPrincipal,
	}
}

func (ta *testAPI) fundAccount(t *testing.T, account string, balance uint64) {
	t.Helper()

	ta.registry.SetBalance(account, uint256.NewInt(balance))
	err := ta.registry.SetOperator(t.Context(), account, ta.ledgerPrincipal, time.Now().Add(time.Hour))
	require.NoError(t, err)
}

func (ta *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reqBody)
	rec := httptest.NewRecorder()
	ta.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestDepositEndpoint(t *testing.T) {
	ta := newTestAPI(t)
	account := testutil.RandomAccountAddress()
	ta.fundAccount(t, account, 10_000_000)

	rec := ta.do(t, http.MethodPost, "/v1/deposit", mutationRequest{Account: account, Amount: 5_000_000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "committed", decodeBody[statusResponse](t, rec).Status)

	rec = ta.do(t, http.MethodGet, "/v1/stake/"+account, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5000000", decodeBody[stakeResponse](t, rec).Stake)

	rec = ta.do(t, http.MethodGet, "/v1/total-staked", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5000000", decodeBody[totalStakedResponse](t, rec).TotalStaked)
}

func TestDepositEndpointValidation(t *testing.T) {
	ta := newTestAPI(t)
	account := testutil.RandomAccountAddress()

	t.Run("malformed payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/deposit", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		ta.server.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zero amount", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, "/v1/deposit", mutationRequest{Account: account, Amount: 0})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "positive")
	})

	t.Run("invalid account", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, "/v1/deposit", mutationRequest{Account: "nope", Amount: 10})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing delegation conflicts", func(t *testing.T) {
		ta.registry.SetBalance(account, uint256.NewInt(1_000_000))
		rec := ta.do(t, http.MethodPost, "/v1/deposit", mutationRequest{Account: account, Amount: 10})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "delegation_missing")
	})
}

func TestWithdrawEndpoint(t *testing.T) {
	ta := newTestAPI(t)
	account := testutil.RandomAccountAddress()
	ta.fundAccount(t, account, 10_000_000)

	rec := ta.do(t, http.MethodPost, "/v1/deposit", mutationRequest{Account: account, Amount: 5_000_000})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ta.do(t, http.MethodPost, "/v1/withdraw", mutationRequest{Account: account, Amount: 2_000_000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ta.do(t, http.MethodGet, "/v1/stake/"+account, nil)
	assert.Equal(t, "3000000", decodeBody[stakeResponse](t, rec).Stake)

	t.Run("insufficient stake conflicts", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, "/v1/withdraw", mutationRequest{Account: account, Amount: 4_000_000})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "exceeds current stake")
	})
}

func TestStakeCipherEndpoint(t *testing.T) {
	ta := newTestAPI(t)
	account := testutil.RandomAccountAddress()

	t.Run("uninitialized account", func(t *testing.T) {
		rec := ta.do(t, http.MethodGet, fmt.Sprintf("/v1/stake/%s/cipher", account), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[cipherResponse](t, rec)
		assert.False(t, resp.Initialized)
	})

	t.Run("after a deposit", func(t *testing.T) {
		ta.fundAccount(t, account, 2_000_000)
		rec := ta.do(t, http.MethodPost, "/v1/deposit", mutationRequest{Account: account, Amount: 1_000_000})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ta.do(t, http.MethodGet, fmt.Sprintf("/v1/stake/%s/cipher", account), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[cipherResponse](t, rec)
		require.True(t, resp.Initialized)

		// the handle is real: it decrypts for the ledger principal
		h, err := fhe.HandleFromHex(resp.Cipher)
		require.NoError(t, err)
		v, err := ta.engine.Decrypt(t.Context(), h, ta.ledgerPrincipal)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000), v.Uint64())
	})
}

func TestTotalStakedCipherEndpoint(t *testing.T) {
	ta := newTestAPI(t)

	rec := ta.do(t, http.MethodGet, "/v1/total-staked/cipher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[cipherResponse](t, rec).Initialized)
}

func TestOperatorEndpoint(t *testing.T) {
	ta := newTestAPI(t)
	account := testutil.RandomAccountAddress()

	rec := ta.do(t, http.MethodGet, "/v1/operator/"+account, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[operatorStatusResponse](t, rec)
	assert.False(t, resp.Active)
	assert.Zero(t, resp.ExpiresAt)

	until := time.Now().Add(time.Hour)
	require.NoError(t, ta.registry.SetOperator(t.Context(), account, ta.ledgerPrincipal, until))

	rec = ta.do(t, http.MethodGet, "/v1/operator/"+account, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[operatorStatusResponse](t, rec)
	assert.True(t, resp.Active)
	assert.Equal(t, until.Unix(), resp.ExpiresAt)
}

func TestHealthcheck(t *testing.T) {
	ta := newTestAPI(t)

	rec := ta.do(t, http.MethodGet, "/healthcheck", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[statusResponse](t, rec).Status)
}
