//go:build integration

package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cipherstake/staking-ledger/internal/api"
	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/db"
	dbmodel "github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/services"
	"github.com/cipherstake/staking-ledger/pkg"
	"github.com/cipherstake/staking-ledger/testutil"
)

const (
	mongoDatabase = "e2e-ledger"
	mongoVersion  = "7.0.5"
)

var (
	eventuallyWaitTimeOut = 40 * time.Second
	eventuallyPollTime    = 1 * time.Second
)

// TestManager wires a full ledger out of real components: mongo in a
// container, the BFV engine on a throwaway keyset, and the HTTP API. Only the
// asset registry is faked; everything else is what production runs.
type TestManager struct {
	Config    *config.Config
	Db        *db.Database
	Engine    fhe.KeyedEngine
	Registry  *testutil.FakeRegistry
	Sink      *testutil.FakeSink
	Service   *services.Service
	ApiServer *httptest.Server
}

func StartManager(t *testing.T) *TestManager {
	ctx := t.Context()

	dbCfg, cleanup, err := setupMongoContainer()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ledgerPrincipal := testutil.RandomAccountAddress()
	registryPrincipal := testutil.RandomAccountAddress()

	cfg := &config.Config{
		Ledger:   config.LedgerConfig{Principal: ledgerPrincipal},
		Db:       *dbCfg,
		Fhe:      config.FheConfig{KeyFile: filepath.Join(t.TempDir(), "bfv-keys.bin")},
		Registry: config.RegistryConfig{Principal: registryPrincipal},
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			WriteTimeout: 30 * time.Second,
			ReadTimeout:  30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Poller: config.PollerConfig{StatsPollingInterval: time.Second},
	}

	require.NoError(t, dbmodel.Setup(ctx, &cfg.Db))

	database, err := db.New(ctx, cfg.Db)
	require.NoError(t, err)
	dbClient := db.NewDbWithMetrics(database)

	var engine fhe.KeyedEngine
	engine, err = fhe.NewBFVEngine(&cfg.Fhe, database)
	require.NoError(t, err)
	engine = fhe.NewEngineWithMetrics(engine)

	// the fake registry settles transfers with real lattice decrypts here
	registry := testutil.NewFakeRegistry(engine, ledgerPrincipal, registryPrincipal)
	sink := testutil.NewFakeSink()

	service, err := services.NewService(cfg, dbClient, engine, registry, sink)
	require.NoError(t, err)

	service.StartStatsPoller(ctx)

	apiServer := httptest.NewServer(api.New(&cfg.Server, service, dbClient).Handler())
	t.Cleanup(apiServer.Close)

	return &TestManager{
		Config:    cfg,
		Db:        database,
		Engine:    engine,
		Registry:  registry,
		Sink:      sink,
		Service:   service,
		ApiServer: apiServer,
	}
}

// setupMongoContainer runs mongodb as a single node replica set: ledger
// writes use multi-document transactions, which mongo supports only on
// replica sets. E2E_MONGO_ADDRESS skips the container and points the suite
// at an externally managed instance instead.
func setupMongoContainer() (*config.DbConfig, func(), error) {
	if address := pkg.Getenv("E2E_MONGO_ADDRESS", ""); address != "" {
		return &config.DbConfig{DbName: mongoDatabase, Address: address}, func() {}, nil
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, err
	}

	randomString, err := testutil.RandomAlphaNum(3)
	if err != nil {
		return nil, nil, err
	}

	containerName := "mongo-e2e-ledger-" + randomString
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       containerName,
		Repository: "mongo",
		Tag:        mongoVersion,
		Cmd:        []string{"--replSet", "rs0"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		err := pool.Purge(resource)
		if err != nil {
			log.Fatalf("failed to purge resource: %v", err)
		}
	}

	hostPort := resource.GetPort("27017/tcp")
	address := fmt.Sprintf("mongodb://localhost:%s/?directConnection=true", hostPort)

	err = pool.Retry(func() error {
		exitCode, execErr := resource.Exec(
			[]string{"mongosh", "--quiet", "--eval", "rs.initiate()"},
			dockertest.ExecOptions{},
		)
		if execErr != nil {
			return execErr
		}
		if exitCode != 0 {
			return fmt.Errorf("rs.initiate exited with code %d", exitCode)
		}
		return nil
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	err = pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, connErr := mongo.Connect(ctx, options.Client().ApplyURI(address))
		if connErr != nil {
			return connErr
		}
		defer client.Disconnect(ctx)

		_, probeErr := client.Database(mongoDatabase).
			Collection("readiness").
			InsertOne(ctx, bson.M{"ping": 1})
		return probeErr
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &config.DbConfig{
		DbName:  mongoDatabase,
		Address: address,
	}, cleanup, nil
}

func (tm *TestManager) FundAccount(t *testing.T, account string, balance uint64) {
	t.Helper()

	tm.Registry.SetBalance(account, uint256.NewInt(balance))
	err := tm.Registry.SetOperator(t.Context(), account, tm.Config.Ledger.Principal, time.Now().Add(time.Hour))
	require.NoError(t, err)
}

// SubmitDeposit posts a deposit through the HTTP API and returns the status
// code and decoded body.
func (tm *TestManager) SubmitDeposit(t *testing.T, account string, amount uint64) (int, map[string]any) {
	t.Helper()
	return tm.postMutation(t, "/v1/deposit", account, amount)
}

func (tm *TestManager) SubmitWithdraw(t *testing.T, account string, amount uint64) (int, map[string]any) {
	t.Helper()
	return tm.postMutation(t, "/v1/withdraw", account, amount)
}

func (tm *TestManager) postMutation(t *testing.T, path, account string, amount uint64) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"account": account, "amount": amount})
	require.NoError(t, err)

	resp, err := http.Post(tm.ApiServer.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// FetchStake reads the plaintext stake through the HTTP API.
func (tm *TestManager) FetchStake(t *testing.T, account string) string {
	t.Helper()

	var body struct {
		Stake string `json:"stake"`
	}
	tm.get(t, "/v1/stake/"+account, &body)
	return body.Stake
}

func (tm *TestManager) FetchTotalStaked(t *testing.T) string {
	t.Helper()

	var body struct {
		TotalStaked string `json:"total_staked"`
	}
	tm.get(t, "/v1/total-staked", &body)
	return body.TotalStaked
}

func (tm *TestManager) get(t *testing.T, path string, out any) {
	t.Helper()

	resp, err := http.Get(tm.ApiServer.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// DecryptStoredStake opens the stored stake ciphertext as the ledger
// principal. This is the real lattice decrypt, not a fake.
func (tm *TestManager) DecryptStoredStake(t *testing.T, account string) *uint256.Int {
	t.Helper()

	stake, err := tm.Db.GetStake(t.Context(), account)
	require.NoError(t, err)

	handle, err := stake.CipherHandle()
	require.NoError(t, err)

	amount, err := tm.Engine.Decrypt(t.Context(), handle, tm.Config.Ledger.Principal)
	require.NoError(t, err)
	return amount
}

func (tm *TestManager) DecryptStoredTotal(t *testing.T) *uint256.Int {
	t.Helper()

	totals, err := tm.Db.GetTotals(t.Context())
	require.NoError(t, err)

	handle, err := totals.CipherHandle()
	require.NoError(t, err)

	amount, err := tm.Engine.Decrypt(t.Context(), handle, tm.Config.Ledger.Principal)
	require.NoError(t, err)
	return amount
}
