package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/cipherstake/staking-ledger/consumer"
	"github.com/cipherstake/staking-ledger/internal/api"
	"github.com/cipherstake/staking-ledger/internal/clients/registryclient"
	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/db"
	dbmodel "github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/observability/metrics"
	"github.com/cipherstake/staking-ledger/internal/observability/tracing"
	"github.com/cipherstake/staking-ledger/internal/queue"
	"github.com/cipherstake/staking-ledger/internal/services"
)

const shutdownTimeout = 10 * time.Second

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the confidential staking ledger server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	err = dbmodel.Setup(ctx, &cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up ledger db model")
	}

	// create new db client
	database, err := db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	var dbClient db.DbInterface = db.NewDbWithMetrics(database)

	// the raw database doubles as the ciphertext store; engine metrics
	// cover the store round trips
	var engine fhe.KeyedEngine
	engine, err = fhe.NewBFVEngine(&cfg.Fhe, database)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating encryption engine")
	}
	engine = fhe.NewEngineWithMetrics(engine)

	var registry registryclient.RegistryInterface = registryclient.NewClient(&cfg.Registry)
	registry = registryclient.NewRegistryClientWithMetrics(registry)

	var sink consumer.EventSink
	if cfg.Queue != nil {
		qm, err := queue.NewQueueManager(cfg.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize queue manager")
		}
		if err := qm.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to declare event queues")
		}
		defer func() {
			if err := qm.Stop(); err != nil {
				log.Error().Err(err).Msg("error while stopping queue manager")
			}
		}()
		sink = qm
	}

	service, err := services.NewService(cfg, dbClient, engine, registry, sink)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating service")
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service.StartStatsPoller(ctx)

	apiServer := api.New(&cfg.Server, service, dbClient)

	var wg conc.WaitGroup
	wg.Go(func() {
		log.Info().Str("address", cfg.Server.Address()).Msg("Starting ledger API server")
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("api server terminated")
			stop()
		}
	})

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error while stopping api server")
	}
	wg.Wait()

	return nil
}
