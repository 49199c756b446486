package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/db"
	"github.com/cipherstake/staking-ledger/internal/observability/tracing"
	"github.com/cipherstake/staking-ledger/internal/services"
)

// Server exposes the ledger operations over HTTP.
type Server struct {
	cfg     *config.ServerConfig
	service *services.Service
	db      db.DbInterface

	httpServer *http.Server
}

func New(cfg *config.ServerConfig, service *services.Service, database db.DbInterface) *Server {
	srv := &Server{
		cfg:     cfg,
		service: service,
		db:      database,
	}
	srv.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      srv.routes(),
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return srv
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(tracing.Middleware)

	r.Get("/healthcheck", s.healthcheck)
	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/deposit", s.deposit)
		v1.Post("/withdraw", s.withdraw)
		v1.Get("/stake/{account}", s.getStake)
		v1.Get("/stake/{account}/cipher", s.getStakeCipher)
		v1.Get("/total-staked", s.getTotalStaked)
		v1.Get("/total-staked/cipher", s.getTotalStakedCipher)
		v1.Get("/operator/{account}", s.getOperator)
	})

	return r
}

// Handler exposes the configured router, mainly so tests can drive the API
// without binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	log.Info().Msgf("Starting ledger API on %s", s.cfg.Address())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Shutting down ledger API")
	return s.httpServer.Shutdown(ctx)
}
