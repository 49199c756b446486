package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cipherstake/staking-ledger/internal/clients/client"
	"github.com/cipherstake/staking-ledger/internal/clients/registryclient"
	"github.com/cipherstake/staking-ledger/internal/types"
)

type mutationRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type stakeResponse struct {
	Stake string `json:"stake"`
}

type totalStakedResponse struct {
	TotalStaked string `json:"total_staked"`
}

type cipherResponse struct {
	Cipher      string `json:"cipher"`
	Initialized bool   `json:"initialized"`
}

type operatorStatusResponse struct {
	Active    bool  `json:"active"`
	ExpiresAt int64 `json:"expires_at"`
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}

	if err := s.service.Deposit(r.Context(), req.Account, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "committed"})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}

	if err := s.service.Withdraw(r.Context(), req.Account, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "committed"})
}

func (s *Server) getStake(w http.ResponseWriter, r *http.Request) {
	stake, err := s.service.GetStake(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stakeResponse{Stake: stake.Dec()})
}

func (s *Server) getStakeCipher(w http.ResponseWriter, r *http.Request) {
	cipher, err := s.service.GetStakeCipher(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cipherResponse{
		Cipher:      cipher.Hex(),
		Initialized: !cipher.IsZero(),
	})
}

func (s *Server) getTotalStaked(w http.ResponseWriter, r *http.Request) {
	total, err := s.service.GetTotalStaked(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, totalStakedResponse{TotalStaked: total.Dec()})
}

func (s *Server) getTotalStakedCipher(w http.ResponseWriter, r *http.Request) {
	cipher, err := s.service.GetTotalStakedCipher(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cipherResponse{
		Cipher:      cipher.Hex(),
		Initialized: !cipher.IsZero(),
	})
}

func (s *Server) getOperator(w http.ResponseWriter, r *http.Request) {
	active, expiry, err := s.service.IsOperator(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var expiresAt int64
	if !expiry.IsZero() {
		expiresAt = expiry.Unix()
	}
	writeJSON(w, http.StatusOK, operatorStatusResponse{Active: active, ExpiresAt: expiresAt})
}

func (s *Server) healthcheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unreachable"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// writeError maps the ledger's failure taxonomy to status codes. Validation
// failures are the caller's problem, rejections conflict with current state,
// registry transport failures surface as a bad gateway, and everything else
// stays opaque.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		transferErr *registryclient.TransferError
		httpErr     *client.HttpError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrInvalidAmount) || errors.Is(err, types.ErrInvalidAccount):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrInsufficientStake) || errors.Is(err, types.ErrAmountOverflow):
		status = http.StatusConflict
	case errors.As(err, &transferErr):
		status = http.StatusConflict
	case errors.As(err, &httpErr):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		msg = "internal error"
	case http.StatusBadGateway:
		log.Ctx(r.Context()).Warn().Err(err).Msg("Registry call failed")
		msg = "registry unavailable"
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
