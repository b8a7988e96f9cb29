package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/api/middleware"
	"github.com/classhub/trustgate/internal/api/presenter"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/service"
)

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload LoginPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode login payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Username == "" || payload.Password == "" {
		presenter.Error(w, r, "username and password are required", http.StatusBadRequest)
		return
	}

	pair, err := s.auth.Login(ctx, service.LoginRequest{
		Username: payload.Username,
		Password: payload.Password,
		SourceIP: middleware.ClientIP(r, s.proxies),
		Device:   r.UserAgent(),
	})
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	presenter.OK(w, r, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload RefreshPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode refresh payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	pair, err := s.auth.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	presenter.OK(w, r, pair)
}

// handleLogout succeeds whether or not the bearer token can be decoded.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var payload RefreshPayload
	if err := DecodePayload(r, &payload, true /* allow empty */); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("failed to decode logout payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	raw, _ := s.transport.Extract(r)
	if err := s.auth.Logout(r.Context(), raw, payload.RefreshToken); err != nil {
		presenter.Err(w, r, err)
		return
	}
	presenter.OK(w, r, true)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	raw, _ := s.transport.Extract(r)
	presenter.OK(w, r, s.auth.ValidateToken(r.Context(), raw))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := core.PrincipalFrom(r.Context())
	if !ok {
		presenter.Err(w, r, core.ErrMissingCredential)
		return
	}
	presenter.OK(w, r, principal)
}
