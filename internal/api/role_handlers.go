package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/api/presenter"
	"github.com/classhub/trustgate/internal/core"
)

type AssignRolePayload struct {
	Role string `json:"role"`
}

type RolesPayload struct {
	Roles []string `json:"roles"`
}

type UserRoles struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	roles, err := s.roles.List(r.Context(), userID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("user", userID).Msg("failed to list roles")
		presenter.Err(w, r, err)
		return
	}
	presenter.OK(w, r, UserRoles{UserID: userID, Roles: roles})
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := core.PrincipalFrom(ctx)
	if !ok {
		presenter.Err(w, r, core.ErrMissingCredential)
		return
	}

	var payload AssignRolePayload
	if err := DecodePayload(r, &payload, false); err != nil || payload.Role == "" {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	userID := r.PathValue("id")
	if err := s.roles.Assign(ctx, actor, userID, payload.Role); err != nil {
		presenter.Err(w, r, err)
		return
	}
	s.handleListRoles(w, r)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := core.PrincipalFrom(ctx)
	if !ok {
		presenter.Err(w, r, core.ErrMissingCredential)
		return
	}

	if err := s.roles.Revoke(ctx, actor, r.PathValue("id"), r.PathValue("role")); err != nil {
		presenter.Err(w, r, err)
		return
	}
	s.handleListRoles(w, r)
}

// handleInternalAssignRoles assigns a set of roles on behalf of a trusted service.
func (s *Server) handleInternalAssignRoles(w http.ResponseWriter, r *http.Request) {
	var payload RolesPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	userID := r.PathValue("id")
	for _, role := range payload.Roles {
		if err := s.roles.Assign(r.Context(), nil, userID, role); err != nil {
			presenter.Err(w, r, err)
			return
		}
	}
	s.handleListRoles(w, r)
}

func (s *Server) handleInternalRevokeRole(w http.ResponseWriter, r *http.Request) {
	if err := s.roles.Revoke(r.Context(), nil, r.PathValue("id"), r.PathValue("role")); err != nil {
		presenter.Err(w, r, err)
		return
	}
	s.handleListRoles(w, r)
}
