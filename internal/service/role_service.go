package service

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/authz"
	"github.com/classhub/trustgate/internal/core"
)

// RoleService applies role-assignment governance on top of a RoleStore.
type RoleService struct {
	store   core.RoleStore
	auditor core.Auditor
	clock   clockwork.Clock
}

func NewRoleService(store core.RoleStore, auditor core.Auditor, clock clockwork.Clock) *RoleService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RoleService{
		store:   store,
		auditor: auditor,
		clock:   clock,
	}
}

// List returns the canonical roles of a user.
func (s *RoleService) List(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.store.ListRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	set, err := core.ParseRoles(roles)
	if err != nil {
		return nil, fmt.Errorf("stored roles of %s: %w", userID, err)
	}
	return set.Canonical(), nil
}

// Assign grants role to userID. A nil actor is a trusted internal caller and
// bypasses governance; otherwise the actor must be allowed to assign role.
func (s *RoleService) Assign(ctx context.Context, actor *core.Principal, userID, role string) error {
	return s.change(ctx, "roles.assign", actor, userID, role, s.store.AssignRole)
}

// Revoke withdraws role from userID under the same governance as Assign.
func (s *RoleService) Revoke(ctx context.Context, actor *core.Principal, userID, role string) error {
	return s.change(ctx, "roles.revoke", actor, userID, role, s.store.RemoveRole)
}

func (s *RoleService) change(
	ctx context.Context,
	action string,
	actor *core.Principal,
	userID, role string,
	apply func(ctx context.Context, userID, roleID string) error,
) error {
	logger := log.Ctx(ctx)

	entry := core.AuditEntry{
		ID:       core.CorrelationID(ctx),
		Time:     s.clock.Now(),
		Action:   action,
		Metadata: map[string]any{"user": userID, "role": role},
	}
	if actor != nil {
		entry.Subject = actor.Subject
	} else {
		entry.Subject = "internal"
	}
	defer func() {
		if err := s.auditor.Log(entry); err != nil {
			logger.Error().Err(err).Str("action", action).Msg("failed to write audit log entry")
		}
	}()

	canonical, err := core.NormalizeRole(role)
	if err != nil {
		entry.Reason = "invalid role"
		return fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	entry.Metadata["role"] = canonical

	if actor != nil {
		if err := authz.CanAssign(actor.Roles, canonical); err != nil {
			entry.Reason = err.Error()
			logger.Warn().
				Str("actor", actor.Subject).
				Str("user", userID).
				Str("role", canonical).
				Msg("role change denied")
			return err
		}
	}

	if err := apply(ctx, userID, canonical); err != nil {
		entry.Reason = err.Error()
		return err
	}
	entry.Granted = true
	logger.Info().Str("user", userID).Str("role", canonical).Str("action", action).Msg("roles changed")
	return nil
}
