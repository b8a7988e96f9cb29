package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/audit"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/metrics"
	"github.com/classhub/trustgate/internal/refresh"
	"github.com/classhub/trustgate/internal/token"
)

// AuthService is the token issuer: it turns credentials into signed access
// tokens and manages their refresh and logout.
type AuthService struct {
	cfg         AuthConfig
	directory   core.Directory
	verifier    *token.Verifier
	refresh     core.RefreshStore
	revocations core.RevocationStore
	auditor     core.Auditor
	clock       clockwork.Clock
}

func NewAuthService(
	cfg AuthConfig,
	directory core.Directory,
	verifier *token.Verifier,
	refreshStore core.RefreshStore,
	revocations core.RevocationStore,
	auditor core.Auditor,
	clock clockwork.Clock,
) (*AuthService, error) {
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = core.RoleStudent
	}
	if _, err := core.NormalizeRole(cfg.DefaultRole); err != nil {
		return nil, fmt.Errorf("default role: %w", err)
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("refresh TTL must be positive")
	}
	if cfg.RevokeOnLogout && revocations == nil {
		return nil, errors.New("revoke on logout requires a revocation store")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AuthService{
		cfg:         cfg,
		directory:   directory,
		verifier:    verifier,
		refresh:     refreshStore,
		revocations: revocations,
		auditor:     auditor,
		clock:       clock,
	}, nil
}

func (s *AuthService) audit(ctx context.Context, entry *core.AuditEntry) {
	if err := s.auditor.Log(*entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("action", entry.Action).Msg("failed to write audit log entry")
	}
}

func (s *AuthService) newEntry(ctx context.Context, action string) *core.AuditEntry {
	return &core.AuditEntry{
		ID:     core.CorrelationID(ctx),
		Time:   s.clock.Now(),
		Action: action,
	}
}

// Login checks the credentials with the directory and issues a token pair.
// Rejected credentials surface as ErrInvalidCredentials or ErrAccountDeleted;
// a slow or unreachable directory as ErrUpstreamUnavailable.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	logger := log.Ctx(ctx)

	entry := s.newEntry(ctx, "auth.login")
	entry.Username = req.Username
	entry.SourceIP = req.SourceIP
	entry.Device = req.Device
	defer s.audit(ctx, entry)

	dirCtx := ctx
	if s.cfg.DirectoryTimeout > 0 {
		var cancel context.CancelFunc
		dirCtx, cancel = context.WithTimeout(ctx, s.cfg.DirectoryTimeout)
		defer cancel()
	}

	identity, err := s.directory.Authenticate(dirCtx, req.Username, req.Password)
	switch {
	case errors.Is(err, core.ErrInvalidCredentials), errors.Is(err, core.ErrAccountDeleted):
		entry.Reason = err.Error()
		metrics.Logins.WithLabelValues("rejected").Inc()
		logger.Warn().
			Str("username", req.Username).
			Str("source_ip", req.SourceIP).
			Str("reason", err.Error()).
			Msg("login rejected")
		return nil, err
	case err != nil:
		entry.Reason = "directory unavailable"
		metrics.Logins.WithLabelValues("error").Inc()
		logger.Error().Err(err).Str("username", req.Username).Msg("credential directory unavailable")
		return nil, fmt.Errorf("%w: credential directory: %w", core.ErrUpstreamUnavailable, err)
	}

	roles, err := core.ParseRoles(identity.Roles)
	if err != nil {
		entry.Reason = "invalid roles in directory"
		metrics.Logins.WithLabelValues("error").Inc()
		logger.Error().Err(err).Str("subject", identity.Subject).Msg("directory returned invalid roles")
		return nil, fmt.Errorf("roles of %s: %w", identity.Subject, err)
	}
	if len(roles) == 0 {
		roles = core.NewRoleSet(s.cfg.DefaultRole)
	}

	pair, err := s.issuePair(ctx, identity.Subject, roles, uuid.NewString())
	if err != nil {
		entry.Reason = "issuing tokens failed"
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}

	entry.Subject = identity.Subject
	entry.Granted = true
	entry.TokenFingerprint = audit.Fingerprint(pair.AccessToken)
	entry.Metadata = map[string]any{"roles": roles.Names(), "jti": pair.User.TokenID}
	metrics.Logins.WithLabelValues("ok").Inc()

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", identity.Subject)
	})
	logger.Info().Strs("roles", roles.Names()).Msg("login succeeded")
	return pair, nil
}

// issuePair signs an access token and stores a new refresh token in the given family.
func (s *AuthService) issuePair(ctx context.Context, subject string, roles core.RoleSet, familyID string) (*TokenPair, error) {
	issued, err := s.verifier.Codec().Issue(subject, roles)
	if err != nil {
		return nil, err
	}

	refreshToken, err := refresh.Generate()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	rec := core.RefreshRecord{
		Subject:   subject,
		Roles:     roles.Names(),
		FamilyID:  familyID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}
	if err := s.refresh.Save(ctx, refresh.Hash(refreshToken), rec); err != nil {
		return nil, fmt.Errorf("saving refresh token: %w", err)
	}

	return &TokenPair{
		User:         issued.Claims.Principal(),
		AccessToken:  issued.Value,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    issued.ExpiresAt().Unix(),
	}, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented token
// is consumed; presenting it again revokes its whole family.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	logger := log.Ctx(ctx)

	entry := s.newEntry(ctx, "auth.refresh")
	entry.TokenFingerprint = audit.Fingerprint(refreshToken)
	defer s.audit(ctx, entry)

	if refreshToken == "" {
		entry.Reason = "missing refresh token"
		metrics.Refreshes.WithLabelValues("rejected").Inc()
		return nil, core.ErrInvalidRefreshToken
	}

	rec, err := s.refresh.Consume(ctx, refresh.Hash(refreshToken))
	switch {
	case errors.Is(err, core.ErrRefreshReused):
		entry.Reason = "refresh token reused"
		metrics.Refreshes.WithLabelValues("reused").Inc()
		if rec != nil {
			entry.Subject = rec.Subject
			if revokeErr := s.refresh.RevokeFamily(ctx, rec.FamilyID); revokeErr != nil {
				logger.Error().Err(revokeErr).Str("family", rec.FamilyID).Msg("failed to revoke refresh family")
			}
		}
		logger.Warn().Msg("refresh token reuse detected, family revoked")
		return nil, err
	case errors.Is(err, core.ErrInvalidRefreshToken):
		entry.Reason = "unknown or expired refresh token"
		metrics.Refreshes.WithLabelValues("rejected").Inc()
		logger.Warn().Msg("refresh rejected")
		return nil, err
	case err != nil:
		entry.Reason = "refresh store unavailable"
		metrics.Refreshes.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("refresh store unavailable")
		return nil, err
	}
	entry.Subject = rec.Subject

	roles, err := core.ParseRoles(rec.Roles)
	if err != nil {
		entry.Reason = "invalid roles in refresh record"
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidRefreshToken, err)
	}

	pair, err := s.issuePair(ctx, rec.Subject, roles, rec.FamilyID)
	if err != nil {
		entry.Reason = "issuing tokens failed"
		metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	entry.Granted = true
	entry.Metadata = map[string]any{"family": rec.FamilyID, "jti": pair.User.TokenID}
	metrics.Refreshes.WithLabelValues("ok").Inc()
	return pair, nil
}

// Logout ends a session. The subject is decoded for auditing only; a token
// that cannot be decoded does not fail the logout. With RevokeOnLogout the
// access token is revoked and, if given, the refresh token's family as well.
func (s *AuthService) Logout(ctx context.Context, rawToken, refreshToken string) error {
	logger := log.Ctx(ctx)

	entry := s.newEntry(ctx, "auth.logout")
	entry.TokenFingerprint = audit.Fingerprint(rawToken)
	entry.Granted = true
	defer s.audit(ctx, entry)

	claims, err := s.verifier.Codec().ParseIgnoringExpiry(rawToken)
	if err != nil {
		logger.Debug().Err(err).Msg("logout with undecodable token")
		entry.Reason = "token not decodable"
	} else {
		entry.Subject = claims.Subject
	}

	if !s.cfg.RevokeOnLogout {
		return nil
	}

	if claims != nil && claims.ID != "" {
		if err := s.revocations.Add(ctx, claims.ID); err != nil {
			entry.Granted = false
			entry.Reason = "revocation failed"
			logger.Error().Err(err).Str("jti", claims.ID).Msg("failed to revoke token on logout")
			return fmt.Errorf("%w: revoking token: %w", core.ErrUpstreamUnavailable, err)
		}
		metrics.Revocations.Inc()
	}

	if refreshToken != "" {
		rec, err := s.refresh.Consume(ctx, refresh.Hash(refreshToken))
		if err != nil && !errors.Is(err, core.ErrInvalidRefreshToken) {
			entry.Granted = false
			entry.Reason = "refresh consume failed"
			logger.Error().Err(err).Msg("failed to consume refresh token on logout")
			return fmt.Errorf("%w: consuming refresh token: %w", core.ErrUpstreamUnavailable, err)
		}
		if rec != nil && (err == nil || errors.Is(err, core.ErrRefreshReused)) {
			if err := s.refresh.RevokeFamily(ctx, rec.FamilyID); err != nil {
				entry.Granted = false
				entry.Reason = "refresh family revocation failed"
				logger.Error().Err(err).Str("family", rec.FamilyID).Msg("failed to revoke refresh family on logout")
				return fmt.Errorf("%w: revoking refresh family: %w", core.ErrUpstreamUnavailable, err)
			}
		}
	}
	return nil
}

// ValidateToken reports whether the token verifies. It never fails.
func (s *AuthService) ValidateToken(ctx context.Context, raw string) bool {
	return s.verifier.Valid(ctx, raw)
}

// UsernameFromToken returns the subject of a correctly signed token, expired or not.
func (s *AuthService) UsernameFromToken(raw string) (string, error) {
	claims, err := s.verifier.Codec().ParseIgnoringExpiry(raw)
	if err != nil {
		if errors.Is(err, core.ErrMissingCredential) {
			return "", fmt.Errorf("%w: empty token", core.ErrMalformedToken)
		}
		return "", err
	}
	return claims.Subject, nil
}

// Verify exposes the verifier to handlers that need the full principal.
func (s *AuthService) Verify(ctx context.Context, raw string) (*core.Principal, error) {
	return s.verifier.Verify(ctx, raw)
}
