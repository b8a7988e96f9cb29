// Package authz decides whether an authenticated principal may perform a request.
//
// Authorization runs only after authentication produced a Principal. A missing
// principal is a credential problem (401); a denied policy is a privilege
// problem (403).
package authz

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/core"
)

// Request is the input of a policy decision.
type Request struct {
	Principal *core.Principal
	Method    string
	Path      string

	// PathValue resolves a named path parameter such as "id". May be nil.
	PathValue func(name string) string
}

func (r Request) param(name string) string {
	if r.PathValue == nil {
		return ""
	}
	return r.PathValue(name)
}

// Policy decides a single request. Allow is only called with a non-nil Principal.
type Policy interface {
	Allow(ctx context.Context, req Request) (bool, error)
}

type PolicyFunc func(ctx context.Context, req Request) (bool, error)

func (f PolicyFunc) Allow(ctx context.Context, req Request) (bool, error) {
	return f(ctx, req)
}

// Check evaluates the policy. It returns ErrMissingCredential without a principal
// and ErrInsufficientRole if the policy denies or fails.
func Check(ctx context.Context, p Policy, req Request) error {
	if req.Principal == nil {
		return core.ErrMissingCredential
	}
	ok, err := p.Allow(ctx, req)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("subject", req.Principal.Subject).
			Str("path", req.Path).
			Msg("authz.policy_error")
		return fmt.Errorf("%w: policy evaluation failed", core.ErrInsufficientRole)
	}
	if !ok {
		return core.ErrInsufficientRole
	}
	return nil
}

// AnyRole allows principals holding at least one of the given roles.
// It panics on invalid role names.
func AnyRole(roles ...string) Policy {
	accepted := core.NewRoleSet(roles...)
	return PolicyFunc(func(_ context.Context, req Request) (bool, error) {
		return req.Principal.Roles.Intersects(accepted), nil
	})
}

// OwnerResolver returns the subject owning the resource addressed by the request.
type OwnerResolver func(ctx context.Context, req Request) (string, error)

// PathOwner resolves the owner from a path parameter.
func PathOwner(param string) OwnerResolver {
	return func(_ context.Context, req Request) (string, error) {
		return req.param(param), nil
	}
}

// Owner allows principals whose subject equals the resource owner.
func Owner(resolve OwnerResolver) Policy {
	return PolicyFunc(func(ctx context.Context, req Request) (bool, error) {
		owner, err := resolve(ctx, req)
		if err != nil {
			return false, fmt.Errorf("resolving owner: %w", err)
		}
		return owner != "" && owner == req.Principal.Subject, nil
	})
}

// AnyOf allows the request if any of the policies does.
// Errors of individual policies are only reported if none allows.
func AnyOf(policies ...Policy) Policy {
	return PolicyFunc(func(ctx context.Context, req Request) (bool, error) {
		var firstErr error
		for _, p := range policies {
			ok, err := p.Allow(ctx, req)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ok {
				return true, nil
			}
		}
		return false, firstErr
	})
}

// AllOf allows the request only if every policy does.
func AllOf(policies ...Policy) Policy {
	return PolicyFunc(func(ctx context.Context, req Request) (bool, error) {
		for _, p := range policies {
			ok, err := p.Allow(ctx, req)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}
