package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/classhub/trustgate/internal/authz"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/token"
)

// AccessService answers "why was this request allowed or denied" for the
// configured route rules.
type AccessService struct {
	verifier *token.Verifier
	rules    *authz.RuleTable
}

func NewAccessService(verifier *token.Verifier, rules *authz.RuleTable) *AccessService {
	return &AccessService{
		verifier: verifier,
		rules:    rules,
	}
}

// Explain verifies the token and evaluates the route rules for method and path.
// Failures are reported inside the Explanation, never as an error.
func (s *AccessService) Explain(ctx context.Context, req ExplainRequest) *Explanation {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	principal, err := s.verifier.Verify(ctx, req.Token)
	if err != nil {
		return &Explanation{
			TokenError: core.PublicMessage(err),
			Reason:     "request would be rejected with 401 before authorization",
		}
	}

	out := &Explanation{Principal: principal}
	rule, policy, ok := s.rules.Match(method, req.Path)
	if !ok {
		out.Allowed = true
		out.Reason = "no route rule matches, only handler policies apply"
		return out
	}
	out.MatchedRule = rule.Name

	err = authz.Check(ctx, policy, authz.Request{Principal: principal, Method: method, Path: req.Path})
	if err != nil {
		out.Reason = "rule '" + rule.Name + "' denies: " + core.PublicMessage(err)
		return out
	}
	out.Allowed = true
	out.Reason = "rule '" + rule.Name + "' allows"
	return out
}
