package authz

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/paths"
)

// Rule is a route rule declared in configuration.
type Rule struct {
	Name string `yaml:"name"`

	// Method restricts the rule to one HTTP method. Empty matches any method.
	Method string `yaml:"method"`

	// Path is a path prefix matched on segment boundaries.
	Path string `yaml:"path"`

	// Roles, if set, must intersect the principal's roles.
	Roles []string `yaml:"roles"`

	// Expr, if set, must evaluate to true. Combined with Roles, both must hold.
	Expr string `yaml:"expr"`
}

type compiledRule struct {
	Rule
	policy Policy
}

// RuleTable enforces configuration rules in declaration order; the first matching rule decides.
type RuleTable struct {
	rules []compiledRule
}

// CompileRules validates the rules and compiles their expressions.
func CompileRules(rules []Rule) (*RuleTable, error) {
	seenNames := make(map[string]struct{})
	table := &RuleTable{}

	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule #%d missing name", i)
		}
		if _, exists := seenNames[rule.Name]; exists {
			return nil, fmt.Errorf("rule name '%s' is not unique", rule.Name)
		}
		seenNames[rule.Name] = struct{}{}

		if !strings.HasPrefix(rule.Path, "/") {
			return nil, fmt.Errorf("rule '%s' path must start with '/'", rule.Name)
		}
		rule.Method = strings.ToUpper(rule.Method)
		if rule.Method != "" && !isHTTPMethod(rule.Method) {
			return nil, fmt.Errorf("rule '%s' has unknown method '%s'", rule.Name, rule.Method)
		}
		if len(rule.Roles) == 0 && rule.Expr == "" {
			return nil, fmt.Errorf("rule '%s' has neither roles nor expr set", rule.Name)
		}

		var policies []Policy
		if len(rule.Roles) > 0 {
			set, err := core.ParseRoles(rule.Roles)
			if err != nil {
				return nil, fmt.Errorf("rule '%s': %w", rule.Name, err)
			}
			policies = append(policies, AnyRole(set.Canonical()...))
		}
		if rule.Expr != "" {
			p, err := Expr(rule.Expr)
			if err != nil {
				return nil, fmt.Errorf("rule '%s': %w", rule.Name, err)
			}
			policies = append(policies, p)
		}

		table.rules = append(table.rules, compiledRule{Rule: rule, policy: AllOf(policies...)})
	}
	return table, nil
}

// Match returns the first rule matching the request, if any.
func (t *RuleTable) Match(method, path string) (*Rule, Policy, bool) {
	if t == nil {
		return nil, nil, false
	}
	for i := range t.rules {
		r := &t.rules[i]
		if r.Method != "" && r.Method != method {
			continue
		}
		if !paths.Under(path, r.Path) {
			continue
		}
		return &r.Rule, r.policy, true
	}
	return nil, nil, false
}

// Len returns the number of compiled rules.
func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Allow implements Policy. Requests no rule matches are allowed.
func (t *RuleTable) Allow(ctx context.Context, req Request) (bool, error) {
	_, policy, ok := t.Match(req.Method, req.Path)
	if !ok {
		return true, nil
	}
	return policy.Allow(ctx, req)
}

func isHTTPMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}
