package authz

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEnv is the environment visible to policy expressions.
type exprEnv struct {
	Subject string   `expr:"subject"`
	Roles   []string `expr:"roles"`
	Method  string   `expr:"method"`
	Path    string   `expr:"path"`
}

// Compile checks a boolean policy expression, for example
// `"ADMIN" in roles || (method == "GET" && path startsWith "/api/v1/public")`.
func Compile(code string) (*vm.Program, error) {
	return expr.Compile(code, expr.Env(exprEnv{}), expr.AsBool())
}

type exprPolicy struct {
	code    string
	program *vm.Program
}

// Expr builds a policy from a boolean expression over subject, roles (bare names),
// method and path.
func Expr(code string) (Policy, error) {
	program, err := Compile(code)
	if err != nil {
		return nil, fmt.Errorf("compiling policy expression: %w", err)
	}
	return &exprPolicy{code: code, program: program}, nil
}

func (p *exprPolicy) Allow(_ context.Context, req Request) (bool, error) {
	out, err := expr.Run(p.program, exprEnv{
		Subject: req.Principal.Subject,
		Roles:   req.Principal.Roles.Names(),
		Method:  req.Method,
		Path:    req.Path,
	})
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", p.code, err)
	}
	b, ok := out.(bool)
	return ok && b, nil
}
