package core

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// EvaluateCondition runs a boolean expr-lang expression against env.
// An empty condition is always true.
func EvaluateCondition(condition string, env map[string]any) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return true, nil
	}

	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("invalid condition %q: %w", condition, err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("condition %q failed: %w", condition, err)
	}

	return out.(bool), nil
}
