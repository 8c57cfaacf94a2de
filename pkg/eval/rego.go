package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/polcheck/polcheck/pkg/parser"
)

// evalRegoCondition evaluates an inline Rego module's deny set against
// the resource. An empty deny set satisfies the condition; any deny
// entry fails it.
func (e *Evaluator) evalRegoCondition(ctx context.Context, module string, res *parser.Resource) (bool, error) {
	packageName := extractPackageName(module)
	query := fmt.Sprintf("data.%s.deny", packageName)

	input := map[string]interface{}{
		"kind":   res.Kind,
		"name":   res.Name,
		"fields": res.Fields,
	}

	r := rego.New(
		rego.Module("condition.rego", module),
		rego.Query(query),
		rego.Input(input),
	)

	results, err := r.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("rego evaluation error: %w", err)
	}

	for _, result := range results {
		for _, expr := range result.Expressions {
			if denySet, ok := expr.Value.([]interface{}); ok && len(denySet) > 0 {
				return false, nil
			}
		}
	}
	return true, nil
}

// extractPackageName extracts the package path from Rego source.
func extractPackageName(module string) string {
	for _, line := range strings.Split(module, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "polcheck.checks"
}
