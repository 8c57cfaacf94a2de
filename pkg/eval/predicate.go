package eval

import (
	"context"
	"fmt"
	"reflect"
	"regexp"

	"github.com/polcheck/polcheck/pkg/parser"
	"github.com/polcheck/polcheck/pkg/rules"
)

// checkCondition dispatches on the condition's predicate form. The path
// is already known to be present; a condition with no predicate form is
// satisfied by presence alone.
func (e *Evaluator) checkCondition(ctx context.Context, cond rules.Condition, observed interface{}, res *parser.Resource) (bool, error) {
	switch {
	case cond.Equals != nil:
		return valuesEqual(observed, cond.Equals), nil

	case len(cond.OneOf) > 0:
		for _, want := range cond.OneOf {
			if valuesEqual(observed, want) {
				return true, nil
			}
		}
		return false, nil

	case cond.Pattern != "":
		re, err := regexp.Compile(cond.Pattern)
		if err != nil {
			return false, fmt.Errorf("invalid pattern: %w", err)
		}
		return re.MatchString(stringForm(observed)), nil

	case cond.Starlark != "":
		return e.starlark.Eval(ctx, cond.Starlark, observed, res.Fields)

	case cond.Rego != "":
		return e.evalRegoCondition(ctx, cond.Rego, res)

	default:
		return true, nil
	}
}

// valuesEqual compares an observed field value against a rule value.
// Numeric types are normalized first, since YAML, HCL, and JSON decode
// numbers into different Go types.
func valuesEqual(observed, want interface{}) bool {
	if of, ok := asFloat(observed); ok {
		if wf, wok := asFloat(want); wok {
			return of == wf
		}
		return false
	}
	return reflect.DeepEqual(observed, want)
}

// asFloat normalizes any numeric value to float64.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// stringForm renders a value for regex matching.
func stringForm(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
