package eval

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"
)

// starlarkPredicate evaluates starlark predicate expressions with a
// bounded execution time.
type starlarkPredicate struct {
	timeout time.Duration
}

func newStarlarkPredicate(timeout time.Duration) *starlarkPredicate {
	return &starlarkPredicate{timeout: timeout}
}

// Eval evaluates a starlark expression with the observed field value
// bound to `value` and the resource's full field tree bound to `fields`.
// The expression must produce a bool.
func (sp *starlarkPredicate) Eval(ctx context.Context, expr string, value interface{}, fields map[string]interface{}) (bool, error) {
	evalCtx, cancel := context.WithTimeout(ctx, sp.timeout)
	defer cancel()

	type evalResult struct {
		ok  bool
		err error
	}
	resultCh := make(chan evalResult, 1)

	go func() {
		ok, err := sp.evalSync(expr, value, fields)
		resultCh <- evalResult{ok: ok, err: err}
	}()

	select {
	case <-evalCtx.Done():
		return false, fmt.Errorf("starlark predicate timed out after %v", sp.timeout)
	case r := <-resultCh:
		return r.ok, r.err
	}
}

// evalSync performs the actual evaluation synchronously.
func (sp *starlarkPredicate) evalSync(expr string, value interface{}, fields map[string]interface{}) (bool, error) {
	thread := &starlark.Thread{
		Name: "polcheck-predicate",
		Print: func(_ *starlark.Thread, _ string) {
			// Predicates have no output channel.
		},
	}

	starValue, err := toStarlarkValue(value)
	if err != nil {
		return false, fmt.Errorf("failed to convert observed value: %w", err)
	}
	starFields, err := toStarlarkValue(fields)
	if err != nil {
		return false, fmt.Errorf("failed to convert resource fields: %w", err)
	}

	predeclared := starlark.StringDict{
		"value":  starValue,
		"fields": starFields,
	}

	result, err := starlark.Eval(thread, "predicate.star", expr, predeclared)
	if err != nil {
		return false, fmt.Errorf("starlark evaluation failed: %w", err)
	}

	b, ok := result.(starlark.Bool)
	if !ok {
		return false, fmt.Errorf("predicate produced %s, want bool", result.Type())
	}
	return bool(b), nil
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
