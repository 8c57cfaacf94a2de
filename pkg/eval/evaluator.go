package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/polcheck/polcheck/pkg/parser"
	"github.com/polcheck/polcheck/pkg/rules"
)

// Options tunes evaluation behavior.
type Options struct {
	// StarlarkTimeout bounds each starlark predicate evaluation.
	// Zero means 10 seconds.
	StarlarkTimeout time.Duration
}

// Evaluator walks parsed resources against compliance rules and produces
// verdicts. Evaluation is a pure function of its inputs: independent
// documents may be evaluated concurrently with no shared mutable state.
type Evaluator struct {
	logger   zerolog.Logger
	starlark *starlarkPredicate
}

// NewEvaluator creates an evaluator.
func NewEvaluator(logger zerolog.Logger, opts Options) *Evaluator {
	timeout := opts.StarlarkTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Evaluator{
		logger:   logger.With().Str("component", "evaluator").Logger(),
		starlark: newStarlarkPredicate(timeout),
	}
}

// Evaluate produces one verdict per (resource, rule) pair whose kinds
// match. Resources whose kind matches no rule are skipped, not failed.
// Business-level non-compliance is always a fail verdict, never an
// error; the only errors surfaced are context cancellation.
func (e *Evaluator) Evaluate(ctx context.Context, resources []parser.Resource, ruleSet []rules.Rule) []Verdict {
	var verdicts []Verdict

	for i := range resources {
		for _, rule := range ruleSet {
			if rule.Kind != resources[i].Kind {
				continue
			}
			v := e.EvaluateRule(ctx, &resources[i], rule)
			verdicts = append(verdicts, v)
		}
	}

	e.logger.Debug().
		Int("resources", len(resources)).
		Int("rules", len(ruleSet)).
		Int("verdicts", len(verdicts)).
		Msg("Evaluation completed")

	return verdicts
}

// EvaluateRule evaluates a single rule against a single resource. A
// kind mismatch yields a not-applicable verdict; Evaluate skips such
// pairs entirely, but direct callers get the explicit outcome.
func (e *Evaluator) EvaluateRule(ctx context.Context, res *parser.Resource, rule rules.Rule) Verdict {
	verdict := Verdict{
		RuleID:   rule.ID,
		Resource: refFor(res),
		Optional: rule.Optional,
	}

	if rule.Kind != res.Kind {
		verdict.Outcome = OutcomeNotApplicable
		verdict.Observation = fmt.Sprintf("rule targets kind %s", rule.Kind)
		return verdict
	}

	failedRequired := 0
	for _, cond := range rule.Required {
		ev := Evidence{Path: cond.Path, Expected: cond.Describe()}

		observed, present := res.Lookup(cond.Path)
		if !present {
			// Missing configuration never defaults to compliant.
			ev.Absent = true
			verdict.Evidence = append(verdict.Evidence, ev)
			failedRequired++
			continue
		}

		ev.Observed = observed
		ok, err := e.checkCondition(ctx, cond, observed, res)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("rule", rule.ID).
				Str("path", cond.Path).
				Str("resource", res.Ref()).
				Msg("Predicate evaluation failed")
			ev.Expected = fmt.Sprintf("%s (predicate error: %v)", ev.Expected, err)
		}
		ev.OK = err == nil && ok
		if !ev.OK {
			failedRequired++
		}
		verdict.Evidence = append(verdict.Evidence, ev)
	}

	overridden := 0
	for _, override := range rule.Forbidden {
		observed, present := res.Lookup(override.Path)
		if !present {
			continue
		}
		// A present override only fails the rule when it carries the
		// disabling value; with no value constraint, any setting does.
		disabled := override.Equals == nil || valuesEqual(observed, override.Equals)
		verdict.Evidence = append(verdict.Evidence, Evidence{
			Path:     override.Path,
			Expected: override.Describe(),
			Observed: observed,
			OK:       !disabled,
		})
		if disabled {
			overridden++
		}
	}

	switch {
	case overridden > 0:
		// Forbidden overrides fail the rule even when all required
		// conditions hold.
		verdict.Outcome = OutcomeFail
		verdict.Observation = fmt.Sprintf("%d forbidden override(s) present", overridden)
	case failedRequired > 0:
		verdict.Outcome = OutcomeFail
		verdict.Observation = fmt.Sprintf("%d of %d required condition(s) not satisfied", failedRequired, len(rule.Required))
	default:
		verdict.Outcome = OutcomePass
	}

	return verdict
}

// EvaluateDocuments evaluates several parsed documents concurrently,
// preserving input order in the result. Each document's evaluation is
// independent, so the fan-out shares nothing but the rule set.
func (e *Evaluator) EvaluateDocuments(ctx context.Context, docs [][]parser.Resource, ruleSet []rules.Rule) ([][]Verdict, error) {
	out := make([][]Verdict, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	for i := range docs {
		g.Go(func() error {
			out[i] = e.Evaluate(gctx, docs[i], ruleSet)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
