package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polcheck/polcheck/pkg/compare"
	"github.com/polcheck/polcheck/pkg/eval"
)

// Builder assembles reports from verdicts and divergences.
type Builder struct {
	logger       zerolog.Logger
	strategy     Strategy
	strategyName string
}

// NewBuilder creates a report builder with the given scoring strategy.
// An empty strategy name selects binary scoring.
func NewBuilder(logger zerolog.Logger, strategyName string) (*Builder, error) {
	strategy, err := StrategyByName(strategyName)
	if err != nil {
		return nil, err
	}
	if strategyName == "" {
		strategyName = StrategyBinary
	}

	return &Builder{
		logger:       logger.With().Str("component", "report").Logger(),
		strategy:     strategy,
		strategyName: strategyName,
	}, nil
}

// Build produces a report from verdicts and divergences. Verdict order
// is preserved. The report passes iff every non-optional verdict passed
// and no divergence exists; warnings never affect the outcome.
func (b *Builder) Build(verdicts []eval.Verdict, divergences []compare.Divergence, warnings []string) *Report {
	r := &Report{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Pass:        true,
		Verdicts:    verdicts,
		Divergences: divergences,
		Warnings:    warnings,
		Strategy:    b.strategyName,
	}

	for _, v := range verdicts {
		r.Summary.Total++

		switch v.Outcome {
		case eval.OutcomePass:
			r.Summary.Passed++
		case eval.OutcomeFail:
			r.Summary.Failed++
			if v.Optional {
				r.Summary.OptionalFailed++
			} else {
				r.Pass = false
			}
			r.Recommendations = append(r.Recommendations, recommendations(v)...)
		case eval.OutcomeNotApplicable:
			r.Summary.NotApplicable++
			continue
		}

		r.Scores = append(r.Scores, Score{
			RuleID:   v.RuleID,
			Resource: v.Resource.String(),
			Value:    b.strategy(v),
		})
	}

	if len(divergences) > 0 {
		r.Pass = false
	}

	b.logger.Debug().
		Str("report_id", r.ID).
		Bool("pass", r.Pass).
		Int("verdicts", r.Summary.Total).
		Int("failed", r.Summary.Failed).
		Int("divergences", len(divergences)).
		Msg("Report built")

	return r
}

// recommendations renders one remediation line per failing evidence
// entry of a failing verdict.
func recommendations(v eval.Verdict) []string {
	failing := v.FailingEvidence()
	if len(failing) == 0 {
		// Failures without path evidence (forbidden overrides) fall
		// back to the verdict's observation.
		return []string{fmt.Sprintf("%s: %s", v.RuleID, v.Observation)}
	}

	lines := make([]string, 0, len(failing))
	for _, e := range failing {
		lines = append(lines, fmt.Sprintf("%s: expected %s at %s, found %s",
			v.RuleID, e.Expected, e.Path, e.ObservedString()))
	}
	return lines
}
