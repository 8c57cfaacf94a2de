package report

import (
	"fmt"

	"github.com/polcheck/polcheck/pkg/eval"
)

// Strategy assigns a numeric score to a single verdict. Strategies see
// verdict data only; they never re-inspect the policy document.
type Strategy func(eval.Verdict) int

const (
	// StrategyBinary scores pass as 1 and everything else as 0.
	StrategyBinary = "binary"

	// StrategyRubric scores each verdict on a 1-5 scale from the share
	// of evidence entries that held.
	StrategyRubric = "rubric"
)

// BinaryStrategy is the default pass/fail scoring.
func BinaryStrategy(v eval.Verdict) int {
	if v.Outcome == eval.OutcomePass {
		return 1
	}
	return 0
}

// RubricStrategy maps the fraction of satisfied evidence onto 1-5. A
// verdict with no evidence scores 5 on pass and 1 on fail.
func RubricStrategy(v eval.Verdict) int {
	if len(v.Evidence) == 0 {
		if v.Outcome == eval.OutcomePass {
			return 5
		}
		return 1
	}

	ok := 0
	for _, e := range v.Evidence {
		if e.OK {
			ok++
		}
	}

	// 1 + 4 * ok/total, rounded down, so all-failing is 1 and
	// all-passing is 5.
	return 1 + (4*ok)/len(v.Evidence)
}

// StrategyByName resolves a strategy from its configured name.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", StrategyBinary:
		return BinaryStrategy, nil
	case StrategyRubric:
		return RubricStrategy, nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q (supported: %s, %s)",
			name, StrategyBinary, StrategyRubric)
	}
}
