package report

import (
	"time"

	"github.com/polcheck/polcheck/pkg/compare"
	"github.com/polcheck/polcheck/pkg/eval"
)

// Summary counts verdicts by outcome.
type Summary struct {
	// Total is the number of verdicts in the report.
	Total int `json:"total"`

	// Passed counts passing verdicts.
	Passed int `json:"passed"`

	// Failed counts failing verdicts, optional ones included.
	Failed int `json:"failed"`

	// NotApplicable counts informational verdicts.
	NotApplicable int `json:"not_applicable"`

	// OptionalFailed counts failing verdicts that were optional and
	// therefore did not block the overall outcome.
	OptionalFailed int `json:"optional_failed,omitempty"`
}

// Score holds the value a scoring strategy assigned to one verdict.
type Score struct {
	// RuleID is the scored rule.
	RuleID string `json:"rule_id"`

	// Resource identifies the scored resource.
	Resource string `json:"resource"`

	// Value is the strategy's score for the verdict.
	Value int `json:"value"`
}

// Report is the final artifact of one evaluation run.
type Report struct {
	// ID uniquely identifies this report.
	ID string `json:"id"`

	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generated_at"`

	// PolicyFile is the evaluated policy document, when known.
	PolicyFile string `json:"policy_file,omitempty"`

	// ReferenceFile is the reference document the candidate was compared
	// against, when one was supplied.
	ReferenceFile string `json:"reference_file,omitempty"`

	// Pass is true iff every non-optional verdict passed and no
	// divergence was found.
	Pass bool `json:"pass"`

	// Summary counts verdicts by outcome.
	Summary Summary `json:"summary"`

	// Verdicts lists every verdict in evaluation order.
	Verdicts []eval.Verdict `json:"verdicts"`

	// Divergences lists differences against the reference evaluation.
	Divergences []compare.Divergence `json:"divergences,omitempty"`

	// Warnings carries non-fatal conditions hit during the run, such as
	// an ambiguous reference match.
	Warnings []string `json:"warnings,omitempty"`

	// Recommendations holds one remediation line per failing verdict.
	Recommendations []string `json:"recommendations,omitempty"`

	// Scores holds per-verdict values from the configured strategy.
	Scores []Score `json:"scores,omitempty"`

	// Strategy names the scoring strategy that produced Scores.
	Strategy string `json:"strategy,omitempty"`
}
