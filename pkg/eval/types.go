package eval

import (
	"fmt"

	"github.com/polcheck/polcheck/pkg/parser"
)

// Outcome is the result of evaluating one rule against one resource.
type Outcome string

const (
	// OutcomePass means every required condition held and no forbidden
	// override was present.
	OutcomePass Outcome = "pass"

	// OutcomeFail means a required condition did not hold, a required
	// field was absent, or a forbidden override was set.
	OutcomeFail Outcome = "fail"

	// OutcomeNotApplicable means the rule targets a different resource
	// kind. Not-applicable verdicts are informational and never affect
	// a report's overall outcome.
	OutcomeNotApplicable Outcome = "not-applicable"
)

// ResourceRef identifies the resource a verdict was produced for.
type ResourceRef struct {
	// Kind is the resource kind.
	Kind string `json:"kind"`

	// Name is the resource name when the dialect provided one.
	Name string `json:"name,omitempty"`

	// Ordinal is the resource's per-kind position in its document.
	Ordinal int `json:"ordinal"`

	// Location is where the resource was parsed from.
	Location parser.Location `json:"location"`
}

// String renders the reference for logs and reports.
func (r ResourceRef) String() string {
	if r.Name != "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s[%d]", r.Kind, r.Ordinal)
}

// refFor builds a ResourceRef from a parsed resource.
func refFor(res *parser.Resource) ResourceRef {
	return ResourceRef{
		Kind:     res.Kind,
		Name:     res.Name,
		Ordinal:  res.Ordinal,
		Location: res.Source,
	}
}

// Evidence records one checked field path and what was observed there.
type Evidence struct {
	// Path is the dotted field path that was checked.
	Path string `json:"path"`

	// Expected describes the predicate that applied at the path.
	Expected string `json:"expected"`

	// Observed is the value found at the path, nil when absent.
	Observed interface{} `json:"observed,omitempty"`

	// Absent is true when the path was not present in the resource.
	Absent bool `json:"absent,omitempty"`

	// OK is true when the predicate held at this path.
	OK bool `json:"ok"`
}

// ObservedString renders the observed value, or "absent" when the path
// was missing. Reports use this in the fixed recommendation template.
func (e Evidence) ObservedString() string {
	if e.Absent {
		return "absent"
	}
	if s, ok := e.Observed.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", e.Observed)
}

// Verdict is the outcome of one rule against one resource, with the
// evidence that produced it. Verdicts are immutable once produced; a
// verdict references exactly one rule and one resource.
type Verdict struct {
	// RuleID is the rule that was evaluated.
	RuleID string `json:"rule_id"`

	// Resource identifies the evaluated resource.
	Resource ResourceRef `json:"resource"`

	// Outcome is pass, fail, or not-applicable.
	Outcome Outcome `json:"outcome"`

	// Optional mirrors the rule's optional flag; optional verdicts do
	// not block the overall report outcome.
	Optional bool `json:"optional,omitempty"`

	// Evidence lists every checked path with its observed value.
	Evidence []Evidence `json:"evidence,omitempty"`

	// Observation is a free-text summary of why the outcome holds.
	Observation string `json:"observation,omitempty"`
}

// FailingEvidence returns the evidence entries whose predicate did not
// hold.
func (v *Verdict) FailingEvidence() []Evidence {
	var failing []Evidence
	for _, e := range v.Evidence {
		if !e.OK {
			failing = append(failing, e)
		}
	}
	return failing
}
