// Package compare diffs the verdicts of a candidate policy document
// against those of a reference document, flagging rules whose outcome
// diverges between the two.
//
// Verdicts are matched by rule id plus resource identity. When both
// sides carry resource names those are used; otherwise matching falls
// back to the resource's per-kind ordinal position, the strongest
// identity the dialects guarantee. When the two documents disagree on
// how many resources of a kind they contain, ordinal matching is
// ambiguous and comparison fails with AmbiguousMatchError; callers are
// expected to degrade to "comparison skipped" rather than abort, since
// the candidate's own evaluation remains valid.
package compare

import (
	"errors"
	"fmt"

	"github.com/polcheck/polcheck/pkg/eval"
)

// Divergence records one rule whose outcome differs between candidate
// and reference for matching resources.
type Divergence struct {
	// RuleID is the diverging rule.
	RuleID string `json:"rule_id"`

	// Resource identifies the candidate resource.
	Resource eval.ResourceRef `json:"resource"`

	// Candidate is the candidate document's outcome.
	Candidate eval.Outcome `json:"candidate"`

	// Reference is the reference document's outcome.
	Reference eval.Outcome `json:"reference"`
}

// String renders the divergence for reports.
func (d Divergence) String() string {
	return fmt.Sprintf("%s on %s: candidate=%s reference=%s", d.RuleID, d.Resource, d.Candidate, d.Reference)
}

// AmbiguousMatchError reports that candidate and reference contain
// different numbers of resources of the same kind, so ordinal matching
// cannot pair them reliably.
type AmbiguousMatchError struct {
	// Kind is the resource kind with mismatched counts.
	Kind string

	// CandidateCount and ReferenceCount are the per-side totals.
	CandidateCount int
	ReferenceCount int
}

// Error implements the error interface.
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous match for kind %s: candidate has %d resource(s), reference has %d",
		e.Kind, e.CandidateCount, e.ReferenceCount)
}

// IsAmbiguousMatch returns true if err is or wraps an AmbiguousMatchError.
func IsAmbiguousMatch(err error) bool {
	var ae *AmbiguousMatchError
	return errors.As(err, &ae)
}

// matchKey pairs a candidate verdict with its reference counterpart.
type matchKey struct {
	ruleID  string
	kind    string
	name    string
	ordinal int
}

// Compare returns the divergences between candidate and reference
// verdicts. Identical verdict sets always compare clean: for any V,
// Compare(V, V) is empty.
func Compare(candidate, reference []eval.Verdict) ([]Divergence, error) {
	if err := checkCounts(candidate, reference); err != nil {
		return nil, err
	}

	refByKey := make(map[matchKey]eval.Outcome, len(reference))
	for i := range reference {
		refByKey[keyFor(&reference[i])] = reference[i].Outcome
	}

	var divergences []Divergence
	for i := range candidate {
		v := &candidate[i]
		refOutcome, matched := refByKey[keyFor(v)]
		if !matched {
			// The reference never produced a verdict for this pair,
			// which is itself a divergence in behavior.
			divergences = append(divergences, Divergence{
				RuleID:    v.RuleID,
				Resource:  v.Resource,
				Candidate: v.Outcome,
				Reference: eval.OutcomeNotApplicable,
			})
			continue
		}
		if v.Outcome != refOutcome {
			divergences = append(divergences, Divergence{
				RuleID:    v.RuleID,
				Resource:  v.Resource,
				Candidate: v.Outcome,
				Reference: refOutcome,
			})
		}
	}

	return divergences, nil
}

// keyFor builds the match key for a verdict. Named resources match by
// name; unnamed ones by per-kind ordinal.
func keyFor(v *eval.Verdict) matchKey {
	key := matchKey{ruleID: v.RuleID, kind: v.Resource.Kind}
	if v.Resource.Name != "" {
		key.name = v.Resource.Name
		return key
	}
	key.ordinal = v.Resource.Ordinal
	return key
}

// checkCounts verifies both sides saw the same number of resources per
// kind, the precondition for ordinal matching.
func checkCounts(candidate, reference []eval.Verdict) error {
	counts := func(vs []eval.Verdict) map[string]int {
		seen := make(map[string]bool)
		out := make(map[string]int)
		for i := range vs {
			r := vs[i].Resource
			id := fmt.Sprintf("%s\x00%s\x00%d", r.Kind, r.Name, r.Ordinal)
			if !seen[id] {
				seen[id] = true
				out[r.Kind]++
			}
		}
		return out
	}

	candCounts := counts(candidate)
	refCounts := counts(reference)

	// A kind present on only one side still differs in count: n vs 0.
	for kind, n := range candCounts {
		if refCounts[kind] != n {
			return &AmbiguousMatchError{Kind: kind, CandidateCount: n, ReferenceCount: refCounts[kind]}
		}
	}
	for kind, m := range refCounts {
		if _, ok := candCounts[kind]; !ok {
			return &AmbiguousMatchError{Kind: kind, CandidateCount: 0, ReferenceCount: m}
		}
	}
	return nil
}
