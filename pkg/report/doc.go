// Package report assembles the final artifact of an evaluation run.
//
// A Report aggregates verdicts, divergences against an optional
// reference evaluation, and warnings. The overall outcome passes only
// when every non-optional verdict passed and no divergence was found;
// failing verdicts each contribute a fixed-template recommendation
// line. Scoring is pluggable: a Strategy maps each verdict onto a
// number without re-reading the policy document.
package report
