// Package eval walks normalized resources against compliance rules and
// produces per-rule, per-resource verdicts with evidence.
//
// Evaluation semantics:
//
//   - Only (resource, rule) pairs with matching kinds produce verdicts;
//     resources no rule targets are skipped silently.
//   - A pass requires every required condition to hold at a present
//     field path. An absent required field is always a fail: missing
//     configuration never defaults to compliant.
//   - A forbidden override present with its disabling value fails the
//     rule even when all required conditions hold.
//   - Non-compliance is a fail verdict, never a Go error.
//
// Plain predicates (equals, one-of, regex, presence) are checked in
// process. Two extended predicate forms delegate to embedded engines:
// Starlark expressions run with the observed value and resource fields
// in scope, and inline Rego modules are satisfied when their deny set
// evaluates empty.
package eval
