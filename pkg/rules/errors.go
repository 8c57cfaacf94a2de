package rules

import (
	"errors"
	"fmt"
)

// MalformedRuleError reports a rule definition that is missing required
// fields or combines predicate forms illegally. Rule load errors are
// fatal: a registry never holds a partially valid rule set from a
// failed load.
type MalformedRuleError struct {
	// File is the rule file the definition came from, when known.
	File string

	// RuleID is the offending rule's id, when one was present.
	RuleID string

	// Message describes the problem.
	Message string

	// Err is the underlying decode or validation error, if any.
	Err error
}

// Error implements the error interface.
func (e *MalformedRuleError) Error() string {
	switch {
	case e.File != "" && e.RuleID != "":
		return fmt.Sprintf("malformed rule %q in %s: %s", e.RuleID, e.File, e.Message)
	case e.File != "":
		return fmt.Sprintf("malformed rule definition in %s: %s", e.File, e.Message)
	case e.RuleID != "":
		return fmt.Sprintf("malformed rule %q: %s", e.RuleID, e.Message)
	default:
		return fmt.Sprintf("malformed rule definition: %s", e.Message)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *MalformedRuleError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a lookup for a rule id the registry does not hold.
type NotFoundError struct {
	// ID is the rule id that was requested.
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("rule not found: %s", e.ID)
}

// IsMalformed returns true if err is or wraps a MalformedRuleError.
func IsMalformed(err error) bool {
	var me *MalformedRuleError
	return errors.As(err, &me)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
