package parser

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxError reports malformed document input, annotated with the
// position of the first offending construct when the dialect parser
// provides one. Parse errors are fatal: no partial resource sequence
// is returned alongside one.
type SyntaxError struct {
	// File is the document name.
	File string

	// Line is the 1-based line of the error, zero when unknown.
	Line int

	// Column is the 1-based column of the error, zero when unknown.
	Column int

	// Message describes the problem.
	Message string

	// Err is the underlying dialect parser error, if any.
	Err error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	loc := Location{File: e.File, Line: e.Line, Column: e.Column}
	return fmt.Sprintf("syntax error at %s: %s", loc, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// UnsupportedDialectError reports a dialect selector outside the
// recognized set.
type UnsupportedDialectError struct {
	// Dialect is the selector that was rejected.
	Dialect string
}

// Error implements the error interface.
func (e *UnsupportedDialectError) Error() string {
	known := make([]string, 0, len(Dialects()))
	for _, d := range Dialects() {
		known = append(known, string(d))
	}
	return fmt.Sprintf("unsupported dialect %q (recognized: %s)", e.Dialect, strings.Join(known, ", "))
}

// IsSyntaxError returns true if err is or wraps a SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsUnsupportedDialect returns true if err is or wraps an
// UnsupportedDialectError.
func IsUnsupportedDialect(err error) bool {
	var ue *UnsupportedDialectError
	return errors.As(err, &ue)
}
