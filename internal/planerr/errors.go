// Package planerr defines the structured error type shared by every stage
// of the mutation plan pipeline.
//
// Plan errors carry a machine-readable code, an optional step id naming the
// offending step, a human-readable message, and structured details. Callers
// distinguish "fix your request" (INVALID_INPUT and friends) from "report a
// bug" (INTERNAL_ERROR) by code alone.
package planerr

import (
	"errors"
	"fmt"
)

// Code identifies a category of plan failure.
type Code string

// The closed set of plan error codes.
const (
	// CodeInvalidInput indicates malformed or out-of-bounds caller input.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeTargetNotFound indicates a directly addressed node (for example a
	// raw block-id reference) does not exist in the document.
	CodeTargetNotFound Code = "TARGET_NOT_FOUND"

	// CodeMatchNotFound indicates a selector or reference resolved to zero
	// matches.
	CodeMatchNotFound Code = "MATCH_NOT_FOUND"

	// CodeAmbiguousMatch indicates more matches than the step's cardinality
	// rule permits.
	CodeAmbiguousMatch Code = "AMBIGUOUS_MATCH"

	// CodeCrossBlockMatch indicates a match spanning multiple blocks was
	// bound to an operation that only supports single-block ranges.
	CodeCrossBlockMatch Code = "CROSS_BLOCK_MATCH"

	// CodeConflictOverlap indicates two different steps resolved to
	// overlapping character ranges within one block.
	CodeConflictOverlap Code = "PLAN_CONFLICT_OVERLAP"

	// CodeRevisionMismatch indicates a reference was captured against a
	// document revision that is no longer current.
	CodeRevisionMismatch Code = "REVISION_MISMATCH"

	// CodePreconditionFailed indicates an assert step's expectation did not
	// hold against the document.
	CodePreconditionFailed Code = "PRECONDITION_FAILED"

	// CodeInternal indicates an engine invariant violation. It is never
	// caused by caller input.
	CodeInternal Code = "INTERNAL_ERROR"

	// CodeCapabilityUnavailable indicates the host document lacks a
	// facility the plan requires (search backend, style reader).
	CodeCapabilityUnavailable Code = "CAPABILITY_UNAVAILABLE"
)

// Error is a structured plan failure.
type Error struct {
	// Code is the machine-readable failure category.
	Code Code

	// StepID names the offending step, when one is attributable.
	StepID string

	// Message is a human-readable explanation.
	Message string

	// Details carries structured, code-specific context (counts, ranges,
	// offending values).
	Details map[string]any
}

// New creates a plan error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a plan error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("%s (step %s): %s", e.Code, e.StepID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithStep returns a copy of e attributed to the given step id.
func (e *Error) WithStep(stepID string) *Error {
	clone := *e
	clone.StepID = stepID
	return &clone
}

// WithDetail returns a copy of e with one detail entry added.
func (e *Error) WithDetail(key string, value any) *Error {
	clone := *e
	clone.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// CodeOf extracts the plan error code from err, or empty string if err is
// not a plan error.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// StepOf extracts the step id from err, or empty string.
func StepOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.StepID
	}
	return ""
}

// IsCode reports whether err is a plan error with the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
