package engine

import (
	"errors"
	"fmt"
)

// RunError is an error detected while planning or executing a pipeline run.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run. Empty for planning errors.
	RunID string

	// Step is the index of the failing step, or -1 if the error is not tied
	// to a step.
	Step int

	// Unit is the unit name of the failing step.
	Unit string

	// Err is the underlying cause, if any.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeUnknownUnit indicates a step names an unregistered unit.
	ErrCodeUnknownUnit RunErrorCode = "UNKNOWN_UNIT"

	// ErrCodeInvalidStep indicates a unit rejected its step configuration.
	ErrCodeInvalidStep RunErrorCode = "INVALID_STEP"

	// ErrCodeFingerprint indicates a set could not be canonically encoded.
	ErrCodeFingerprint RunErrorCode = "FINGERPRINT"

	// ErrCodeJournal indicates the journal rejected a record.
	ErrCodeJournal RunErrorCode = "JOURNAL"

	// ErrCodeCancelled indicates the context was cancelled mid-run.
	ErrCodeCancelled RunErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	switch {
	case e.Step >= 0 && e.RunID != "":
		return fmt.Sprintf("%s: %s (run=%s, step=%d, unit=%s)", e.Code, msg, e.RunID, e.Step, e.Unit)
	case e.Step >= 0:
		return fmt.Sprintf("%s: %s (step=%d, unit=%s)", e.Code, msg, e.Step, e.Unit)
	case e.RunID != "":
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, msg, e.RunID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// IsUnknownUnit returns true if err reports an unregistered unit.
// Uses errors.As to handle wrapped errors.
func IsUnknownUnit(err error) bool {
	return hasCode(err, ErrCodeUnknownUnit)
}

// IsInvalidStep returns true if err reports a rejected step configuration.
func IsInvalidStep(err error) bool {
	return hasCode(err, ErrCodeInvalidStep)
}

func hasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
