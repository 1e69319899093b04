package service

import (
	"errors"
	"fmt"
)

var (
	// OTP verification failures, by priority: expiry outranks both format
	// checks, so an expired and malformed code still reports expiry.
	ErrOtpExpired       = errors.New("otp expired, request a new code")
	ErrOtpInvalidLength = errors.New("otp code must be exactly 6 digits")
	ErrOtpInvalidFormat = errors.New("otp code must be numeric")

	// ErrIdentityMismatch reports that the entered credentials conflict with
	// a previously stored member identity. Blocking; the flow does not proceed.
	ErrIdentityMismatch = errors.New("entered credentials do not match the registered member")

	// ErrSubmitNotReady reports a submit attempt while the stage's enabled
	// predicate is false. The flow state is left untouched.
	ErrSubmitNotReady = errors.New("submit is not enabled for the current stage")

	// ErrFlowStage reports an operation invoked at the wrong stage, e.g.
	// entering OTP digits before a passcode was issued.
	ErrFlowStage = errors.New("operation not valid for the current stage")
)

// FieldError is a recoverable, field-scoped validation failure surfaced as a
// message next to the offending input.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
