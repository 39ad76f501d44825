package domain

import (
	"errors"
	"fmt"
)

// ErrPaymentNotFound is returned by repositories when no record matches.
var ErrPaymentNotFound = errors.New("payment not found")

// ValidationError rejects malformed input before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AuthError reports a credential or token failure against the gateway.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mpesa auth failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("mpesa auth failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// InitiationError means the gateway rejected the payment request; no record
// was persisted because no tracking identifier exists.
type InitiationError struct {
	Code        string
	Description string
}

func (e *InitiationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("stk push rejected (code %s): %s", e.Code, e.Description)
	}
	return "payment service unavailable"
}

// PollError is a transient transport or gateway failure while querying
// status. It never mutates stored state.
type PollError struct {
	Description string
	Err         error
}

func (e *PollError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("status query failed: %s", e.Description)
	}
	return fmt.Sprintf("status query failed: %v", e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }
