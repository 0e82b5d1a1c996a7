package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")

	// Login failure taxonomy. Everything here is recoverable by
	// retrying from the login step except ErrAccountBlocked, which
	// requires an admin unblock.
	ErrUserNotFound    = errors.New("user not found")
	ErrAccountBlocked  = errors.New("account is blocked")
	ErrBadPassword     = errors.New("invalid password")
	ErrPendingApproval = errors.New("account pending admin approval")
	ErrEmailMissing    = errors.New("no email address on record")

	// One-time-code verification failures
	ErrOtpNotIssued = errors.New("one-time code not issued")
	ErrOtpExpired   = errors.New("one-time code expired")
	ErrOtpMismatch  = errors.New("one-time code mismatch")

	// Gateway failure; wraps the transport error
	ErrDeliveryFailure = errors.New("one-time code delivery failed")
)

// BadPasswordError carries the remaining-attempt count so the caller can
// surface it. Unwraps to ErrBadPassword, or ErrAccountBlocked once the
// failed attempt crossed the lockout threshold.
type BadPasswordError struct {
	Remaining int
	Blocked   bool
}

func (e *BadPasswordError) Error() string {
	if e.Blocked {
		return "invalid password: account blocked after too many attempts"
	}
	return fmt.Sprintf("invalid password: %d attempts remaining", e.Remaining)
}

func (e *BadPasswordError) Unwrap() error {
	if e.Blocked {
		return ErrAccountBlocked
	}
	return ErrBadPassword
}
