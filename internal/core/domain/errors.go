package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access forbidden")
	ErrNotFound        = errors.New("not found")
	// ErrInvalidCredentials is returned both for an unknown email and for a
	// wrong password. Callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotActive   = errors.New("account is not active")
	ErrLegalHold          = errors.New("erasure blocked by legal hold")
	ErrConflict           = errors.New("conflicting record already exists")
	ErrStore              = errors.New("store failure")

	ErrSelfDeletion  = fmt.Errorf("%w: accounts cannot delete themselves", ErrForbidden)
	ErrNoValidFields = &ValidationError{Problems: []string{"no correctable fields supplied"}}
)

// ValidationError aggregates every problem found in one input.
type ValidationError struct {
	Problems []string
}

// NewValidationError returns nil when problems is empty.
func NewValidationError(problems ...string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SessionErrorKind classifies why a session token was rejected.
type SessionErrorKind string

const (
	SessionMalformed        SessionErrorKind = "malformed"
	SessionExpired          SessionErrorKind = "expired"
	SessionSignatureInvalid SessionErrorKind = "signature_invalid"
	SessionRevoked          SessionErrorKind = "revoked"
)

// SessionError is returned by session validation.
type SessionError struct {
	Kind SessionErrorKind
	Err  error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s", e.Kind)
}

func (e *SessionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnauthenticated}
	}
	return []error{ErrUnauthenticated, e.Err}
}

// ForbiddenError names what the caller was missing.
type ForbiddenError struct {
	Capability Capability
	Roles      []Role
}

func (e *ForbiddenError) Error() string {
	return "access forbidden: requires " + e.Required()
}

// Required describes the missing capability or role set.
func (e *ForbiddenError) Required() string {
	if e.Capability != 0 {
		return "capability " + e.Capability.String()
	}
	names := make([]string, len(e.Roles))
	for i, r := range e.Roles {
		names[i] = string(r)
	}
	return "role " + strings.Join(names, " or ")
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// AccountNotActiveError carries the status that blocked a login.
type AccountNotActiveError struct {
	Status Status
}

func (e *AccountNotActiveError) Error() string {
	return fmt.Sprintf("account is not active (status: %s)", e.Status)
}

func (e *AccountNotActiveError) Unwrap() error { return ErrAccountNotActive }

// LegalHoldError carries the regulatory reason an erasure was refused.
type LegalHoldError struct {
	Reason string
}

func (e *LegalHoldError) Error() string { return e.Reason }

func (e *LegalHoldError) Unwrap() error { return ErrLegalHold }
