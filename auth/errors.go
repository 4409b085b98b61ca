package auth

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an authentication failure so callers can branch on
// behaviour without parsing message text.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindDuplicateAccount   Kind = "duplicate_account"
	KindNotFound           Kind = "not_found"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnconfirmed        Kind = "unconfirmed"
	KindRateLimited        Kind = "rate_limited"
	KindServiceUnavailable Kind = "service_unavailable"
	KindNotImplemented     Kind = "not_implemented"
	KindInternal           Kind = "internal"
)

// User-facing message vocabulary shared by both backends.
const (
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgDuplicateAccount   = "An account with this email already exists. Please sign in instead."
	MsgInvalidCredentials = "Invalid email or password."
	MsgUnconfirmed        = "Please confirm your email address. Check your inbox for the verification link."
	MsgServiceUnavailable = "The authentication service is temporarily unavailable. Please try again later."
	MsgResetRequested     = "If an account exists for this email, a password reset link has been sent."
)

// Error is the only error type that crosses the Backend boundary. Message is
// safe to show to end users verbatim.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // set for KindRateLimited
}

func (e *Error) Error() string { return e.Message }

// NewError builds an Error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewRateLimited builds a rate-limit error that tells the user how long to wait.
func NewRateLimited(retryAfter time.Duration) *Error {
	secs := int(retryAfter.Seconds())
	if secs <= 0 {
		secs = 60
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("Too many attempts. Please wait %d seconds before trying again.", secs),
		RetryAfter: time.Duration(secs) * time.Second,
	}
}

// AsError extracts the *Error from err's chain. Anything else collapses into
// a generic internal error so provider or driver details never leak out.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindInternal, Message: MsgServiceUnavailable}
}

// KindOf reports the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	return AsError(err).Kind
}
