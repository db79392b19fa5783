package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Verification and payment flow errors. Every failure in these flows resolves
// to one of the sentinels below; nothing propagates as an uncaught fault.
var (
	// ErrValidation marks malformed local input, recovered with inline messaging.
	ErrValidation = errors.New("validation failed")
	// ErrExternalProvider marks a failure of the certification widget, OAuth
	// provider, bank wire or payment gateway. Always releases in-flight guards.
	ErrExternalProvider = errors.New("external provider error")
	// ErrLinkConflict means the phone identity is already linked to another
	// social account. The backend message is surfaced verbatim to the user.
	ErrLinkConflict = errors.New("account already linked")
	// ErrVerificationMismatch means the supplied micro-deposit reference does
	// not match the issued one, or was already consumed. Flow returns to input.
	ErrVerificationMismatch = errors.New("verification mismatch")
	// ErrRetryExhausted means the payment retry ceiling has been reached.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
	// ErrSessionExpired forces a session clear and a redirect to login.
	ErrSessionExpired = errors.New("session expired")
)
