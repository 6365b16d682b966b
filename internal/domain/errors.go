package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation        ErrKind = "validation"         // 400
	KindExpired           ErrKind = "expired"            // 400
	KindInvalidCredential ErrKind = "invalid_credential" // 400
	KindAuth              ErrKind = "auth"               // 401
	KindNotFound          ErrKind = "not_found"          // 404
	KindConflict          ErrKind = "conflict"           // 409
	KindRateLimited       ErrKind = "rate_limited"       // 429
	KindDelivery          ErrKind = "delivery"           // 502
	KindInfrastructure    ErrKind = "infrastructure"     // 503
	KindInternal          ErrKind = "internal"           // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

// Is reports whether err is a domain error with the given code.
func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// Verification attempted with nothing to verify against; also what a replayed
// passcode gets after a successful verification cleared it.
func ErrNoPasscodePending() *Error {
	return New(KindValidation, "no_passcode_pending", "no passcode pending")
}

// ----------------------
// Expired (400)
// ----------------------

// Distinct from a mismatch so clients can offer "resend" instead of "retype".
func ErrPasscodeExpired() *Error {
	return New(KindExpired, "passcode_expired", "passcode has expired")
}

// ----------------------
// Invalid credentials (400/401)
// ----------------------

func ErrInvalidPasscode() *Error {
	return New(KindInvalidCredential, "invalid_passcode", "invalid passcode")
}

func ErrInvalidGoogleToken(cause error) *Error {
	return Wrap(KindInvalidCredential, "invalid_google_token", "invalid google token", cause)
}

// ----------------------
// Auth errors (401)
// ----------------------

func ErrEmailNotVerified() *Error {
	return New(KindAuth, "email_not_verified", "email not verified")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, "token_expired", "token is expired")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

func ErrNoteNotFound() *Error {
	return New(KindNotFound, "note_not_found", "note not found")
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, "email_already_exists", "email already registered")
}

func ErrAlreadyVerified() *Error {
	return New(KindConflict, "already_verified", "user already verified")
}

func ErrGoogleIDAlreadyLinked() *Error {
	return New(KindConflict, "google_id_already_linked", "google account already linked to another user")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Delivery (502)
// ----------------------

func ErrDeliveryFailed(cause error) *Error {
	return Wrap(KindDelivery, "delivery_failed", "message delivery failed", cause)
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "passcode hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
