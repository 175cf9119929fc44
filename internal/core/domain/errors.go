package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrorKind classifies a domain failure independently of the transport.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindNotFound
	KindValidation
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failed"
	case KindConfiguration:
		return "internal_configuration"
	default:
		return "internal"
	}
}

// Error is a classified domain error. The message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Session token failures.
var (
	ErrTokenMissing       = newError(KindUnauthenticated, "token not found")
	ErrTokenMalformed     = newError(KindUnauthenticated, "invalid token format")
	ErrTokenInvalid       = newError(KindUnauthenticated, "invalid token")
	ErrTokenExpired       = newError(KindUnauthenticated, "token expired")
	ErrTokenOwnerMissing  = newError(KindUnauthenticated, "token owner not found")
	ErrAccountDeactivated = newError(KindForbidden, "account deactivated")
	ErrAbilityDenied      = newError(KindForbidden, "token lacks the required ability")
	ErrSessionNotOwned    = newError(KindForbidden, "session belongs to another user")
	ErrActiveSession      = newError(KindConflict, "user already has an active session")
	ErrLoginInProgress    = newError(KindConflict, "a login for this user is already in progress")

	// Store-level results, translated by the services.
	ErrTokenNotFound  = newError(KindNotFound, "token not found")
	ErrDuplicateToken = newError(KindConflict, "token already exists")
)

// Registration gate failures.
var (
	ErrRegistrationCredentialMissing   = newError(KindUnauthenticated, "registration credential required")
	ErrRegistrationCredentialMalformed = newError(KindUnauthenticated, "invalid registration credential format")
	ErrRegistrationCredentialInvalid   = newError(KindUnauthenticated, "invalid registration credential")
	ErrRegistrationForbidden           = newError(KindForbidden, "registration credential rejected")
	ErrRegistrationNotConfigured       = newError(KindConfiguration, "registration is not configured")
)

// Identity failures.
var (
	ErrUserNotFound  = newError(KindNotFound, "user not registered")
	ErrEmailTaken    = newError(KindConflict, "email already registered")
	ErrUsernameTaken = newError(KindConflict, "username already taken")
	ErrUserExists    = newError(KindConflict, "user already exists")
	ErrValidation    = newError(KindValidation, "validation failed")
)

// ActiveSessionError is returned by login when the user already holds a live
// token. It unwraps to ErrActiveSession.
type ActiveSessionError struct {
	SessionCreatedAt time.Time
}

func (e *ActiveSessionError) Error() string { return ErrActiveSession.Message }

func (e *ActiveSessionError) Unwrap() error { return ErrActiveSession }

// ValidationError carries per-field messages. It unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// KindOf reports the classification of err, KindInternal for unclassified errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
