package auth

import (
	"errors"

	"github.com/shiftdesk/shiftdesk/internal/platform/httpx"
)

// Reason classifies why a request was rejected.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonUnauthenticated  Reason = "UNAUTHENTICATED"
	ReasonForbidden        Reason = "FORBIDDEN"
	ReasonInvalidOperation Reason = "INVALID_OPERATION"
	ReasonNotFound         Reason = "NOT_FOUND"
)

var (
	// ErrMissingSigningSecret is a configuration error; the process must not start.
	ErrMissingSigningSecret = errors.New("auth: signing secret is required")
	// ErrInvalidPassword is returned when a plaintext cannot be hashed.
	ErrInvalidPassword = errors.New("auth: invalid password input")
	// ErrMalformedHash indicates corrupt credential storage.
	ErrMalformedHash = errors.New("auth: malformed password hash")
	// ErrPrincipalNotFound is returned when a token subject no longer exists.
	ErrPrincipalNotFound = errors.New("auth: principal not found")
)

// Client-facing messages. Login failures share one message so callers cannot
// tell an unknown email from a wrong password.
const (
	MsgInvalidCredentials = "invalid email or password"
	MsgTokenRequired      = "access token required"
	MsgTokenInvalid       = "invalid or expired token"
	MsgForbidden          = "insufficient permissions"
	MsgAdminRequired      = "admin access required"
	MsgSelfDeletion       = "cannot delete your own account"
)

// Error is a structured rejection produced by the authentication pipeline or
// the authorization gate. It unwraps to the httpx sentinel for its reason so
// transport code can map it with httpx.RespondError.
type Error struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return string(e.Reason) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Reason) + ": " + e.Message
}

// PublicMessage is the message safe to return to the caller.
func (e *Error) PublicMessage() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is lets errors.Is match the transport sentinel for the reason.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == e.sentinel()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) sentinel() error {
	switch e.Reason {
	case ReasonUnauthenticated:
		return httpx.ErrUnauthorized
	case ReasonForbidden, ReasonInvalidOperation:
		return httpx.ErrForbidden
	case ReasonNotFound:
		return httpx.ErrNotFound
	default:
		return nil
	}
}

// ReasonOf extracts the rejection reason from err.
func ReasonOf(err error) Reason {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ReasonNone
}

func unauthenticated(msg string, cause error) *Error {
	return &Error{Reason: ReasonUnauthenticated, Message: msg, Err: cause}
}
