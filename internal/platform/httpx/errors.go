// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Only the outermost public message reaches the client; wrapped causes stay internal.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	detail := ""
	if status != http.StatusInternalServerError {
		detail = PublicMessage(err)
	}
	Problem(w, status, titles[status], detail)
}

var titles = map[int]string{
	http.StatusNotFound:            "Not Found",
	http.StatusConflict:            "Duplicate",
	http.StatusBadRequest:          "Validation Failed",
	http.StatusForbidden:           "Forbidden",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusInternalServerError: "Internal Error",
}

// StatusOf returns the HTTP status RespondError would use for err.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessager is implemented by errors that carry a client-safe message.
type PublicMessager interface {
	PublicMessage() string
}

// PublicMessage returns the client-safe message carried by err, if any.
func PublicMessage(err error) string {
	var pm PublicMessager
	if errors.As(err, &pm) {
		return pm.PublicMessage()
	}
	return err.Error()
}

type publicError struct {
	kind error
	msg  string
}

func (e *publicError) Error() string         { return e.msg }
func (e *publicError) PublicMessage() string { return e.msg }
func (e *publicError) Unwrap() error         { return e.kind }

// NewError returns an error matching kind whose message is shown to clients.
func NewError(kind error, msg string) error {
	return &publicError{kind: kind, msg: msg}
}
