// Package apperr holds the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("already exists")
	ErrPersistence  = errors.New("persistence error")
)

// Validation wraps ErrValidation with a human readable message.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NotFound reports a missing entity, e.g. NotFound("user").
func NotFound(what string) error {
	return fmt.Errorf("%w: %s not found", ErrNotFound, what)
}

// Persistence wraps a store failure. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// HTTPStatus maps an error to the status code surfaced by the API.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing part of err: the text after the sentinel
// prefix for known kinds, or "" when err carries no safe message.
func Message(err error) string {
	for _, s := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrUnauthorized, ErrConflict} {
		if !errors.Is(err, s) {
			continue
		}
		msg := err.Error()
		if rest, ok := strings.CutPrefix(msg, s.Error()+": "); ok {
			return rest
		}
		return msg
	}
	return ""
}
