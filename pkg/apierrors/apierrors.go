// Package apierrors defines typed domain errors shared between services,
// stores, and transport. Codes let callers branch on failure category without
// string matching, and the HTTP layer maps codes to status codes in one place.
package apierrors

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeBadRequest       Code = "bad_request"
	CodeNotFound         Code = "not_found"
	CodeIngenEndring     Code = "ingen_endring"
	CodeVedtakIkkeFattet Code = "vedtak_ikke_fattet"
	CodeInternal         Code = "internal_error"
)

// Error carries a stable code plus a human-readable message.
type Error struct {
	Code    Code
	Message string
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors by code so errors.Is works on sentinel values.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// ToHTTPStatus translates a code to an HTTP status for transport handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeIngenEndring:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeVedtakIkkeFattet:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
