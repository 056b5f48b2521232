// Package apperror defines the typed errors that flow from the auth and chat
// services up to the HTTP layer.
//
// Each AppError wraps one sentinel (ErrValidation, ErrInvalidToken, ...) so
// callers branch with errors.Is, and carries the exact client-facing message.
// Form errors also carry Fields: a per-field list of messages the client
// renders next to each input.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNoToken            = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrBadRequest         = errors.New("bad request")
)

// Fields maps a form field name (userId, password, nickname) to its messages.
type Fields map[string][]string

// NewFields returns Fields with an empty, non-nil list for each name so the
// JSON encoding shows every form field, even when nothing failed for it.
func NewFields(names ...string) Fields {
	f := make(Fields, len(names))
	for _, n := range names {
		f[n] = []string{}
	}
	return f
}

// Add appends a message to a field's list. Empty messages are ignored.
func (f Fields) Add(name, message string) {
	if message == "" {
		return
	}
	f[name] = append(f[name], message)
}

// Empty reports whether no field has a message.
func (f Fields) Empty() bool {
	for _, msgs := range f {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // client-facing message
	Fields  Fields // nil for message-only errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Validation is a form error: message plus the per-field messages.
func Validation(message string, fields Fields) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Fields: fields}
}

// InvalidCredentials is returned for an unknown user or a wrong password.
// The two cases are indistinguishable to the client.
func InvalidCredentials(message string, fields Fields) *AppError {
	return &AppError{Err: ErrInvalidCredentials, Message: message, Fields: fields}
}

func DuplicateKey(message string, fields Fields) *AppError {
	return &AppError{Err: ErrDuplicateKey, Message: message, Fields: fields}
}

func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}

func NoToken(message string) *AppError {
	return &AppError{Err: ErrNoToken, Message: message}
}

func InvalidToken(message string) *AppError {
	return &AppError{Err: ErrInvalidToken, Message: message}
}

// BadRequest is a request that was understood but could not be completed,
// such as a refresh whose freshly minted token fails verification.
func BadRequest(message string) *AppError {
	return &AppError{Err: ErrBadRequest, Message: message}
}
