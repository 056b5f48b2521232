package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so all responses
// share one shape and one place decides the status code.
//
// ERROR FORMAT:
//   {"message": "Invalid credentials", "status": 400, "fields": {"userId": [], "password": []}}
//
// status mirrors the HTTP status so clients that only look at the body still
// see it. fields is present for form errors only.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/chat-auth/internal/apperror"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string          `json:"message"`
	Status  int             `json:"status"`
	Fields  apperror.Fields `json:"fields,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
// Headers must be set before WriteHeader; anything set after is dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an error to its HTTP status. Anything that is not a typed
// application error is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrInvalidCredentials),
		errors.Is(err, apperror.ErrDuplicateKey),
		errors.Is(err, apperror.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized),
		errors.Is(err, apperror.ErrNoToken),
		errors.Is(err, apperror.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err to the client. Typed errors carry their own message.
// Anything else is logged and replaced by internalMessage, so driver errors,
// paths and SQL never reach the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, internalMessage string) {
	var appErr *apperror.AppError
	status := statusFor(err)

	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		logger.Error("request failed",
			slog.String("error", err.Error()),
			slog.String("reply", internalMessage),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: internalMessage,
			Status:  http.StatusInternalServerError,
		})
		return
	}

	writeJSON(w, status, ErrorResponse{
		Message: appErr.Message,
		Status:  status,
		Fields:  appErr.Fields,
	})
}

// decodeBody reads a JSON body into a T. A missing, oversized or malformed
// body yields the zero T: every field is then empty and fails validation,
// which is the answer the client should get anyway.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) T {
	var v T
	if r.Body == nil {
		return v
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&v); err != nil {
		var zero T
		return zero
	}
	return v
}
