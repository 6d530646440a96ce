// Package apierrors provides structured API error handling.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/userdesk/backend/internal/correlation"
	"github.com/userdesk/backend/internal/repository"
	"github.com/userdesk/backend/internal/validation"
)

// APIError represents a structured API error. Status is always false so the
// body reads as a failed envelope.
type APIError struct {
	Status     bool   `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Write writes the error response.
func (e *APIError) Write(w http.ResponseWriter, r *http.Request) {
	e.RequestID = correlation.GetID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(e)
}

// Common errors

func NewBadRequestError(message string) *APIError {
	return &APIError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		StatusCode: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

func NewValidationError(message string, details any) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func NewInternalError(message string) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewServiceUnavailableError(service string) *APIError {
	return &APIError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    service + " is temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
}

// FromError converts a domain error to an APIError. fallback is the message
// used for anything unrecognised.
func FromError(err error, fallback string) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return NewValidationError(verrs.Error(), verrs.Failed())
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewServiceUnavailableError("directory")
	}
	return NewInternalError(fallback)
}

// Recoverer turns panics into a JSON internal error.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				NewInternalError("Internal server error").Write(w, r)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
