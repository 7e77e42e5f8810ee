package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskengine/internal/service/auth"
	"github.com/phrazzld/taskengine/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.As(err, &validationErrs):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrCapacityExceeded):
		return http.StatusTooManyRequests

	case errors.Is(err, task.ErrEngineNotRunning),
		errors.Is(err, task.ErrEngineStopped),
		errors.Is(err, task.ErrCanceled):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.As(err, &validationErrs):
		return "Invalid request data"
	case errors.Is(err, task.ErrCapacityExceeded):
		return "Job queue is full"
	case errors.Is(err, task.ErrEngineNotRunning),
		errors.Is(err, task.ErrEngineStopped):
		return "Engine is not accepting jobs"
	case errors.Is(err, task.ErrCanceled):
		return "Job submission was canceled"
	default:
		return "An unexpected error occurred"
	}
}
