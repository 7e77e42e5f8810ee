package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/taskengine/internal/service/auth"
	"github.com/phrazzld/taskengine/internal/task"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
		{"queue full", fmt.Errorf("admit: %w", task.ErrCapacityExceeded), http.StatusTooManyRequests, "Job queue is full"},
		{"not running", fmt.Errorf("%w: state draining", task.ErrEngineNotRunning), http.StatusServiceUnavailable, "Engine is not accepting jobs"},
		{"canceled", task.ErrCanceled, http.StatusServiceUnavailable, "Job submission was canceled"},
		{"unknown", errors.New("database password is hunter2"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
