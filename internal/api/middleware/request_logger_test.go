package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskengine/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger(t *testing.T) {
	log, buf := logger.GetTestLogger(t)

	var requestID string
	handler := chimiddleware.RequestID(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, _ = logger.RequestIDFromContext(r.Context())
		logger.FromContext(r.Context()).Info("handling request")
		w.WriteHeader(http.StatusTeapot)
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, requestID)
	logger.AssertLogContains(t, buf, "handling request")
	logger.AssertLogField(t, buf, "request_id", requestID)
	logger.AssertLogField(t, buf, "path", "/health")
	logger.AssertLogContains(t, buf, "request completed")
}
