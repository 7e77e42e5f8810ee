package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskengine/internal/api/shared"
	"github.com/phrazzld/taskengine/internal/service/auth"
	"github.com/stretchr/testify/assert"
)

// stubTokenService returns fixed claims or a fixed error.
type stubTokenService struct {
	claims *auth.Claims
	err    error
}

func (s stubTokenService) GenerateToken(ctx context.Context, subject string) (string, error) {
	return "token-for-" + subject, nil
}

func (s stubTokenService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	return s.claims, s.err
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		authHeader      string
		validateErr     error
		claims          *auth.Claims
		expectedStatus  int
		expectedSubject string
	}{
		{
			name:            "valid token",
			authHeader:      "Bearer valid-token",
			claims:          &auth.Claims{Subject: "operator"},
			expectedStatus:  http.StatusOK,
			expectedSubject: "operator",
		},
		{
			name:           "missing auth header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid auth format",
			authHeader:     "InvalidFormat",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong scheme",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "expired token",
			authHeader:     "Bearer expired-token",
			validateErr:    auth.ErrExpiredToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			authHeader:     "Bearer invalid-token",
			validateErr:    auth.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong token type",
			authHeader:     "Bearer refresh-token",
			validateErr:    auth.ErrWrongTokenType,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unexpected error",
			authHeader:     "Bearer some-token",
			validateErr:    errors.New("key store unavailable"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			middleware := NewAuthMiddleware(stubTokenService{claims: tt.claims, err: tt.validateErr})

			var capturedSubject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedSubject, _ = shared.GetSubject(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/engine/stats", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			middleware.Authenticate(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedSubject, capturedSubject)
			if tt.expectedStatus != http.StatusOK {
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			}
		})
	}
}
