package shared

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// SubjectContextKey holds the authenticated token subject.
	SubjectContextKey ContextKey = "subject"
)

// GetTraceID returns the request ID assigned by chi's RequestID middleware,
// or "" outside a request.
func GetTraceID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// GetSubject returns the authenticated subject stored in ctx.
func GetSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectContextKey).(string)
	return subject, ok && subject != ""
}
