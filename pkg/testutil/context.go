package testutil

import (
	"net/http"

	"riskgate/pkg/requestcontext"
)

// WithActor adds an authenticated actor and role to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithActor(req *http.Request, actor, role string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), actor, role)
	return req.WithContext(ctx)
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}
