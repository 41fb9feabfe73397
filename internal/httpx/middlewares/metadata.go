package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

// ContextKeyRequestID carries the chi request id as a typed context value so
// downstream code can read it without importing chi's middleware package.
const ContextKeyRequestID contextKey = "request_id"

// HeaderXRequestID echoes the request id back to the caller.
const HeaderXRequestID = "X-Request-Id"

func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
		w.Header().Set(HeaderXRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
