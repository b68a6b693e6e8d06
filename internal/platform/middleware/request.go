package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"rgpdgate/pkg/platform/clock"
	"rgpdgate/pkg/requestcontext"
)

// RequestContext copies chi's request id and the request start time into the
// HTTP-independent request context. Mount after chi's RequestID middleware.
func RequestContext(c clock.Clock) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = requestcontext.WithRequestID(ctx, chimw.GetReqID(ctx))
			ctx = requestcontext.WithTime(ctx, c.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
