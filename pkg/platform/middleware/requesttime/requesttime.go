// Package requesttime pins one "now" per HTTP request, so every audit stamp
// written while serving it (findings, uploads, generated files) agrees.
package requesttime

import (
	"net/http"
	"time"

	"tdrs/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Fixed is Middleware with a pinned clock, for handler tests.
func Fixed(t time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), t)))
		})
	}
}
