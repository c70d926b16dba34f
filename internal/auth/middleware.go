package auth

import (
	"log/slog"
	"net/http"

	"quizonomy/internal/apperr"
	"quizonomy/pkg/response"
)

// Middleware resolves the caller with a and attaches the Principal to the
// request context. Requests without a usable credential pass through
// anonymously; RequireUser decides whether that is acceptable.
func Middleware(a Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok, err := a.Authenticate(w, r)
			if err != nil {
				logger.Error("authentication lookup failed", "error", err)
				response.Error(w, err)
				return
			}
			if ok {
				r = r.WithContext(WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			response.Error(w, apperr.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
