package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/marketplace/internal/cookie"
	"github.com/dukerupert/marketplace/internal/domain"
)

// SessionResolver resolves a session token to its user.
type SessionResolver interface {
	GetUserBySessionToken(ctx context.Context, token string) (*domain.User, error)
}

// SessionToken returns the bearer token from the Authorization header,
// falling back to the session cookie browsers send. Empty when neither is
// present.
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return cookie.Get(r, cookie.SessionCookieName)
}

// WithUser attaches the session's user to the request context and tags the
// request logger with user_id. Requests without a valid session continue
// anonymously.
func WithUser(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := sessions.GetUserBySessionToken(r.Context(), token)
			if err != nil {
				if !domain.IsCode(err, domain.EUNAUTHORIZED) {
					GetLogger(r.Context()).Warn("session lookup failed", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := domain.NewContextWithUser(r.Context(), user)
			ctx = domain.NewContextWithLogger(ctx, GetLogger(ctx).With(slog.String("user_id", user.ID.String())))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			respondUnauthorized(w, r)
			return
		}
		if !user.IsAdmin() {
			respondForbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext returns the authenticated user or nil.
func GetUserFromContext(ctx context.Context) *domain.User {
	return domain.UserFromContext(ctx)
}
