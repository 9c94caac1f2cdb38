package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/marketplace/internal/domain"
)

// WithRequestLogger stores a logger tagged with the method, path and request
// ID. WithUser adds user_id to it once the session resolves, so this must
// run first.
func WithRequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			}
			if id := GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			ctx := domain.NewContextWithLogger(r.Context(), base.With(attrs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the request logger, or slog.Default outside a request.
func GetLogger(ctx context.Context) *slog.Logger {
	return domain.LoggerFromContext(ctx, nil)
}
