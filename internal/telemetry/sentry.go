package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dukerupert/marketplace/internal/domain"
)

// SentryConfig configures error reporting. Reporting stays off unless
// Enabled is set and DSN is present.
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64 // 0 means report everything
	TracesSampleRate float64
	Debug            bool
}

var sentryEnabled atomic.Bool

// InitSentry starts the Sentry client. The returned func flushes buffered
// events and must run before the process exits.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	sentryEnabled.Store(false)
	noop := func() {}

	switch {
	case !cfg.Enabled:
		logger.Info("error reporting disabled")
		return noop, nil
	case cfg.DSN == "":
		logger.Warn("SENTRY_ENABLED is set without SENTRY_DSN; error reporting disabled")
		return noop, nil
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       rate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	sentryEnabled.Store(true)

	logger.Info("error reporting enabled",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", rate,
	)
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// scrubEvent strips session credentials before an event leaves the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request == nil {
		return event
	}
	for _, h := range []string{"Authorization", "Cookie"} {
		delete(event.Request.Headers, h)
	}
	event.Request.Cookies = ""
	return event
}

// IsEnabled reports whether events are being sent.
func IsEnabled() bool {
	return sentryEnabled.Load()
}

// CaptureError reports err on the global hub. Domain errors are tagged
// with their code and op so they group by failure rather than message.
func CaptureError(err error, extras map[string]interface{}) {
	capture(sentry.CurrentHub(), err, extras)
}

// CaptureErrorFromContext reports err on the request hub when there is
// one, keeping the request and user set by SentryContextMiddleware.
func CaptureErrorFromContext(ctx context.Context, err error, extras map[string]interface{}) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	capture(hub, err, extras)
}

func capture(hub *sentry.Hub, err error, extras map[string]interface{}) {
	if !IsEnabled() || err == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error.code", domain.ErrorCode(err))
		if op := domain.ErrorOp(err); op != "" {
			scope.SetTag("error.op", op)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}

// AddBreadcrumb records a step that shows up on the next captured event.
func AddBreadcrumb(category, message string, data map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Data:     data,
		Level:    sentry.LevelInfo,
	})
}

// StartSpan times a slow operation such as PDF rendering.
func StartSpan(ctx context.Context, operation, description string) (context.Context, func()) {
	if !IsEnabled() {
		return ctx, func() {}
	}
	span := sentry.StartSpan(ctx, operation)
	span.Description = description
	return span.Context(), span.Finish
}

// UserInfo identifies the caller on reported events.
type UserInfo struct {
	ID    string
	Email string
}

// SentryContextMiddleware gives each request its own hub carrying the route
// and, when lookup finds one, the signed in user. It must run after the
// middleware that resolves the session.
func SentryContextMiddleware(lookup func(ctx context.Context) *UserInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetRequest(r)
				if id := domain.RequestIDFromContext(r.Context()); id != "" {
					scope.SetTag("request_id", id)
				}
				if lookup == nil {
					return
				}
				if u := lookup(r.Context()); u != nil {
					scope.SetUser(sentry.User{ID: u.ID, Email: u.Email})
				}
			})

			next.ServeHTTP(w, r.WithContext(sentry.SetHubOnContext(r.Context(), hub)))
		})
	}
}

// HTTPTransport traces outgoing calls such as the Slack webhook.
type HTTPTransport struct {
	Transport http.RoundTripper
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if !IsEnabled() {
		return base.RoundTrip(req)
	}

	span := sentry.StartSpan(req.Context(), "http.client")
	span.Description = req.Method + " " + req.URL.Host
	defer span.Finish()

	resp, err := base.RoundTrip(req)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}
	span.SetData("http.status_code", resp.StatusCode)
	return resp, nil
}
