// Package correlation provides request correlation ID handling.
package correlation

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// HeaderName is the HTTP header for correlation IDs.
const HeaderName = "X-Correlation-ID"

// Middleware reuses an inbound correlation ID or mints one, then echoes it on
// the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderName, id)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

// GetID retrieves the correlation ID from context.
func GetID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithID adds a correlation ID to the context.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// Logger returns base annotated with the request's correlation ID, if any.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := GetID(ctx); id != "" {
		return base.With("correlation_id", id)
	}
	return base
}

// Transport forwards the context's correlation ID on outbound requests.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if id := GetID(req.Context()); id != "" && req.Header.Get(HeaderName) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(HeaderName, id)
	}
	return base.RoundTrip(req)
}
