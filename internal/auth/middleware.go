package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/userdesk/backend/internal/apierrors"
	"github.com/userdesk/backend/internal/model"
)

// CompanyHeader carries the tenant identifier on directory requests.
const CompanyHeader = "company_id"

// contextKey is an unexported type used for context keys to avoid collisions.
type contextKey int

const (
	sessionContextKey contextKey = iota
)

// Middleware returns an HTTP middleware that requires a Bearer token of a live
// session and injects the session into the request context.
func Middleware(gate *Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				apierrors.NewUnauthorizedError("missing authorization header").Write(w, r)
				return
			}

			session, err := gate.Authenticate(r.Context(), token)
			if err != nil {
				apierrors.NewUnauthorizedError("invalid or expired token").Write(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireCompany rejects requests whose company_id header does not match
// companyID. An empty companyID disables the check.
func RequireCompany(companyID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if companyID != "" && r.Header.Get(CompanyHeader) != companyID {
				apierrors.NewForbiddenError("unknown company").Write(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// WithSession stores the session in ctx.
func WithSession(ctx context.Context, s model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext extracts the session stored by the auth middleware.
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(model.Session)
	return s, ok
}
