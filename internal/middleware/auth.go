package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"crisisConnect/internal/render"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderAPIKey    = "X-API-Key"
)

// Identity is the authenticated caller as asserted by the upstream gateway.
type Identity struct {
	UserID string
	Email  string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// RequireIdentity rejects requests without a caller id.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			render.Fail(w, http.StatusUnauthorized, "missing "+HeaderUserID)
			return
		}
		id := Identity{
			UserID: userID,
			Email:  strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// APIKeyMiddleware guards operator routes. An empty key disables them.
func APIKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				render.Fail(w, http.StatusForbidden, "admin API disabled")
				return
			}
			got := r.Header.Get(HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				render.Fail(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
