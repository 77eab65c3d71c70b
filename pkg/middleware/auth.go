// Package middleware holds the HTTP middleware of the API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/cafe/pkg/auth"
	"github.com/shashiranjanraj/cafe/pkg/response"
	"github.com/shashiranjanraj/cafe/pkg/session"
)

// Session keys written at login.
const (
	SessionUserID = "user_id"
	SessionRole   = "role"
)

// Identity is the authenticated caller. The zero value is anonymous.
type Identity struct {
	UserID uint
	Role   string
	// Via is "bearer" or "session".
	Via string
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromCtx returns the caller resolved by Authenticate.
func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != 0
}

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// Authenticate resolves the caller from an Authorization bearer token or,
// failing that, from the session cookie. Requests without either continue
// anonymously; a present but invalid token is rejected with 401.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if header := r.Header.Get("Authorization"); header != "" {
				raw, ok := strings.CutPrefix(header, "Bearer ")
				if !ok || raw == "" {
					response.Unauthorized(w)
					return
				}
				claims, err := tokens.Parse(raw)
				if err != nil {
					response.Error(w, http.StatusUnauthorized, "Invalid token")
					return
				}
				ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Role: claims.Role, Via: "bearer"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if sess := session.FromCtx(r); sess != nil {
				if uid, ok := sess.GetUint(SessionUserID); ok && uid != 0 {
					role, _ := sess.GetString(SessionRole)
					ctx := WithIdentity(r.Context(), Identity{UserID: uid, Role: role, Via: "session"})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromCtx(r.Context()); !ok {
			response.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
