// Package rbac gates routes by the caller's role.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/cafe/pkg/middleware"
	"github.com/shashiranjanraj/cafe/pkg/response"
)

// HasRole allows only callers whose role is one of roles. Anonymous callers
// get 401, others 403. Run middleware.Authenticate first.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := middleware.IdentityFromCtx(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[id.Role] {
				response.Forbidden(w, "staff only")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guest blocks callers that are already signed in.
func Guest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.IdentityFromCtx(r.Context()); ok {
			response.Error(w, http.StatusConflict, "Already authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}
