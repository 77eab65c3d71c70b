package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/cafe/pkg/middleware"
	"github.com/shashiranjanraj/cafe/pkg/rbac"
)

func serve(h http.Handler, id *middleware.Identity) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *id))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestHasRole(t *testing.T) {
	h := rbac.HasRole("elevated")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusUnauthorized, serve(h, nil))
	assert.Equal(t, http.StatusForbidden, serve(h, &middleware.Identity{UserID: 1, Role: "regular"}))
	assert.Equal(t, http.StatusOK, serve(h, &middleware.Identity{UserID: 2, Role: "elevated"}))
}

func TestGuest(t *testing.T) {
	h := rbac.Guest(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, serve(h, nil))
	assert.Equal(t, http.StatusConflict, serve(h, &middleware.Identity{UserID: 1, Role: "regular"}))
}
