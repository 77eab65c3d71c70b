package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/cafe/pkg/router"
)

func tag(name string) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestGroupPrefixAndMiddlewareOrder(t *testing.T) {
	r := router.New()
	api := r.Group("/api/", tag("api"))
	orders := api.Group("orders", tag("orders"))
	orders.Get("/{id}", "orders.show", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(req, "id")))
	}, tag("route"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/7", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Body.String())
	assert.Equal(t, []string{"api", "orders", "route"}, rec.Header().Values("X-Chain"))
}

func TestNamedRouteURL(t *testing.T) {
	r := router.New()
	r.Group("/api").Delete("/orders/{id}", "orders.destroy", func(http.ResponseWriter, *http.Request) {})

	url, err := r.URL("orders.destroy", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/42", url)

	_, err = r.URL("orders.destroy", nil)
	assert.Error(t, err)
	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesAreSortedAndNotFoundIsCustom(t *testing.T) {
	r := router.New()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	g := r.Group("/api")
	g.Post("/b", "b.store", func(http.ResponseWriter, *http.Request) {})
	g.Get("/b", "b.index", func(http.ResponseWriter, *http.Request) {})
	g.Get("/a", "", func(http.ResponseWriter, *http.Request) {})
	r.Handle("/metrics", "metrics", http.NotFoundHandler())

	assert.Equal(t, []router.RouteInfo{
		{Method: "GET", Path: "/api/a"},
		{Method: "GET", Path: "/api/b", Name: "b.index"},
		{Method: "POST", Path: "/api/b", Name: "b.store"},
		{Method: "*", Path: "/metrics", Name: "metrics"},
	}, r.Routes())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
