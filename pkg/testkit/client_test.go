package testkit_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/cafe/pkg/testkit"
)

func echo() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		}
		cookie := ""
		if c, err := r.Cookie("sid"); err == nil {
			cookie = c.Value
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": 200,
			"data": map[string]interface{}{
				"method": r.Method,
				"auth":   r.Header.Get("Authorization"),
				"cookie": cookie,
				"body":   body,
			},
		})
	})
}

func TestClientKeepsCookiesPerClient(t *testing.T) {
	api := testkit.NewServer(t, echo())
	api.Post("/login", nil).AssertStatus(http.StatusOK)

	var got struct{ Cookie string }
	api.Get("/me").Data(&got)
	assert.Equal(t, "abc", got.Cookie)

	api.Fork().Get("/me").Data(&got)
	assert.Empty(t, got.Cookie)
}

func TestClientSendsTokenAndJSON(t *testing.T) {
	api := testkit.NewServer(t, echo()).WithToken("t0k")

	api.Put("/x", map[string]int{"n": 1}).AssertData(`{
		"method": "PUT", "auth": "Bearer t0k", "cookie": "", "body": {"n": 1}
	}`)
}
