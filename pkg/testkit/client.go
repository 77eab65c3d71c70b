// Package testkit drives a full HTTP handler from integration tests.
//
//	api := testkit.NewServer(t, handler)
//	api.Post("/api/auth/login", map[string]string{"username": "a", "password": "b"}).
//		AssertStatus(http.StatusOK)
//
// Each Client keeps its own cookie jar, so two clients on one server are two
// independent browser sessions.
package testkit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Client sends requests to a test server.
type Client struct {
	t      *testing.T
	server *httptest.Server
	http   *http.Client
	token  string
}

// NewServer starts h on a loopback listener for the duration of the test.
func NewServer(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newClient(t, srv)
}

func newClient(t *testing.T, srv *httptest.Server) *Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &Client{t: t, server: srv, http: &http.Client{Jar: jar}}
}

// Fork returns a client on the same server with an empty cookie jar.
func (c *Client) Fork() *Client { return newClient(c.t, c.server) }

// WithToken returns a cookie-less client that authenticates with a bearer
// token.
func (c *Client) WithToken(token string) *Client {
	cl := newClient(c.t, c.server)
	cl.token = token
	return cl
}

// URL is the server address joined with path.
func (c *Client) URL(path string) string { return c.server.URL + path }

func (c *Client) Get(path string) *Response { return c.Do(http.MethodGet, path, nil) }

func (c *Client) Post(path string, body interface{}) *Response {
	return c.Do(http.MethodPost, path, body)
}

func (c *Client) Put(path string, body interface{}) *Response {
	return c.Do(http.MethodPut, path, body)
}

func (c *Client) Delete(path string) *Response { return c.Do(http.MethodDelete, path, nil) }

// Do sends body as JSON. A []byte body is sent as is.
func (c *Client) Do(method, path string, body interface{}) *Response {
	c.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.URL(path), r)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return &Response{t: c.t, Status: resp.StatusCode, Header: resp.Header, Body: raw}
}

// Response is a fully read answer.
type Response struct {
	t      *testing.T
	Status int
	Header http.Header
	Body   []byte
}

// Envelope mirrors the JSON wrapper of every API answer.
type Envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// AssertStatus fails the test unless the status is want.
func (r *Response) AssertStatus(want int) *Response {
	r.t.Helper()
	require.Equal(r.t, want, r.Status, "body: %s", r.Body)
	return r
}

func (r *Response) Envelope() Envelope {
	r.t.Helper()
	var env Envelope
	require.NoError(r.t, json.Unmarshal(r.Body, &env), "body: %s", r.Body)
	return env
}

// Data decodes the envelope's data field into dest.
func (r *Response) Data(dest interface{}) {
	r.t.Helper()
	env := r.Envelope()
	require.NotEmpty(r.t, env.Data, "response has no data: %s", r.Body)
	require.NoError(r.t, json.Unmarshal(env.Data, dest))
}

// AssertData compares the envelope's data field with expected JSON, ignoring
// key order and whitespace.
func (r *Response) AssertData(expected string) {
	r.t.Helper()
	AssertJSONEqual(r.t, []byte(expected), r.Envelope().Data)
}

// AssertJSONEqual deep-compares two JSON documents after decoding both.
func AssertJSONEqual(t *testing.T, expected, actual []byte) {
	t.Helper()
	var exp, act interface{}
	require.NoError(t, json.Unmarshal(expected, &exp), "expected is not valid JSON")
	if !assert.NoError(t, json.Unmarshal(actual, &act), "actual is not valid JSON: %s", actual) {
		return
	}
	assert.Equal(t, exp, act)
}
