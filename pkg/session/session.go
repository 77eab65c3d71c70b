// Package session provides cookie sessions stored in a cache.Store.
//
// Usage (middleware):
//
//	sessions := session.NewManager(store, session.DefaultOptions())
//	r.Use(sessions.Middleware())
//
// Usage (handler):
//
//	sess := session.FromCtx(r)
//	sess.Set("user_id", 42)
//	_ = sess.Save(w)
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/cafe/pkg/cache"
)

// Options configures session behaviour.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

func DefaultOptions() Options {
	return Options{
		CookieName: "cafe_session",
		TTL:        2 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

// Manager loads and persists sessions.
type Manager struct {
	store cache.Store
	opts  Options
}

func NewManager(store cache.Store, opts Options) *Manager {
	return &Manager{store: store, opts: opts}
}

type ctxKey struct{}

// Session is an in-request session handle.
type Session struct {
	mgr       *Manager
	id        string
	data      map[string]interface{}
	changed   bool
	destroyed bool
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func storeKey(id string) string { return "session:" + id }

func (s *Session) Set(key string, value interface{}) {
	s.data[key] = value
	s.changed = true
}

func (s *Session) Get(key string) (interface{}, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.data[key].(string)
	return v, ok
}

// GetUint reads a numeric value; JSON numbers come back as float64.
func (s *Session) GetUint(key string) (uint, bool) {
	switch n := s.data[key].(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case uint:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

func (s *Session) Delete(key string) {
	delete(s.data, key)
	s.changed = true
}

// Regenerate moves the data to a fresh id. Call it on login.
func (s *Session) Regenerate(ctx context.Context) error {
	old := s.id
	id, err := newID()
	if err != nil {
		return fmt.Errorf("session: new id: %w", err)
	}
	s.id = id
	s.changed = true
	return s.mgr.store.Del(ctx, storeKey(old))
}

// Invalidate destroys the session (logout).
func (s *Session) Invalidate() {
	s.data = map[string]interface{}{}
	s.destroyed = true
	s.changed = true
}

func (s *Session) ID() string { return s.id }

// Save persists the session and writes the cookie. A no-op when nothing changed.
func (s *Session) Save(ctx context.Context, w http.ResponseWriter) error {
	if !s.changed {
		return nil
	}
	opts := s.mgr.opts

	if s.destroyed {
		if err := s.mgr.store.Del(ctx, storeKey(s.id)); err != nil {
			return fmt.Errorf("session: delete: %w", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name: opts.CookieName, Value: "", Path: opts.Path, MaxAge: -1,
			HttpOnly: opts.HTTPOnly, Secure: opts.Secure, SameSite: opts.SameSite,
		})
		s.changed = false
		return nil
	}

	if err := s.mgr.store.Set(ctx, storeKey(s.id), s.data, opts.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     opts.CookieName,
		Value:    s.id,
		Path:     opts.Path,
		MaxAge:   int(opts.TTL.Seconds()),
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})

	s.changed = false
	return nil
}

// Middleware loads (or creates) the session for every request and injects it
// into the request context.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &Session{mgr: m, data: map[string]interface{}{}}

			if cookie, err := r.Cookie(m.opts.CookieName); err == nil && cookie.Value != "" {
				sess.id = cookie.Value
				var data map[string]interface{}
				if ok, _ := m.store.Get(r.Context(), storeKey(sess.id), &data); ok && data != nil {
					sess.data = data
				}
			} else {
				sess.id, _ = newID()
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromCtx retrieves the session from the request context, or nil when the
// session middleware is not installed.
func FromCtx(r *http.Request) *Session {
	s, _ := r.Context().Value(ctxKey{}).(*Session)
	return s
}
