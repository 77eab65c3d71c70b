package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/cafe/pkg/response"
)

// bucket counts requests of one key in a fixed window.
type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter allows max requests per key per window.
type Limiter struct {
	max    int
	window time.Duration
	key    func(*http.Request) string
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

// NewLimiter limits by client IP. Use KeyBy to change the key.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		key:     ClientIP,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

// KeyBy sets the function that groups requests.
func (l *Limiter) KeyBy(fn func(*http.Request) string) *Limiter {
	l.key = fn
	return l
}

// Allow records one hit for key and reports whether it is within the limit
// and how long until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.max, b.resetAt.Sub(now)
}

// sweep drops expired buckets at most once per window.
func (l *Limiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
		}
	}
	l.nextSweep = now.Add(l.window)
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry := l.Allow(l.key(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP is the first X-Forwarded-For hop, else the peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserOrIP keys authenticated requests by user id.
func UserOrIP(r *http.Request) string {
	if id, ok := IdentityFromCtx(r.Context()); ok {
		return "user:" + strconv.FormatUint(uint64(id.UserID), 10)
	}
	return "ip:" + ClientIP(r)
}
