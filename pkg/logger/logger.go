// Package logger provides the process-wide structured logger built on log/slog.
//
// WithCtx returns the request-scoped logger injected by the HTTP logging
// middleware, so every line from a handler carries its request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("item added", "order_id", order.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/cafe/config"
)

var L *slog.Logger

func init() {
	L = slog.New(newHandler(os.Stdout, config.IsProduction()))
	slog.SetDefault(L)
}

func newHandler(w io.Writer, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// AttachMongo fans every record out to a MongoDB collection in addition to
// stdout. The returned func flushes and disconnects; call it on shutdown.
func AttachMongo(uri, db, collection string) (func(), error) {
	mh, err := NewMongoHandler(uri, db, collection)
	if err != nil {
		return func() {}, err
	}
	L = slog.New(NewMultiHandler(newHandler(os.Stdout, config.IsProduction()), mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

type ctxKey struct{}

// WithCtx returns the logger stored in ctx by InjectLogger, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger in ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Audit logs a security relevant event. Audit lines carry audit=true so the
// Mongo sink can be queried for them.
func Audit(ctx context.Context, msg string, args ...any) {
	WithCtx(ctx).Info(msg, append([]any{"audit", true}, args...)...)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
