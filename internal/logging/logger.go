// Package logging defines the structured logger used by services and workers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is a context-aware, structured logger. Args are key/value pairs:
//
//	log.Info(ctx, "template skipped", "template_id", id, "err", err)
//
// Fields attached to ctx with ContextWith are written before args.
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New returns the process logger for service ("api", "worker", ...). Production
// writes JSON at info level, other environments write text at debug level.
func New(env, service string) Logger {
	return newLogger(os.Stdout, env, service)
}

func newLogger(w io.Writer, env, service string) Logger {
	var h slog.Handler
	if env == "production" || env == "prod" {
		h = slog.NewJSONHandler(w, nil)
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return FromSlog(slog.New(h).With("service", service))
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() Logger {
	return FromSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// FromSlog adapts l.
func FromSlog(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

func (s *slogLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.l.Enabled(ctx, level) {
		return
	}
	if fields := fieldsFrom(ctx); len(fields) > 0 {
		args = append(fields[:len(fields):len(fields)], args...)
	}
	s.l.Log(ctx, level, msg, args...)
}

type fieldsKey struct{}

// ContextWith returns a copy of ctx carrying extra log fields, such as a
// request id, for every line logged with it.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev := fieldsFrom(ctx)
	fields := make([]any, 0, len(prev)+len(args))
	fields = append(append(fields, prev...), args...)
	return context.WithValue(ctx, fieldsKey{}, fields)
}

func fieldsFrom(ctx context.Context) []any {
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return fields
}
