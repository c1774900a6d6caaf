package logger

import (
	"context"
	"fmt"
	"log/slog"
)

func (l *Logger) Info(args ...any) {
	l.Log(defaultContext(), slog.LevelInfo, fmt.Sprint(args...))
}

func (l *Logger) Infow(msg string, kv ...any) {
	l.Log(defaultContext(), slog.LevelInfo, msg, kv...)
}

func (l *Logger) Debug(args ...any) {
	l.Log(defaultContext(), slog.LevelDebug, fmt.Sprint(args...))
}

func (l *Logger) Debugw(msg string, kv ...any) {
	l.Log(defaultContext(), slog.LevelDebug, msg, kv...)
}

func (l *Logger) Warn(args ...any) {
	l.Log(defaultContext(), slog.LevelWarn, fmt.Sprint(args...))
}

func (l *Logger) Warnw(msg string, kv ...any) {
	l.Log(defaultContext(), slog.LevelWarn, msg, kv...)
}

func (l *Logger) Error(args ...any) {
	l.Log(defaultContext(), slog.LevelError, fmt.Sprint(args...))
}

func (l *Logger) Errorw(msg string, kv ...any) {
	l.Log(defaultContext(), slog.LevelError, msg, kv...)
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{Logger: l.Logger.With(kv...)}
}

// InfoContext, DebugContext, WarnContext and ErrorContext are promoted from slog.Logger.
// ILogger is the surface components take when a logger is injected rather
// than looked up by channel.
type ILogger interface {
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
	InfoContext(ctx context.Context, msg string, kv ...any)
	WarnContext(ctx context.Context, msg string, kv ...any)
	ErrorContext(ctx context.Context, msg string, kv ...any)
}

var _ ILogger = (*Logger)(nil)
