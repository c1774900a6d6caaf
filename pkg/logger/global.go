package logger

import (
	"context"
	"fmt"
	"log/slog"

	tracectx "github.com/arcentrix/launchpad/pkg/trace/context"
)

// defaultContext is the goroutine-bound context, if any.
func defaultContext() context.Context {
	if ctx := tracectx.GetContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func logf(ctx context.Context, level slog.Level, msg string, kv ...any) {
	GetLogger().Log(ctx, level, msg, kv...)
}

func Info(args ...any) { logf(defaultContext(), slog.LevelInfo, fmt.Sprint(args...)) }
func Infow(msg string, kv ...any) { logf(defaultContext(), slog.LevelInfo, msg, kv...) }
func Debug(args ...any) { logf(defaultContext(), slog.LevelDebug, fmt.Sprint(args...)) }
func Debugw(msg string, kv ...any) { logf(defaultContext(), slog.LevelDebug, msg, kv...) }
func Warn(args ...any) { logf(defaultContext(), slog.LevelWarn, fmt.Sprint(args...)) }
func Warnw(msg string, kv ...any) { logf(defaultContext(), slog.LevelWarn, msg, kv...) }
func Error(args ...any) { logf(defaultContext(), slog.LevelError, fmt.Sprint(args...)) }
func Errorw(msg string, kv ...any) { logf(defaultContext(), slog.LevelError, msg, kv...) }

func InfoContext(ctx context.Context, msg string, kv ...any) { logf(ctx, slog.LevelInfo, msg, kv...) }
func DebugContext(ctx context.Context, msg string, kv ...any) { logf(ctx, slog.LevelDebug, msg, kv...) }
func WarnContext(ctx context.Context, msg string, kv ...any) { logf(ctx, slog.LevelWarn, msg, kv...) }
func ErrorContext(ctx context.Context, msg string, kv ...any) { logf(ctx, slog.LevelError, msg, kv...) }
