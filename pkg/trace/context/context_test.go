package context

import (
	"context"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

func TestRunWithContextScopesToGoroutine(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "release-1")

	RunWithContext(ctx, func(context.Context) {
		if GetContext() != ctx {
			t.Fatal("expected bound context inside RunWithContext")
		}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if GetContext() != nil {
				t.Error("context leaked into another goroutine")
			}
		}()
		wg.Wait()
	})

	if GetContext() != nil {
		t.Fatal("expected context cleared after RunWithContext")
	}
}

func TestWithSpanCopiesBoundSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	spanCtx, span := tp.Tracer("ctx-test").Start(context.Background(), "tick")
	defer span.End()

	SetContext(spanCtx)
	defer ClearContext()

	got := WithSpan(context.Background())
	if trace.SpanContextFromContext(got).TraceID() != span.SpanContext().TraceID() {
		t.Fatal("expected span copied from goroutine context")
	}
}
