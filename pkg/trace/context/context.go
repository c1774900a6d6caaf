// Copyright 2025 Arcentra Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package context binds a context.Context to the running goroutine so code
// without a ctx parameter (global log calls) can still find the active span.
package context

import (
	"context"
	"sync"

	"github.com/timandy/routine"
	"go.opentelemetry.io/otel/trace"
)

const shardCount = 64

type shard struct {
	mu   sync.RWMutex
	data map[int64]context.Context
}

var shards [shardCount]*shard

func init() {
	for i := range shards {
		shards[i] = &shard{data: make(map[int64]context.Context)}
	}
}

func current() (int64, *shard) {
	goid := int64(routine.Goid())
	return goid, shards[uint64(goid)%shardCount]
}

// GetContext returns the context bound to this goroutine, or nil.
func GetContext() context.Context {
	goid, s := current()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[goid]
}

func SetContext(ctx context.Context) {
	goid, s := current()
	s.mu.Lock()
	s.data[goid] = ctx
	s.mu.Unlock()
}

func ClearContext() {
	goid, s := current()
	s.mu.Lock()
	delete(s.data, goid)
	s.mu.Unlock()
}

// RunWithContext binds ctx for the duration of fn.
func RunWithContext(ctx context.Context, fn func(ctx context.Context)) {
	SetContext(ctx)
	defer ClearContext()
	fn(ctx)
}

// WithSpan copies the goroutine-bound span into ctx when ctx carries none.
func WithSpan(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	if bound := GetContext(); bound != nil {
		if span := trace.SpanFromContext(bound); span.SpanContext().IsValid() {
			return trace.ContextWithSpan(ctx, span)
		}
	}
	return ctx
}
