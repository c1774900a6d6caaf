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

// Package storagetest provides an in-memory object store.
package storagetest

import (
	"context"
	"io"
	"sync"
	"time"
)

// Memory keeps objects in a map. Full keys carry a "mem/" prefix.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailUpload makes every Upload return it after draining the reader.
	FailUpload error
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpload != nil {
		return "", m.FailUpload
	}
	full := "mem/" + key
	m.objects[full] = data
	return full, nil
}

func (m *Memory) Delete(_ context.Context, fullKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, fullKey)
	return nil
}

func (m *Memory) Exists(_ context.Context, fullKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[fullKey]
	return ok, nil
}

func (m *Memory) PresignedURL(_ context.Context, fullKey string, expiry time.Duration) (string, error) {
	return "https://objects.test/" + fullKey + "?expires=" + expiry.String(), nil
}

// Object returns the stored bytes of fullKey.
func (m *Memory) Object(fullKey string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[fullKey]
	return b, ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
