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

package mq

import (
	"context"
	"fmt"
)

// Message is one outbound record.
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// Validate checks the fields every broker needs.
func (m Message) Validate() error {
	if err := RequireNonEmpty("topic", m.Topic); err != nil {
		return err
	}
	if len(m.Value) == 0 {
		return fmt.Errorf("value is required")
	}
	return nil
}

// Publisher sends messages to a broker and blocks until the broker acknowledges.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// RequireNonEmpty validates a string value is provided.
func RequireNonEmpty(name string, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

// RequireNonEmptySlice validates a slice contains at least one item.
func RequireNonEmptySlice(name string, value []string) error {
	if len(value) == 0 {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}
