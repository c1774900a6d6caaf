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

import "testing"

func TestRequireNonEmpty(t *testing.T) {
	if err := RequireNonEmpty("name", "value"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := RequireNonEmpty("name", ""); err == nil {
		t.Fatal("expected error for empty value")
	}
	if err := RequireNonEmptySlice("items", nil); err == nil {
		t.Fatal("expected error for nil slice")
	}
}

func TestMessageValidate(t *testing.T) {
	if err := (Message{Value: []byte("x")}).Validate(); err == nil {
		t.Fatal("expected error without topic")
	}
	if err := (Message{Topic: "t"}).Validate(); err == nil {
		t.Fatal("expected error without value")
	}
	if err := (Message{Topic: "t", Value: []byte("x")}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
