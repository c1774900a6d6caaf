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

// Package errs holds the error taxonomy shared by the orchestration engine and
// the layers that call it.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound aborts the current step only; it never pauses a release.
	ErrNotFound = errors.New("not found")
	// ErrConsumptionConflict is returned when an upload was already consumed,
	// or when a consumed upload is deleted.
	ErrConsumptionConflict = errors.New("upload already consumed")
	// ErrInvalidState rejects an operation the release's current state does not allow.
	ErrInvalidState = errors.New("invalid state")
)

// ValidationError reports missing or malformed configuration or input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ExternalCallError reports a collaborator that failed or returned an unusable result.
type ExternalCallError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}

// External wraps err as an ExternalCallError. A nil err yields nil.
func External(collaborator, op string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalCallError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalCallError{Collaborator: collaborator, Op: op, Err: err}
}

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsExternal(err error) bool {
	var e *ExternalCallError
	return errors.As(err, &e)
}

func IsConsumptionConflict(err error) bool {
	return errors.Is(err, ErrConsumptionConflict)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// InvalidState wraps ErrInvalidState with the reason.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// PausesRelease reports whether a task error must pause its release.
func PausesRelease(err error) bool {
	return err != nil && !IsNotFound(err)
}
