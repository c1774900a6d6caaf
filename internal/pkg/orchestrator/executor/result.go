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

package executor

import "github.com/arcentrix/launchpad/internal/engine/model"

// Result is what a task handler produced. It is either a Value (the task is done)
// or an AwaitMarker (the task waits for a callback or a manual upload). Failures are
// reported through the error return instead.
type Result interface {
	isResult()
}

// Value completes a task. Scalar kinds carry ExternalId; structured kinds carry Data.
type Value struct {
	ExternalId string
	Data       map[string]any
}

// AwaitMarker parks a task until something outside the engine happens.
type AwaitMarker struct {
	Status model.TaskStatus
}

func (Value) isResult()       {}
func (AwaitMarker) isResult() {}

// Scalar builds the result of a kind whose output is a single string.
func Scalar(v string) Value {
	return Value{ExternalId: v}
}

// Structured builds the result of a kind whose output is a payload.
func Structured(data map[string]any) Value {
	return Value{Data: data}
}

var (
	awaitCallback    = AwaitMarker{Status: model.TaskAwaitingCallback}
	awaitManualBuild = AwaitMarker{Status: model.TaskAwaitingManualBuild}
)

// scalarKinds is the fixed set of kinds whose result is a single value.
var scalarKinds = map[model.TaskType]struct{}{
	model.TaskForkBranch:              {},
	model.TaskCreateRcTag:             {},
	model.TaskCreateReleaseNotes:      {},
	model.TaskCreateReleaseTag:        {},
	model.TaskCreateFinalReleaseNotes: {},
	model.TaskTriggerAutomationRuns:   {},
}

// IsScalar reports whether results of kind are stored as a single value.
func IsScalar(kind model.TaskType) bool {
	_, ok := scalarKinds[kind]
	return ok
}

// classify normalizes v for kind: scalar values land in both ExternalId and
// Data["value"], structured values only in Data.
func classify(kind model.TaskType, v Value) Value {
	if IsScalar(kind) {
		value := v.ExternalId
		if value == "" {
			if s, ok := v.Data[ValueKey].(string); ok {
				value = s
			}
		}
		return Value{ExternalId: value, Data: map[string]any{ValueKey: value}}
	}
	if v.Data == nil {
		v.Data = map[string]any{}
	}
	return Value{Data: v.Data}
}

// ValueKey is the ExternalData key of scalar results.
const ValueKey = "value"
