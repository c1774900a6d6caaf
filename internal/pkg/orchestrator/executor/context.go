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

import (
	"fmt"
	"time"

	"github.com/arcentrix/launchpad/internal/engine/model"
)

// ExecutionContext is everything a handler may read about the release it works for.
// It is assembled by the state machine once per step.
type ExecutionContext struct {
	Release *model.Release
	CronJob *model.CronJob
	// Cycle is the active regression cycle; nil outside stage 2.
	Cycle *model.RegressionCycle
	// PreviousCycle is the cycle before Cycle, or the latest cycle during stage 3.
	PreviousCycle *model.RegressionCycle
	// CicdConfig is nil when the release has no CI/CD configuration.
	CicdConfig *model.CicdConfig
	// Config is the release config with the active slot's overrides applied.
	Config model.CronConfig
	// Tasks holds every task of the release created so far.
	Tasks []*model.ReleaseTask
	Now   time.Time
}

// CycleId returns the id of the active cycle, or "".
func (c *ExecutionContext) CycleId() string {
	if c.Cycle == nil {
		return ""
	}
	return c.Cycle.CycleId
}

// Find returns the task of kind in cycleId, or nil.
func (c *ExecutionContext) Find(kind model.TaskType, cycleId string) *model.ReleaseTask {
	for _, t := range c.Tasks {
		if t.TaskType == kind && t.CycleId == cycleId {
			return t
		}
	}
	return nil
}

// Output returns the string payload written by a completed task of kind.
func (c *ExecutionContext) Output(kind model.TaskType, cycleId string) (map[string]string, error) {
	t := c.Find(kind, cycleId)
	if t == nil || t.TaskStatus != model.TaskCompleted {
		return nil, fmt.Errorf("%s has not completed", kind)
	}
	out := make(map[string]string, len(t.ExternalData))
	for k, v := range t.ExternalData {
		if s, ok := v.(string); ok && s != "" {
			out[k] = s
		}
	}
	return out, nil
}
