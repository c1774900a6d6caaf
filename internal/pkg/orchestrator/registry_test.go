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

package orchestrator_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
)

func TestMachineRegistry(t *testing.T) {
	built := 0
	reg := orchestrator.NewMachineRegistry(func(string) *orchestrator.ReleaseStateMachine {
		built++
		return &orchestrator.ReleaseStateMachine{}
	})

	a := reg.Get("a")
	assert.Same(t, a, reg.Get("a"))
	assert.NotSame(t, a, reg.Get("b"))
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 2, built)

	reg.Evict("a")
	assert.False(t, reg.Contains("a"))
	assert.True(t, reg.Contains("b"))
	assert.NotSame(t, a, reg.Get("a"))
	assert.Equal(t, 3, built)
}

func TestMachineRegistryConcurrentGet(t *testing.T) {
	reg := orchestrator.NewMachineRegistry(func(string) *orchestrator.ReleaseStateMachine {
		return &orchestrator.ReleaseStateMachine{}
	})
	var wg sync.WaitGroup
	got := make([]*orchestrator.ReleaseStateMachine, 16)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = reg.Get("r")
		}()
	}
	wg.Wait()
	for _, m := range got {
		assert.Same(t, got[0], m)
	}
}

func kinds(specs []orchestrator.TaskSpec) []model.TaskType {
	out := make([]model.TaskType, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Kind)
	}
	return out
}

func TestCatalog(t *testing.T) {
	assert.Len(t, orchestrator.Catalog(model.StageKickoff, 0), 4)
	assert.NotContains(t, kinds(orchestrator.Catalog(model.StageRegression, 1)), model.TaskResetTestSuite)
	assert.Contains(t, kinds(orchestrator.Catalog(model.StageRegression, 2)), model.TaskResetTestSuite)
	assert.Len(t, orchestrator.Catalog(model.StagePostRegression, 0), 6)

	for _, stage := range []model.Stage{model.StageKickoff, model.StageRegression, model.StagePostRegression} {
		for _, spec := range orchestrator.Catalog(stage, 2) {
			assert.Equal(t, stage, spec.Stage)
		}
	}
}

func TestSkipReason(t *testing.T) {
	androidOnly := &model.Release{Platforms: datatypes.NewJSONType([]model.PlatformTarget{android})}
	testFlight := &model.Release{Platforms: datatypes.NewJSONType([]model.PlatformTarget{
		{Platform: model.PlatformIOS, Target: model.StoreTestFlight},
	})}
	spec := func(kind model.TaskType) orchestrator.TaskSpec { return orchestrator.TaskSpec{Kind: kind} }

	tests := []struct {
		name    string
		kind    model.TaskType
		release *model.Release
		cfg     model.CronConfig
		skipped bool
	}{
		{"fork always runs", model.TaskForkBranch, androidOnly, model.CronConfig{}, false},
		{"pre-regression on by default", model.TaskTriggerPreRegressionBuilds, androidOnly, model.CronConfig{}, false},
		{"pre-regression disabled", model.TaskTriggerPreRegressionBuilds, androidOnly, model.CronConfig{PreRegressionBuilds: model.Bool(false)}, true},
		{"automation runs off by default", model.TaskAutomationRuns, androidOnly, model.CronConfig{}, true},
		{"automation runs enabled", model.TaskAutomationRuns, androidOnly, model.CronConfig{AutomationRuns: model.Bool(true)}, false},
		{"testflight without ios", model.TaskTriggerTestFlightBuild, androidOnly, model.CronConfig{}, true},
		{"testflight target", model.TaskTriggerTestFlightBuild, testFlight, model.CronConfig{}, false},
		{"aab without android", model.TaskCreateAabBuild, testFlight, model.CronConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := orchestrator.SkipReason(spec(tt.kind), tt.release, tt.cfg)
			assert.Equal(t, tt.skipped, reason != "", "reason %q", reason)
		})
	}
}
