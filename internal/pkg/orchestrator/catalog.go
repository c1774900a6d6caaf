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

package orchestrator

import (
	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/executor"
)

// TaskSpec declares one task kind of a stage.
type TaskSpec struct {
	Kind  model.TaskType
	Stage model.Stage
	// After lists the kinds of the same stage (and cycle) that must be done first.
	After []model.TaskType
	// MinCycle is the first regression cycle index the kind is created in.
	MinCycle int
}

var catalog = map[model.Stage][]TaskSpec{
	model.StageKickoff: {
		{Kind: model.TaskForkBranch},
		{Kind: model.TaskCreateProjectManagementTicket},
		{Kind: model.TaskCreateTestSuite},
		{Kind: model.TaskTriggerPreRegressionBuilds, After: []model.TaskType{model.TaskForkBranch}},
	},
	model.StageRegression: {
		{Kind: model.TaskResetTestSuite, MinCycle: 2},
		{Kind: model.TaskCreateRcTag},
		{Kind: model.TaskCreateReleaseNotes, After: []model.TaskType{model.TaskCreateRcTag}},
		{Kind: model.TaskTriggerRegressionBuilds, After: []model.TaskType{model.TaskCreateRcTag}},
		{Kind: model.TaskTriggerAutomationRuns, After: []model.TaskType{model.TaskTriggerRegressionBuilds}},
		{Kind: model.TaskAutomationRuns, After: []model.TaskType{model.TaskTriggerAutomationRuns, model.TaskResetTestSuite}},
		{Kind: model.TaskSendRegressionBuildMessage, After: []model.TaskType{model.TaskTriggerRegressionBuilds}},
	},
	model.StagePostRegression: {
		{Kind: model.TaskPreReleaseCherryPicksReminder},
		{Kind: model.TaskCreateReleaseTag},
		{Kind: model.TaskCreateFinalReleaseNotes, After: []model.TaskType{model.TaskCreateReleaseTag}},
		{Kind: model.TaskTriggerTestFlightBuild, After: []model.TaskType{model.TaskCreateReleaseTag}},
		{Kind: model.TaskCreateAabBuild, After: []model.TaskType{model.TaskCreateReleaseTag}},
		{Kind: model.TaskCheckProjectReleaseApproval},
	},
}

func init() {
	for stage, specs := range catalog {
		for i := range specs {
			specs[i].Stage = stage
		}
	}
}

// Catalog returns the task specs of stage that apply to the given cycle index
// (0 outside stage 2), in creation order.
func Catalog(stage model.Stage, cycleIndex int) []TaskSpec {
	var out []TaskSpec
	for _, s := range catalog[stage] {
		if s.MinCycle > 0 && cycleIndex < s.MinCycle {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SkipReason returns why a task of spec must be created as SKIPPED, or "".
func SkipReason(spec TaskSpec, r *model.Release, cfg model.CronConfig) string {
	switch spec.Kind {
	case model.TaskTriggerPreRegressionBuilds:
		if !cfg.PreRegressionBuildsEnabled() {
			return "pre-regression builds disabled"
		}
	case model.TaskTriggerAutomationRuns:
		if !cfg.AutomationBuildsEnabled() {
			return "automation builds disabled"
		}
	case model.TaskAutomationRuns:
		if !cfg.AutomationRunsEnabled() {
			return "automation runs disabled"
		}
	case model.TaskTriggerTestFlightBuild:
		if !cfg.TestFlightBuildsEnabled() {
			return "testflight builds disabled"
		}
	}
	if executor.IsBuildTask(spec.Kind) && len(executor.BuildPlatforms(spec.Kind, r)) == 0 {
		return "no platform targets this build"
	}
	return ""
}
