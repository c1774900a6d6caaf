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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/id"
)

func TestAggregateBuilds(t *testing.T) {
	b := func(st model.BuildUploadStatus) *model.Build { return &model.Build{BuildUploadStatus: st} }
	tests := []struct {
		name   string
		builds []*model.Build
		want   orchestrator.BuildOutcome
	}{
		{"none", nil, orchestrator.BuildsPending},
		{"pending", []*model.Build{b(model.BuildUploadUploaded), b(model.BuildUploadPending)}, orchestrator.BuildsPending},
		{"all uploaded", []*model.Build{b(model.BuildUploadUploaded), b(model.BuildUploadUploaded)}, orchestrator.BuildsCompleted},
		{"one failed", []*model.Build{b(model.BuildUploadPending), b(model.BuildUploadFailed)}, orchestrator.BuildsFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orchestrator.AggregateBuilds(tt.builds))
		})
	}
}

func TestExpectBuilds(t *testing.T) {
	up := func(p model.Platform) *model.Build {
		return &model.Build{Platform: p, BuildUploadStatus: model.BuildUploadUploaded}
	}
	both := []model.Platform{model.PlatformAndroid, model.PlatformIOS}
	tests := []struct {
		name    string
		outcome orchestrator.BuildOutcome
		builds  []*model.Build
		want    orchestrator.BuildOutcome
	}{
		{"every platform uploaded", orchestrator.BuildsCompleted, []*model.Build{up(model.PlatformAndroid), up(model.PlatformIOS)}, orchestrator.BuildsCompleted},
		{"platform not yet triggered", orchestrator.BuildsCompleted, []*model.Build{up(model.PlatformAndroid)}, orchestrator.BuildsPending},
		{"failed stays failed", orchestrator.BuildsFailed, []*model.Build{up(model.PlatformAndroid)}, orchestrator.BuildsFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orchestrator.ExpectBuilds(tt.outcome, tt.builds, both))
		})
	}
}

// awaitingBuilds stores a running release with one AWAITING_CALLBACK build task and a
// pending build per platform, queued under "<platform>-handle".
func awaitingBuilds(t *testing.T, h *harness, platforms ...model.Platform) (*model.Release, *model.ReleaseTask) {
	t.Helper()
	ctx := context.Background()
	r := h.createRelease(t, []model.PlatformTarget{android, ios}, noPreRegression, autoTransition())
	h.tick(t, r)

	task := &model.ReleaseTask{
		TaskId:       id.GetUlid(),
		ReleaseId:    r.ReleaseId,
		TaskType:     model.TaskCreateAabBuild,
		Stage:        model.StagePostRegression,
		TaskStatus:   model.TaskAwaitingCallback,
		ExternalData: datatypes.JSONMap{"note": "kept"},
	}
	require.NoError(t, h.repos.Task.CreateBatch(ctx, []*model.ReleaseTask{task}))
	var builds []*model.Build
	for _, p := range platforms {
		builds = append(builds, &model.Build{
			BuildId:           id.GetUlid(),
			TenantId:          r.TenantId,
			ReleaseId:         r.ReleaseId,
			TaskId:            task.TaskId,
			Platform:          p,
			Stage:             model.StagePostRegression,
			BuildType:         model.BuildCICD,
			BuildUploadStatus: model.BuildUploadPending,
			WorkflowStatus:    model.WorkflowQueued,
			QueueLocation:     string(p) + "-handle",
		})
	}
	require.NoError(t, h.repos.Build.CreateBatch(ctx, builds))
	return r, task
}

func TestBuildCallbackCompletesTaskWhenAllBuildsUpload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, task := awaitingBuilds(t, h, model.PlatformAndroid, model.PlatformIOS)
	done := integration.RunStatus{Status: model.WorkflowCompleted, ArtifactPath: "s3://builds/app", BuildNumber: "42"}

	status, err := h.engine.HandleBuildCallback(ctx, "ANDROID-handle", done)
	require.NoError(t, err)
	assert.Equal(t, model.TaskAwaitingCallback, status)
	assert.Zero(t, h.notifier.Count(integration.NotifyBuildReady))

	status, err = h.engine.HandleBuildCallback(ctx, "IOS-handle", done)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, status)

	stored, err := h.repos.Task.Get(ctx, task.TaskId)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, stored.TaskStatus)
	assert.Equal(t, "kept", stored.ExternalData["note"])
	assert.Len(t, stored.ExternalData["buildIds"], 2)
	assert.NotNil(t, stored.FinishedAt)
	assert.Equal(t, 2, h.notifier.Count(integration.NotifyBuildReady))

	for _, b := range h.builds(t, task.TaskId) {
		assert.Equal(t, model.BuildUploadUploaded, b.BuildUploadStatus)
		assert.Equal(t, "42", b.BuildNumber)
	}

	// a late duplicate does not reopen anything
	status, err = h.engine.HandleBuildCallback(ctx, "IOS-handle", done)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, status)
	assert.Equal(t, 2, h.notifier.Count(integration.NotifyBuildReady))
}

func TestBuildCallbackFailurePausesRelease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r, task := awaitingBuilds(t, h, model.PlatformAndroid, model.PlatformIOS)

	status, err := h.engine.HandleBuildCallback(ctx, "IOS-handle", integration.RunStatus{Status: model.WorkflowFailed})
	require.NoError(t, err)
	assert.Equal(t, model.TaskFailed, status)

	stored, err := h.repos.Task.Get(ctx, task.TaskId)
	require.NoError(t, err)
	assert.Equal(t, "IOS: workflow failed", stored.ErrorMessage)
	assert.Equal(t, model.PauseTaskFailure, h.job(t, r).PauseType)
	assert.Equal(t, model.ReleasePaused, h.release(t, r).Status)
}

func TestBuildCallbackUnknownHandle(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.HandleBuildCallback(context.Background(), "nobody", integration.RunStatus{Status: model.WorkflowCompleted})
	assert.True(t, errs.IsNotFound(err))
}

func TestPollRefreshesPendingBuilds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, task := awaitingBuilds(t, h, model.PlatformAndroid)
	cfg := cicdConfig()

	status, err := h.engine.Builds().Poll(ctx, task, cfg)
	require.NoError(t, err)
	assert.Equal(t, model.TaskAwaitingCallback, status)
	assert.Equal(t, model.WorkflowRunning, h.builds(t, task.TaskId)[0].WorkflowStatus)

	h.trigger.SetStatus("ANDROID-handle", integration.RunStatus{Status: model.WorkflowCompleted, CiRunId: "run-9"})
	status, err = h.engine.Builds().Poll(ctx, task, cfg)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, status)
	assert.Equal(t, "run-9", h.builds(t, task.TaskId)[0].CiRunId)
}
