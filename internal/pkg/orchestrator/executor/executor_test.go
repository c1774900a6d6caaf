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

package executor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/engine/repo/repotest"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/executor"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/orchestratortest"
	"github.com/arcentrix/launchpad/pkg/id"
)

type harness struct {
	repos    *repo.Repositories
	exec     *executor.Executor
	scm      *orchestratortest.Scm
	trigger  *orchestratortest.Trigger
	tickets  *orchestratortest.Tickets
	testRuns *orchestratortest.TestRuns
	notifier *orchestratortest.Notifier
	builds   *countingCompleter
}

// countingCompleter completes a task when every build row is UPLOADED.
type countingCompleter struct {
	repos *repo.Repositories
	calls int
}

func (c *countingCompleter) Reconcile(ctx context.Context, taskId string) (model.TaskStatus, error) {
	c.calls++
	builds, err := c.repos.Build.ListByTask(ctx, taskId)
	if err != nil {
		return "", err
	}
	for _, b := range builds {
		if b.BuildUploadStatus != model.BuildUploadUploaded {
			return model.TaskAwaitingCallback, nil
		}
	}
	return model.TaskCompleted, nil
}

func newHarness(t *testing.T) *harness {
	repos := repotest.New(t)
	h := &harness{
		repos:    repos,
		scm:      &orchestratortest.Scm{},
		trigger:  &orchestratortest.Trigger{},
		tickets:  &orchestratortest.Tickets{},
		testRuns: &orchestratortest.TestRuns{},
		notifier: &orchestratortest.Notifier{},
		builds:   &countingCompleter{repos: repos},
	}
	h.exec = executor.New(executor.Deps{
		Repos:    repos,
		Scm:      h.scm,
		Cicd:     h.trigger,
		Tickets:  h.tickets,
		TestRuns: h.testRuns,
		Notifier: h.notifier,
		Builds:   h.builds,
	})
	return h
}

func newRelease(manual bool, platforms ...model.PlatformTarget) *model.Release {
	return &model.Release{
		ReleaseId:            id.GetUlid(),
		TenantId:             "tenant-1",
		Status:               model.ReleaseInProgress,
		Version:              "2.4.0",
		BaseBranch:           "main",
		Branch:               "release/2.4.0",
		HasManualBuildUpload: manual,
		Platforms:            datatypes.NewJSONType(platforms),
		ScmProvider:          "github",
		Repository:           "acme/app",
	}
}

var (
	android = model.PlatformTarget{Platform: model.PlatformAndroid, Target: model.StorePlayStore}
	ios     = model.PlatformTarget{Platform: model.PlatformIOS, Target: model.StoreAppStore}
)

func (h *harness) task(t *testing.T, r *model.Release, kind model.TaskType, stage model.Stage, cycleId string) *model.ReleaseTask {
	task := &model.ReleaseTask{
		TaskId:     id.GetUlid(),
		ReleaseId:  r.ReleaseId,
		CycleId:    cycleId,
		TaskType:   kind,
		Stage:      stage,
		TaskStatus: model.TaskInProgress,
	}
	require.NoError(t, h.repos.Task.CreateBatch(context.Background(), []*model.ReleaseTask{task}))
	return task
}

func execCtx(r *model.Release, tasks ...*model.ReleaseTask) *executor.ExecutionContext {
	return &executor.ExecutionContext{Release: r, Tasks: tasks, Now: time.Now()}
}

func cicdConfig(workflows ...model.WorkflowType) *model.CicdConfig {
	defs := map[string]model.WorkflowDefinition{}
	for _, wt := range workflows {
		for _, p := range []model.Platform{model.PlatformAndroid, model.PlatformIOS} {
			defs[model.WorkflowKey(p, wt)] = model.WorkflowDefinition{Name: string(wt) + ".yml"}
		}
	}
	return &model.CicdConfig{ConfigId: "cfg-1", Provider: model.CicdGithubActions, Workflows: datatypes.NewJSONType(defs)}
}

func TestEveryTaskKindHasAHandler(t *testing.T) {
	h := newHarness(t)
	assert.Len(t, h.exec.Kinds(), 17)

	_, err := h.exec.Execute(context.Background(), &model.ReleaseTask{TaskType: "UNKNOWN"}, execCtx(newRelease(false)))
	assert.True(t, errs.IsValidation(err))
}

func TestScalarResultsFillExternalIdAndValue(t *testing.T) {
	h := newHarness(t)
	r := newRelease(false, android)
	task := h.task(t, r, model.TaskForkBranch, model.StageKickoff, "")

	res, err := h.exec.Execute(context.Background(), task, execCtx(r))
	require.NoError(t, err)
	v, ok := res.(executor.Value)
	require.True(t, ok)
	assert.Equal(t, "release/2.4.0", v.ExternalId)
	assert.Equal(t, map[string]any{executor.ValueKey: "release/2.4.0"}, v.Data)
	assert.Equal(t, []string{"release/2.4.0"}, h.scm.Branches)
}

func TestStructuredResultsOnlyFillData(t *testing.T) {
	h := newHarness(t)
	r := newRelease(false, android, ios)
	task := h.task(t, r, model.TaskCreateProjectManagementTicket, model.StageKickoff, "")

	res, err := h.exec.Execute(context.Background(), task, execCtx(r))
	require.NoError(t, err)
	v := res.(executor.Value)
	assert.Empty(t, v.ExternalId)
	assert.Equal(t, map[string]any{"ANDROID": "REL-1", "IOS": "REL-2"}, v.Data)
}

func TestIsScalarList(t *testing.T) {
	scalar := []model.TaskType{
		model.TaskForkBranch, model.TaskCreateRcTag, model.TaskCreateReleaseNotes,
		model.TaskCreateReleaseTag, model.TaskCreateFinalReleaseNotes, model.TaskTriggerAutomationRuns,
	}
	for _, k := range scalar {
		assert.True(t, executor.IsScalar(k), k)
	}
	assert.False(t, executor.IsScalar(model.TaskCreateTestSuite))
	assert.False(t, executor.IsScalar(model.TaskTriggerRegressionBuilds))
}

func TestManualBuildWaitsForEveryPlatform(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	r := newRelease(true, android, ios)
	task := h.task(t, r, model.TaskTriggerPreRegressionBuilds, model.StageKickoff, "")

	res, err := h.exec.Execute(ctx, task, execCtx(r))
	require.NoError(t, err)
	assert.Equal(t, executor.AwaitMarker{Status: model.TaskAwaitingManualBuild}, res)

	key := repo.UploadKey{ReleaseId: r.ReleaseId, Stage: model.StageKickoff, Platform: model.PlatformAndroid}
	_, _, err = h.repos.Upload.Upsert(ctx, r.TenantId, key, repo.Artifact{Path: "a.apk", Name: "a.apk", Size: 1})
	require.NoError(t, err)

	res, err = h.exec.Execute(ctx, task, execCtx(r))
	require.NoError(t, err)
	assert.Equal(t, executor.AwaitMarker{Status: model.TaskAwaitingManualBuild}, res)

	key.Platform = model.PlatformIOS
	_, _, err = h.repos.Upload.Upsert(ctx, r.TenantId, key, repo.Artifact{Path: "a.ipa", Name: "a.ipa", Size: 1})
	require.NoError(t, err)

	res, err = h.exec.Execute(ctx, task, execCtx(r))
	require.NoError(t, err)
	v, ok := res.(executor.Value)
	require.True(t, ok)
	assert.Len(t, v.Data["uploadIds"], 2)
	assert.Equal(t, 1, h.builds.calls)

	builds, err := h.repos.Build.ListByTask(ctx, task.TaskId)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	for _, b := range builds {
		assert.Equal(t, model.BuildManual, b.BuildType)
		assert.Equal(t, model.BuildUploadUploaded, b.BuildUploadStatus)
	}
	uploads, err := h.repos.Upload.ListByRelease(ctx, r.ReleaseId)
	require.NoError(t, err)
	for _, u := range uploads {
		assert.True(t, u.IsUsed)
		assert.Equal(t, task.TaskId, u.UsedByTaskId)
	}
	assert.Zero(t, h.trigger.Calls(), "manual mode never triggers CI/CD")
}

func TestMissingQueueHandleFailsTheTask(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.trigger.NoHandle = true
	r := newRelease(false, android)
	task := h.task(t, r, model.TaskTriggerPreRegressionBuilds, model.StageKickoff, "")
	ec := execCtx(r)
	ec.CicdConfig = cicdConfig(model.WorkflowPreRegression)

	res, err := h.exec.Execute(ctx, task, ec)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errs.IsExternal(err))

	builds, err := h.repos.Build.ListByTask(ctx, task.TaskId)
	require.NoError(t, err)
	assert.Empty(t, builds)
}

func TestCicdBuildsAwaitCallbackAndTriggerOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	r := newRelease(false, android, ios)
	task := h.task(t, r, model.TaskTriggerPreRegressionBuilds, model.StageKickoff, "")
	ec := execCtx(r)
	ec.CicdConfig = cicdConfig(model.WorkflowPreRegression)

	res, err := h.exec.Execute(ctx, task, ec)
	require.NoError(t, err)
	assert.Equal(t, executor.AwaitMarker{Status: model.TaskAwaitingCallback}, res)
	assert.Equal(t, 2, h.trigger.Calls())
	assert.Equal(t, "release/2.4.0", h.trigger.Requests[0].Params["ref"])

	builds, err := h.repos.Build.ListByTask(ctx, task.TaskId)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	for _, b := range builds {
		assert.Equal(t, model.BuildCICD, b.BuildType)
		assert.Equal(t, model.BuildUploadPending, b.BuildUploadStatus)
		assert.NotEmpty(t, b.QueueLocation)
	}

	_, err = h.exec.Execute(ctx, task, ec)
	require.NoError(t, err)
	assert.Equal(t, 2, h.trigger.Calls(), "an already triggered task is not triggered again")
}

func TestCicdBuildsNeedConfiguration(t *testing.T) {
	h := newHarness(t)
	r := newRelease(false, android)
	task := h.task(t, r, model.TaskTriggerPreRegressionBuilds, model.StageKickoff, "")

	_, err := h.exec.Execute(context.Background(), task, execCtx(r))
	assert.True(t, errs.IsValidation(err))

	ec := execCtx(r)
	ec.CicdConfig = cicdConfig(model.WorkflowRegression)
	_, err = h.exec.Execute(context.Background(), task, ec)
	assert.True(t, errs.IsValidation(err), "workflow undefined for the platform")
	assert.Zero(t, h.trigger.Calls())
}

func TestTestFlightBuildWithoutIOSIsRejected(t *testing.T) {
	h := newHarness(t)
	r := newRelease(false, android)
	task := h.task(t, r, model.TaskTriggerTestFlightBuild, model.StagePostRegression, "")
	ec := execCtx(r)
	ec.CicdConfig = cicdConfig(model.WorkflowTestFlight)

	_, err := h.exec.Execute(context.Background(), task, ec)
	assert.True(t, errs.IsValidation(err))
	assert.Empty(t, executor.BuildPlatforms(model.TaskTriggerTestFlightBuild, r))
	assert.Equal(t, []model.Platform{model.PlatformAndroid}, executor.BuildPlatforms(model.TaskCreateAabBuild, r))
}

func TestAutomationRunsAwaitThreshold(t *testing.T) {
	h := newHarness(t)
	r := newRelease(false, android)
	suite := &model.ReleaseTask{
		TaskType:     model.TaskCreateTestSuite,
		TaskStatus:   model.TaskCompleted,
		ExternalData: datatypes.JSONMap{"ANDROID": "run-1"},
	}
	task := h.task(t, r, model.TaskAutomationRuns, model.StageRegression, "c1")
	ec := execCtx(r, suite, task)
	ec.Cycle = &model.RegressionCycle{CycleId: "c1", CycleIndex: 1}

	h.testRuns.SetStatus(integration.TestRunStatus{Total: 10, Passed: 8, Untested: 2})
	res, err := h.exec.Execute(context.Background(), task, ec)
	require.NoError(t, err)
	assert.Equal(t, executor.AwaitMarker{Status: model.TaskAwaitingCallback}, res)

	h.testRuns.SetStatus(integration.TestRunStatus{Total: 10, Passed: 10})
	res, err = h.exec.Execute(context.Background(), task, ec)
	require.NoError(t, err)
	assert.Equal(t, 10, res.(executor.Value).Data["passed"])

	ec.Config = model.CronConfig{TestThresholdExpr: model.String("PassRate >=")}
	_, err = h.exec.Execute(context.Background(), task, ec)
	assert.True(t, errs.IsValidation(err))
}

func TestReleaseApprovalAwaitsTickets(t *testing.T) {
	h := newHarness(t)
	r := newRelease(false, android)
	tickets := &model.ReleaseTask{
		TaskType:     model.TaskCreateProjectManagementTicket,
		TaskStatus:   model.TaskCompleted,
		ExternalData: datatypes.JSONMap{"ANDROID": "REL-1"},
	}
	task := h.task(t, r, model.TaskCheckProjectReleaseApproval, model.StagePostRegression, "")

	res, err := h.exec.Execute(context.Background(), task, execCtx(r, tickets))
	require.NoError(t, err)
	assert.Equal(t, executor.AwaitMarker{Status: model.TaskAwaitingCallback}, res)

	h.tickets.SetApproved(true)
	res, err = h.exec.Execute(context.Background(), task, execCtx(r, tickets))
	require.NoError(t, err)
	assert.Equal(t, "Done", res.(executor.Value).Data["REL-1"])
}

func TestCreateReleaseTagIsWrittenOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	r := newRelease(false, android)
	require.NoError(t, h.repos.Release.Create(ctx, r))
	task := h.task(t, r, model.TaskCreateReleaseTag, model.StagePostRegression, "")

	res, err := h.exec.Execute(ctx, task, execCtx(r))
	require.NoError(t, err)
	assert.Equal(t, "v2.4.0", res.(executor.Value).ExternalId)

	stored, err := h.repos.Release.Get(ctx, r.ReleaseId)
	require.NoError(t, err)
	assert.Equal(t, "v2.4.0", stored.ReleaseTag)
}

func TestCreateReleaseTagKeepsConcurrentlyStoredTag(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	r := newRelease(false, android)
	require.NoError(t, h.repos.Release.Create(ctx, r))
	task := h.task(t, r, model.TaskCreateReleaseTag, model.StagePostRegression, "")
	ec := execCtx(r)

	// another writer stores its tag after the execution context was loaded
	ok, err := h.repos.Release.SetReleaseTag(ctx, r.ReleaseId, "v2.4.0-hotfix")
	require.NoError(t, err)
	require.True(t, ok)

	res, err := h.exec.Execute(ctx, task, ec)
	require.NoError(t, err)
	assert.Equal(t, "v2.4.0-hotfix", res.(executor.Value).ExternalId)
	assert.Equal(t, "v2.4.0-hotfix", ec.Release.ReleaseTag)
	assert.Equal(t, []string{"v2.4.0-hotfix"}, h.scm.Tags)

	stored, err := h.repos.Release.Get(ctx, r.ReleaseId)
	require.NoError(t, err)
	assert.Equal(t, "v2.4.0-hotfix", stored.ReleaseTag)
}

// replacingUploads replaces the staged artifact of key right after the first
// readiness listing, as a concurrent re-upload would.
type replacingUploads struct {
	repo.IBuildUploadRepository
	tenantId string
	key      repo.UploadKey
	artifact repo.Artifact
	replaced bool
}

func (u *replacingUploads) ListUnused(ctx context.Context, releaseId string, stage model.Stage, cycleId string) ([]*model.BuildUpload, error) {
	list, err := u.IBuildUploadRepository.ListUnused(ctx, releaseId, stage, cycleId)
	if err != nil || u.replaced {
		return list, err
	}
	u.replaced = true
	if _, _, err := u.IBuildUploadRepository.Upsert(ctx, u.tenantId, u.key, u.artifact); err != nil {
		return nil, err
	}
	return list, nil
}

func TestManualBuildRecordsTheConsumedArtifact(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	r := newRelease(true, android)
	task := h.task(t, r, model.TaskTriggerPreRegressionBuilds, model.StageKickoff, "")

	key := repo.UploadKey{ReleaseId: r.ReleaseId, Stage: model.StageKickoff, Platform: model.PlatformAndroid}
	_, _, err := h.repos.Upload.Upsert(ctx, r.TenantId, key, repo.Artifact{Path: "v1.apk", Name: "v1.apk", Size: 1})
	require.NoError(t, err)
	h.repos.Upload = &replacingUploads{
		IBuildUploadRepository: h.repos.Upload,
		tenantId:               r.TenantId,
		key:                    key,
		artifact:               repo.Artifact{Path: "v2.apk", Name: "v2.apk", Size: 2},
	}

	_, err = h.exec.Execute(ctx, task, execCtx(r))
	require.NoError(t, err)

	builds, err := h.repos.Build.ListByTask(ctx, task.TaskId)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	uploads, err := h.repos.Upload.ListByRelease(ctx, r.ReleaseId)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.True(t, uploads[0].IsUsed)
	assert.Equal(t, "v2.apk", uploads[0].ArtifactPath)
	assert.Equal(t, uploads[0].ArtifactPath, builds[0].ArtifactPath)
}

func TestRegisterOverridesHandler(t *testing.T) {
	h := newHarness(t)
	r := newRelease(false, android)
	task := h.task(t, r, model.TaskForkBranch, model.StageKickoff, "")
	kinds := h.exec.Kinds()

	h.exec.Register(model.TaskForkBranch, func(context.Context, *model.ReleaseTask, *executor.ExecutionContext) (executor.Result, error) {
		return executor.Scalar("release/2.4.0-custom"), nil
	})
	assert.Equal(t, kinds, h.exec.Kinds(), "overriding keeps the kind set")

	res, err := h.exec.Execute(context.Background(), task, execCtx(r))
	require.NoError(t, err)
	assert.Equal(t, "release/2.4.0-custom", res.(executor.Value).ExternalId)
	assert.Empty(t, h.scm.Branches)
}

func TestCollaboratorFailureSurfaces(t *testing.T) {
	h := newHarness(t)
	h.scm.Err = errs.External("scm", "createBranch", errors.New("boom"))
	r := newRelease(false, android)
	task := h.task(t, r, model.TaskForkBranch, model.StageKickoff, "")

	_, err := h.exec.Execute(context.Background(), task, execCtx(r))
	assert.True(t, errs.IsExternal(err))
	assert.True(t, errs.PausesRelease(err))
}

func TestNotificationFailureDoesNotFailTask(t *testing.T) {
	h := newHarness(t)
	h.notifier.Err = errors.New("sink down")
	r := newRelease(false, android)
	task := h.task(t, r, model.TaskPreReleaseCherryPicksReminder, model.StagePostRegression, "")

	res, err := h.exec.Execute(context.Background(), task, execCtx(r))
	require.NoError(t, err)
	assert.Equal(t, false, res.(executor.Value).Data["delivered"])
	assert.Equal(t, 1, h.notifier.Count(integration.NotifyCherryPicksReminder))
}

func TestRcTagAndNotesUseCycleTags(t *testing.T) {
	h := newHarness(t)
	r := newRelease(false, android)
	ec := execCtx(r)
	ec.Cycle = &model.RegressionCycle{CycleId: "c2", CycleIndex: 2, CycleTag: "v2.4.0_rc_2"}
	ec.PreviousCycle = &model.RegressionCycle{CycleId: "c1", CycleIndex: 1, CycleTag: "v2.4.0_rc_1"}

	tag := h.task(t, r, model.TaskCreateRcTag, model.StageRegression, "c2")
	res, err := h.exec.Execute(context.Background(), tag, ec)
	require.NoError(t, err)
	assert.Equal(t, "v2.4.0_rc_2", res.(executor.Value).ExternalId)

	notes := h.task(t, r, model.TaskCreateReleaseNotes, model.StageRegression, "c2")
	_, err = h.exec.Execute(context.Background(), notes, ec)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2.4.0_rc_1..v2.4.0_rc_2"}, h.scm.Notes)
}
