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

package repo_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/engine/repo/repotest"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

func uploadKey(platform model.Platform) repo.UploadKey {
	return repo.UploadKey{ReleaseId: "rel-1", Stage: model.StageKickoff, Platform: platform}
}

func TestUploadUpsertReplacesUnusedRow(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)

	first, replaced, err := repos.Upload.Upsert(ctx, "t1", uploadKey(model.PlatformAndroid), repo.Artifact{Path: "a/1.apk", Name: "1.apk", Size: 10})
	require.NoError(t, err)
	assert.False(t, replaced)

	for i := 0; i < 3; i++ {
		again, replaced, err := repos.Upload.Upsert(ctx, "t1", uploadKey(model.PlatformAndroid), repo.Artifact{Path: "a/2.apk", Name: "2.apk", Size: 20})
		require.NoError(t, err)
		assert.True(t, replaced)
		assert.Equal(t, first.UploadId, again.UploadId, "replacement keeps identity")
		assert.Equal(t, "a/2.apk", again.ArtifactPath)
	}

	all, err := repos.Upload.ListByRelease(ctx, "rel-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUploadUpsertAfterConsumptionCreatesNewRow(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)
	key := uploadKey(model.PlatformIOS)

	first, _, err := repos.Upload.Upsert(ctx, "t1", key, repo.Artifact{Path: "ios/1.ipa"})
	require.NoError(t, err)
	require.NoError(t, repos.Upload.MarkAsUsed(ctx, first.UploadId, "task-1", "", time.Now()))

	second, replaced, err := repos.Upload.Upsert(ctx, "t1", key, repo.Artifact{Path: "ios/2.ipa"})
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.NotEqual(t, first.UploadId, second.UploadId)

	used, err := repos.Upload.Get(ctx, first.UploadId)
	require.NoError(t, err)
	assert.True(t, used.IsUsed)
	assert.Equal(t, "ios/1.ipa", used.ArtifactPath, "used row is never mutated")
	assert.Equal(t, "task-1", used.UsedByTaskId)

	unused, err := repos.Upload.FindUnused(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, unused)
	assert.Equal(t, second.UploadId, unused.UploadId)
}

func TestUploadKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)

	_, _, err := repos.Upload.Upsert(ctx, "t1", uploadKey(model.PlatformAndroid), repo.Artifact{Path: "a.apk"})
	require.NoError(t, err)
	_, _, err = repos.Upload.Upsert(ctx, "t1", uploadKey(model.PlatformIOS), repo.Artifact{Path: "i.ipa"})
	require.NoError(t, err)
	cycleKey := repo.UploadKey{ReleaseId: "rel-1", Stage: model.StageRegression, Platform: model.PlatformAndroid, CycleId: "c1"}
	_, _, err = repos.Upload.Upsert(ctx, "t1", cycleKey, repo.Artifact{Path: "c1.apk"})
	require.NoError(t, err)

	kickoff, err := repos.Upload.ListUnused(ctx, "rel-1", model.StageKickoff, "")
	require.NoError(t, err)
	assert.Len(t, kickoff, 2)

	regression, err := repos.Upload.ListUnused(ctx, "rel-1", model.StageRegression, "c1")
	require.NoError(t, err)
	assert.Len(t, regression, 1)
}

func TestMarkAsUsedConcurrentlySucceedsOnce(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)

	up, _, err := repos.Upload.Upsert(ctx, "t1", uploadKey(model.PlatformAndroid), repo.Artifact{Path: "a.apk"})
	require.NoError(t, err)

	const workers = 16
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := repos.Upload.MarkAsUsed(ctx, up.UploadId, "task", "", time.Now())
			switch {
			case err == nil:
				wins.Add(1)
			case errs.IsConsumptionConflict(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
}

func TestDeleteUpload(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)

	unused, _, err := repos.Upload.Upsert(ctx, "t1", uploadKey(model.PlatformAndroid), repo.Artifact{Path: "a.apk"})
	require.NoError(t, err)
	require.NoError(t, repos.Upload.Delete(ctx, unused.UploadId))

	used, _, err := repos.Upload.Upsert(ctx, "t1", uploadKey(model.PlatformAndroid), repo.Artifact{Path: "b.apk"})
	require.NoError(t, err)
	require.NoError(t, repos.Upload.MarkAsUsed(ctx, used.UploadId, "task", "", time.Now()))

	err = repos.Upload.Delete(ctx, used.UploadId)
	assert.True(t, errs.IsConsumptionConflict(err))

	err = repos.Upload.Delete(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))
	assert.True(t, errs.IsNotFound(repos.Upload.MarkAsUsed(ctx, "missing", "task", "", time.Now())))
}

func newCronJob(releaseId string) *model.CronJob {
	return &model.CronJob{
		CronJobId:    "cj-" + releaseId,
		ReleaseId:    releaseId,
		Stage1Status: model.StagePending,
		Stage2Status: model.StagePending,
		Stage3Status: model.StagePending,
		CronStatus:   model.CronPending,
		PauseType:    model.PauseNone,
	}
}

func TestCronJobConditionalWrites(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)
	require.NoError(t, repos.CronJob.Create(ctx, newCronJob("r1")))

	ok, err := repos.CronJob.AdvanceStage(ctx, "r1", 1, model.StagePending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.CronJob.AdvanceStage(ctx, "r1", 1, model.StagePending)
	require.NoError(t, err)
	assert.False(t, ok, "a second tick observing the old status is a no-op")

	_, err = repos.CronJob.AdvanceStage(ctx, "r1", 1, model.StageCompleted)
	require.Error(t, err, "completed stages cannot advance")

	ok, err = repos.CronJob.Transition(ctx, "r1", repo.CronTransition{
		From: []model.CronStatus{model.CronRunning}, To: model.CronPaused, Pause: model.PauseTaskFailure,
	})
	require.NoError(t, err)
	assert.False(t, ok, "job is still PENDING")

	ok, err = repos.CronJob.Transition(ctx, "r1", repo.CronTransition{
		From: []model.CronStatus{model.CronPending}, To: model.CronRunning,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	job, err := repos.CronJob.GetByRelease(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.StageInProgress, job.Stage1Status)
	assert.Equal(t, model.CronRunning, job.CronStatus)
	assert.Equal(t, int64(2), job.Version)
}

func TestCronJobOptimisticSlotUpdate(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)
	require.NoError(t, repos.CronJob.Create(ctx, newCronJob("r1")))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slots := model.RegressionSlots{{Date: now.Add(2 * time.Hour)}, {Date: now.Add(time.Hour)}}

	ok, err := repos.CronJob.UpdateUpcoming(ctx, "r1", 0, slots)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.CronJob.UpdateUpcoming(ctx, "r1", 0, nil)
	require.NoError(t, err)
	assert.False(t, ok, "stale version is rejected")

	job, err := repos.CronJob.GetByRelease(ctx, "r1")
	require.NoError(t, err)
	stored := job.UpcomingRegressions.Data()
	require.Len(t, stored, 2)
	assert.True(t, stored[0].Date.Equal(now.Add(time.Hour)), "slots are stored sorted")
}

func TestCronJobLease(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)
	require.NoError(t, repos.CronJob.Create(ctx, newCronJob("r1")))

	ok, err := repos.CronJob.AcquireLease(ctx, "r1", "a", 1000, 500)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.CronJob.AcquireLease(ctx, "r1", "b", 1200, 500)
	require.NoError(t, err)
	assert.False(t, ok, "lease held by a")

	ok, err = repos.CronJob.AcquireLease(ctx, "r1", "b", 1600, 500)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease can be taken over")

	require.NoError(t, repos.CronJob.ReleaseLease(ctx, "r1", "b"))
	ok, err = repos.CronJob.AcquireLease(ctx, "r1", "a", 1601, 500)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseTagSetOnce(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)
	require.NoError(t, repos.Release.Create(ctx, &model.Release{ReleaseId: "r1", Status: model.ReleaseInProgress}))

	ok, err := repos.Release.SetReleaseTag(ctx, "r1", "v1.0.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Release.SetReleaseTag(ctx, "r1", "v1.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	rel, err := repos.Release.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", rel.ReleaseTag)

	_, err = repos.Release.Get(ctx, "nope")
	assert.True(t, errs.IsNotFound(err))
}

func TestCycleLatestFlag(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)

	latest, err := repos.Cycle.Latest(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 1; i <= 2; i++ {
		require.NoError(t, repos.Cycle.Create(ctx, &model.RegressionCycle{
			CycleId: "c" + string(rune('0'+i)), ReleaseId: "r1", CycleIndex: i, Status: model.CycleInProgress,
		}))
	}
	cycles, err := repos.Cycle.List(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.False(t, cycles[0].IsLatest)
	assert.True(t, cycles[1].IsLatest)

	ok, err := repos.Cycle.UpdateStatus(ctx, "c2", []model.CycleStatus{model.CycleInProgress}, model.CycleDone)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repos.Cycle.UpdateStatus(ctx, "c2", []model.CycleStatus{model.CycleInProgress}, model.CycleAbandoned)
	require.NoError(t, err)
	assert.False(t, ok, "DONE cycles are immutable")
}

func TestBuildStatusAndRetryCleanup(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)

	require.NoError(t, repos.Build.CreateBatch(ctx, []*model.Build{
		{BuildId: "b1", TaskId: "t1", Platform: model.PlatformAndroid, BuildUploadStatus: model.BuildUploadPending, QueueLocation: "q/1"},
		{BuildId: "b2", TaskId: "t1", Platform: model.PlatformIOS, BuildUploadStatus: model.BuildUploadPending, QueueLocation: "q/2"},
	}))

	b, err := repos.Build.FindByHandle(ctx, "q/2")
	require.NoError(t, err)
	assert.Equal(t, "b2", b.BuildId)

	ok, err := repos.Build.UpdateStatus(ctx, "b2", repo.BuildStatusUpdate{UploadStatus: model.BuildUploadFailed, WorkflowStatus: model.WorkflowFailed, ErrorMessage: "lint"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Build.UpdateStatus(ctx, "b2", repo.BuildStatusUpdate{UploadStatus: model.BuildUploadUploaded})
	require.NoError(t, err)
	assert.False(t, ok, "terminal build is not rewritten")

	n, err := repos.Build.DeleteFailedByTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := repos.Build.ListByTask(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b1", left[0].BuildId)
}

func TestTaskTransition(t *testing.T) {
	ctx := context.Background()
	repos := repotest.New(t)
	require.NoError(t, repos.Task.CreateBatch(ctx, []*model.ReleaseTask{
		{TaskId: "t1", ReleaseId: "r1", Stage: model.StageKickoff, TaskType: model.TaskForkBranch, TaskStatus: model.TaskPending},
	}))

	ok, err := repos.Task.Transition(ctx, "t1", []model.TaskStatus{model.TaskPending}, model.TaskInProgress, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Task.Transition(ctx, "t1", []model.TaskStatus{model.TaskPending}, model.TaskInProgress, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repos.Task.Transition(ctx, "t1", []model.TaskStatus{model.TaskInProgress}, model.TaskCompleted,
		map[string]any{"external_id": "release/1.0"})
	require.NoError(t, err)
	assert.True(t, ok)

	tasks, err := repos.Task.List(ctx, repo.TaskQuery{ReleaseId: "r1", Stage: model.StageKickoff})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.TaskCompleted, tasks[0].TaskStatus)
	assert.Equal(t, "release/1.0", tasks[0].ExternalId)
}
