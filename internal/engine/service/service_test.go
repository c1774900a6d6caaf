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

package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/engine/repo/repotest"
	"github.com/arcentrix/launchpad/internal/engine/service"
	"github.com/arcentrix/launchpad/internal/pkg/artifact"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/internal/pkg/storage/storagetest"
	"github.com/arcentrix/launchpad/pkg/id"
	"github.com/arcentrix/launchpad/pkg/scm"
)

const secret = "s3cret"

var kickoff = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repos *repo.Repositories
	store *storagetest.Memory
	svc   *service.Services
}

func newFixture(t *testing.T) *fixture {
	repos := repotest.New(t)
	store := storagetest.NewMemory()
	engine := orchestrator.NewEngine(orchestrator.Options{Repos: repos})
	return &fixture{
		repos: repos,
		store: store,
		svc:   service.ProvideServices(repos, engine, store, artifact.NewRules(1), service.CallbackSecret(secret)),
	}
}

func releaseRequest(manual bool, platforms ...model.Platform) *service.CreateReleaseRequest {
	req := &service.CreateReleaseRequest{
		TenantId:             "tenant-1",
		Version:              "3.1.0",
		BaseBranch:           "main",
		HasManualBuildUpload: manual,
		KickOffDate:          kickoff,
		ScmProvider:          "github",
		Repository:           "acme/app",
	}
	stores := map[model.Platform]model.StoreType{
		model.PlatformAndroid: model.StorePlayStore,
		model.PlatformIOS:     model.StoreAppStore,
	}
	for _, p := range platforms {
		req.Platforms = append(req.Platforms, service.PlatformTargetRequest{Platform: p, Target: stores[p]})
	}
	return req
}

func (f *fixture) release(t *testing.T, manual bool, platforms ...model.Platform) *model.Release {
	t.Helper()
	r, err := f.svc.Release.Create(context.Background(), releaseRequest(manual, platforms...))
	require.NoError(t, err)
	return r
}

func upload(r *model.Release, stage model.Stage, p model.Platform, name, body string) *service.UploadRequest {
	return &service.UploadRequest{
		ReleaseId: r.ReleaseId,
		Stage:     stage,
		Platform:  p,
		FileName:  name,
		Size:      int64(len(body)),
		Body:      strings.NewReader(body),
	}
}

func TestUploadReplacesUnusedArtifactInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, true, model.PlatformAndroid)

	first, err := f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformAndroid, "app.apk", "v1"))
	require.NoError(t, err)
	assert.False(t, first.Replaced)
	sum := sha256.Sum256([]byte("v1"))
	assert.Equal(t, hex.EncodeToString(sum[:]), first.Upload.Checksum)
	assert.EqualValues(t, 2, first.Upload.ArtifactSize)
	_, ok := f.store.Object(first.Upload.ArtifactPath)
	require.True(t, ok)

	second, err := f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformAndroid, "app.aab", "v2!"))
	require.NoError(t, err)
	assert.True(t, second.Replaced)
	assert.Equal(t, first.Upload.UploadId, second.Upload.UploadId)
	assert.Equal(t, "app.aab", second.Upload.ArtifactName)

	_, ok = f.store.Object(first.Upload.ArtifactPath)
	assert.False(t, ok, "replaced object is removed")
	assert.Equal(t, 1, f.store.Len())

	list, err := f.svc.Staging.List(ctx, r.ReleaseId)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReplaceByUploadId(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, true, model.PlatformIOS)

	first, err := f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformIOS, "app.ipa", "one"))
	require.NoError(t, err)

	res, err := f.svc.Staging.Replace(ctx, first.Upload.UploadId, "app-2.ipa", 3, strings.NewReader("two"))
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, first.Upload.UploadId, res.Upload.UploadId)

	require.NoError(t, f.repos.Upload.MarkAsUsed(ctx, first.Upload.UploadId, "task-1", "", time.Now()))
	_, err = f.svc.Staging.Replace(ctx, first.Upload.UploadId, "app-3.ipa", 3, strings.NewReader("abc"))
	assert.ErrorIs(t, err, errs.ErrConsumptionConflict)
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manualRelease := f.release(t, true, model.PlatformAndroid)
	ciRelease := f.release(t, false, model.PlatformAndroid)

	tests := []struct {
		name    string
		req     *service.UploadRequest
		invalid bool
		state   bool
	}{
		{name: "ci release", req: upload(ciRelease, model.StageKickoff, model.PlatformAndroid, "a.apk", "x"), state: true},
		{name: "wrong extension", req: upload(manualRelease, model.StageKickoff, model.PlatformAndroid, "a.ipa", "x"), invalid: true},
		{name: "platform not targeted", req: upload(manualRelease, model.StageKickoff, model.PlatformIOS, "a.ipa", "x"), invalid: true},
		{name: "regression without cycle", req: upload(manualRelease, model.StageRegression, model.PlatformAndroid, "a.apk", "x"), invalid: true},
		{name: "unknown stage", req: upload(manualRelease, "STAGING", model.PlatformAndroid, "a.apk", "x"), invalid: true},
		{name: "too large", req: upload(manualRelease, model.StageKickoff, model.PlatformAndroid, "a.apk", strings.Repeat("x", 2<<20)), invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Staging.Upload(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errs.IsValidation(err), err)
			assert.Equal(t, tt.state, errs.IsInvalidState(err), err)
		})
	}

	kickoffWithCycle := upload(manualRelease, model.StageKickoff, model.PlatformAndroid, "a.apk", "x")
	kickoffWithCycle.CycleId = "cycle-1"
	_, err := f.svc.Staging.Upload(ctx, kickoffWithCycle)
	assert.True(t, errs.IsValidation(err))

	assert.Zero(t, f.store.Len(), "rejected uploads leave no objects")
}

func TestUploadStreamLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, true, model.PlatformAndroid)

	undeclared := upload(r, model.StageKickoff, model.PlatformAndroid, "a.apk", strings.Repeat("x", 2<<20))
	undeclared.Size = -1
	_, err := f.svc.Staging.Upload(ctx, undeclared)
	assert.True(t, errs.IsValidation(err), err)

	empty := upload(r, model.StageKickoff, model.PlatformAndroid, "a.apk", "")
	empty.Size = -1
	_, err = f.svc.Staging.Upload(ctx, empty)
	assert.True(t, errs.IsValidation(err), err)
	assert.Zero(t, f.store.Len())

	f.store.FailUpload = errors.New("bucket gone")
	_, err = f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformAndroid, "a.apk", "x"))
	assert.True(t, errs.IsExternal(err), err)
}

func TestUploadClosedOnceBuildTaskCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, true, model.PlatformAndroid)

	require.NoError(t, f.repos.Task.CreateBatch(ctx, []*model.ReleaseTask{{
		TaskId:     id.GetUlid(),
		ReleaseId:  r.ReleaseId,
		Stage:      model.StageKickoff,
		TaskType:   model.TaskTriggerPreRegressionBuilds,
		TaskStatus: model.TaskCompleted,
	}}))

	_, err := f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformAndroid, "a.apk", "x"))
	assert.True(t, errs.IsInvalidState(err), err)

	_, err = f.svc.Staging.Upload(ctx, upload(r, model.StagePostRegression, model.PlatformAndroid, "a.aab", "x"))
	assert.NoError(t, err, "other stages stay open")
}

func TestRegressionUploadNeedsOpenCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, true, model.PlatformAndroid)
	other := f.release(t, true, model.PlatformAndroid)

	cycle := &model.RegressionCycle{CycleId: id.GetUlid(), ReleaseId: r.ReleaseId, CycleIndex: 1, Status: model.CycleInProgress}
	require.NoError(t, f.repos.Cycle.Create(ctx, cycle))

	req := upload(r, model.StageRegression, model.PlatformAndroid, "a.apk", "x")
	req.CycleId = cycle.CycleId
	res, err := f.svc.Staging.Upload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, cycle.CycleId, res.Upload.CycleId)

	foreign := upload(other, model.StageRegression, model.PlatformAndroid, "a.apk", "x")
	foreign.CycleId = cycle.CycleId
	_, err = f.svc.Staging.Upload(ctx, foreign)
	assert.True(t, errs.IsNotFound(err), err)

	_, err = f.repos.Cycle.UpdateStatus(ctx, cycle.CycleId, []model.CycleStatus{model.CycleInProgress}, model.CycleAbandoned)
	require.NoError(t, err)
	req = upload(r, model.StageRegression, model.PlatformAndroid, "b.apk", "y")
	req.CycleId = cycle.CycleId
	_, err = f.svc.Staging.Upload(ctx, req)
	assert.True(t, errs.IsInvalidState(err), err)
}

func TestDeleteOnlyUnused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, true, model.PlatformAndroid, model.PlatformIOS)

	a, err := f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformAndroid, "a.apk", "x"))
	require.NoError(t, err)
	i, err := f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformIOS, "a.ipa", "y"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Staging.Delete(ctx, a.Upload.UploadId))
	_, ok := f.store.Object(a.Upload.ArtifactPath)
	assert.False(t, ok)

	require.NoError(t, f.repos.Upload.MarkAsUsed(ctx, i.Upload.UploadId, "task-1", "", time.Now()))
	err = f.svc.Staging.Delete(ctx, i.Upload.UploadId)
	assert.ErrorIs(t, err, errs.ErrConsumptionConflict)
	_, ok = f.store.Object(i.Upload.ArtifactPath)
	assert.True(t, ok, "consumed artifacts are kept")

	assert.True(t, errs.IsNotFound(f.svc.Staging.Delete(ctx, "missing")))
}

func TestStagingStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, true, model.PlatformAndroid, model.PlatformIOS)

	st, err := f.svc.Staging.Status(ctx, r.ReleaseId, model.StageKickoff, "")
	require.NoError(t, err)
	assert.False(t, st.AllReady)
	assert.ElementsMatch(t, []model.Platform{model.PlatformAndroid, model.PlatformIOS}, st.Missing)

	_, err = f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformAndroid, "a.apk", "x"))
	require.NoError(t, err)
	st, err = f.svc.Staging.Status(ctx, r.ReleaseId, model.StageKickoff, "")
	require.NoError(t, err)
	assert.Equal(t, []model.Platform{model.PlatformIOS}, st.Missing)
	assert.Contains(t, st.Uploaded, model.PlatformAndroid)

	_, err = f.svc.Staging.Upload(ctx, upload(r, model.StageKickoff, model.PlatformIOS, "a.ipa", "y"))
	require.NoError(t, err)
	st, err = f.svc.Staging.Status(ctx, r.ReleaseId, model.StageKickoff, "")
	require.NoError(t, err)
	assert.True(t, st.AllReady)

	url, err := f.svc.Staging.DownloadURL(ctx, st.Uploaded[model.PlatformIOS].UploadId, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, st.Uploaded[model.PlatformIOS].ArtifactPath)
}

func TestCreateReleaseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(*service.CreateReleaseRequest)
		field string
	}{
		{name: "version", edit: func(r *service.CreateReleaseRequest) { r.Version = "" }, field: "version"},
		{name: "platforms", edit: func(r *service.CreateReleaseRequest) { r.Platforms = nil }, field: "platforms"},
		{name: "platform value", edit: func(r *service.CreateReleaseRequest) { r.Platforms[0].Platform = "BLACKBERRY" }, field: "platform"},
		{name: "type", edit: func(r *service.CreateReleaseRequest) { r.Type = "WEEKLY" }, field: "type"},
		{name: "kickoff", edit: func(r *service.CreateReleaseRequest) { r.KickOffDate = time.Time{} }, field: "kickOffDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := releaseRequest(false, model.PlatformAndroid)
			tt.edit(req)
			_, err := f.svc.Release.Create(ctx, req)
			var verr *errs.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestReleaseLifecycleThroughService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, false, model.PlatformAndroid)

	assert.True(t, errs.IsInvalidState(f.svc.Release.Pause(ctx, r.ReleaseId)), "pending releases cannot pause")

	err := f.svc.Release.TriggerStage(ctx, r.ReleaseId, &service.TriggerStageRequest{Stage: 4})
	assert.True(t, errs.IsValidation(err))

	view, err := f.svc.Release.Describe(ctx, r.ReleaseId)
	require.NoError(t, err)
	assert.Equal(t, model.CronPending, view.CronJob.CronStatus)

	list, err := f.svc.Release.List(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Release.RetryTask(ctx, r.ReleaseId, "missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestCallbackVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	body := []byte(`{"handle":"queue/unknown","status":"COMPLETED"}`)

	_, err := f.svc.Callback.Handle(ctx, body, "sha256=deadbeef", "")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.svc.Callback.Handle(ctx, body, "", "wrong")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	sig := service.SignaturePrefix + scm.SignHmacSha256Hex(body, secret)
	_, err = f.svc.Callback.Handle(ctx, body, sig, "")
	assert.True(t, errs.IsNotFound(err), "verified callbacks reach the reconciler: %v", err)

	_, err = f.svc.Callback.Handle(ctx, body, "", secret)
	assert.True(t, errs.IsNotFound(err))

	bad := []byte(`{"handle":"x","status":"DONE"}`)
	_, err = f.svc.Callback.Handle(ctx, bad, service.SignaturePrefix+scm.SignHmacSha256Hex(bad, secret), "")
	assert.True(t, errs.IsValidation(err))

	garbage := []byte(`{`)
	_, err = f.svc.Callback.Handle(ctx, garbage, service.SignaturePrefix+scm.SignHmacSha256Hex(garbage, secret), "")
	assert.True(t, errs.IsValidation(err))
}

func TestCallbackCompletesBuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.release(t, false, model.PlatformAndroid)

	task := &model.ReleaseTask{
		TaskId:     id.GetUlid(),
		ReleaseId:  r.ReleaseId,
		Stage:      model.StagePostRegression,
		TaskType:   model.TaskCreateAabBuild,
		TaskStatus: model.TaskAwaitingCallback,
	}
	require.NoError(t, f.repos.Task.CreateBatch(ctx, []*model.ReleaseTask{task}))
	require.NoError(t, f.repos.Build.CreateBatch(ctx, []*model.Build{{
		BuildId:           id.GetUlid(),
		ReleaseId:         r.ReleaseId,
		TaskId:            task.TaskId,
		Platform:          model.PlatformAndroid,
		Stage:             model.StagePostRegression,
		BuildType:         model.BuildCICD,
		BuildUploadStatus: model.BuildUploadPending,
		WorkflowStatus:    model.WorkflowQueued,
		QueueLocation:     "https://ci.test/queue/7",
	}}))

	body := []byte(`{"handle":"https://ci.test/queue/7","status":"COMPLETED","ciRunId":"77","artifactPath":"s3://b/app.aab"}`)
	res, err := f.svc.Callback.Handle(ctx, body, service.SignaturePrefix+scm.SignHmacSha256Hex(body, secret), "")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, res.TaskStatus)

	builds, err := f.repos.Build.ListByTask(ctx, task.TaskId)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "s3://b/app.aab", builds[0].ArtifactPath)
	assert.Equal(t, model.BuildUploadUploaded, builds[0].BuildUploadStatus)
}
