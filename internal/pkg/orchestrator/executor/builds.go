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
	"context"
	"fmt"

	"gorm.io/datatypes"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/integration/cicd"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/id"
)

// buildSpec describes which builds a build task produces.
type buildSpec struct {
	workflow model.WorkflowType
	// platform and store pin the build to one target; empty means every release platform.
	platform model.Platform
	store    model.StoreType
}

type buildTarget struct {
	platform model.Platform
	store    model.StoreType
}

func (s buildSpec) targets(r *model.Release) []buildTarget {
	if s.platform != "" {
		if _, ok := r.TargetFor(s.platform); !ok {
			return nil
		}
		return []buildTarget{{platform: s.platform, store: s.store}}
	}
	var out []buildTarget
	for _, p := range r.PlatformList() {
		store, _ := r.TargetFor(p)
		out = append(out, buildTarget{platform: p, store: store})
	}
	return out
}

// BuildPlatforms returns the platforms a build task of kind produces for r, or nil
// when kind is not a build task.
func BuildPlatforms(kind model.TaskType, r *model.Release) []model.Platform {
	spec, ok := buildSpecs[kind]
	if !ok {
		return nil
	}
	var out []model.Platform
	for _, t := range spec.targets(r) {
		out = append(out, t.platform)
	}
	return out
}

// IsBuildTask reports whether kind creates Build rows.
func IsBuildTask(kind model.TaskType) bool {
	_, ok := buildSpecs[kind]
	return ok
}

var buildSpecs = map[model.TaskType]buildSpec{
	model.TaskTriggerPreRegressionBuilds: {workflow: model.WorkflowPreRegression},
	model.TaskTriggerRegressionBuilds:    {workflow: model.WorkflowRegression},
	model.TaskTriggerTestFlightBuild:     {workflow: model.WorkflowTestFlight, platform: model.PlatformIOS, store: model.StoreTestFlight},
	model.TaskCreateAabBuild:             {workflow: model.WorkflowAab, platform: model.PlatformAndroid, store: model.StorePlayStore},
}

func (e *Executor) preRegressionBuilds(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	return e.runBuilds(ctx, task, ec)
}

func (e *Executor) regressionBuilds(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	return e.runBuilds(ctx, task, ec)
}

func (e *Executor) testFlightBuild(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	return e.runBuilds(ctx, task, ec)
}

func (e *Executor) aabBuild(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	return e.runBuilds(ctx, task, ec)
}

// runBuilds picks the manual or the CI/CD path once, from the release's mode.
func (e *Executor) runBuilds(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	spec := buildSpecs[task.TaskType]
	targets := spec.targets(ec.Release)
	if len(targets) == 0 {
		return nil, errs.Validation("platforms", "release %s has no platform for %s", ec.Release.ReleaseId, task.TaskType)
	}
	if ec.Release.HasManualBuildUpload {
		return e.consumeUploads(ctx, task, ec, targets)
	}
	return e.triggerBuilds(ctx, task, ec, spec.workflow, targets)
}

func (e *Executor) consumeUploads(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext, targets []buildTarget) (Result, error) {
	platforms := make([]model.Platform, 0, len(targets))
	for _, t := range targets {
		platforms = append(platforms, t.platform)
	}
	ready, err := CheckAllPlatformsReady(ctx, e.Repos.Upload, ec.Release.ReleaseId, task.Stage, task.CycleId, platforms)
	if err != nil {
		return nil, err
	}
	if !ready.AllReady {
		return awaitManualBuild, nil
	}

	uploadIds := make([]any, 0, len(targets))
	err = e.Repos.Transaction(ctx, func(tx *repo.Repositories) error {
		builds := make([]*model.Build, 0, len(targets))
		for _, t := range targets {
			staged := ready.Uploaded[t.platform]
			if err := tx.Upload.MarkAsUsed(ctx, staged.UploadId, task.TaskId, task.CycleId, ec.Now); err != nil {
				return fmt.Errorf("consume upload %s: %w", staged.UploadId, err)
			}
			// an unused row may be replaced in place until consumed; read what was consumed
			up, err := tx.Upload.Get(ctx, staged.UploadId)
			if err != nil {
				return err
			}
			builds = append(builds, &model.Build{
				BuildId:             id.GetUlid(),
				TenantId:            ec.Release.TenantId,
				ReleaseId:           ec.Release.ReleaseId,
				TaskId:              task.TaskId,
				CycleId:             task.CycleId,
				Platform:            t.platform,
				StoreType:           t.store,
				Stage:               task.Stage,
				BuildType:           model.BuildManual,
				BuildUploadStatus:   model.BuildUploadUploaded,
				WorkflowStatus:      model.WorkflowCompleted,
				ArtifactPath:        up.ArtifactPath,
				ArtifactVersionName: ec.Release.Version,
			})
			uploadIds = append(uploadIds, up.UploadId)
		}
		if err := tx.Build.CreateBatch(ctx, builds); err != nil {
			return err
		}
		_, err := tx.Task.Transition(ctx, task.TaskId, []model.TaskStatus{task.TaskStatus}, task.TaskStatus, map[string]any{
			"external_data": datatypes.JSONMap{"uploadIds": uploadIds},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	data := map[string]any{"uploadIds": uploadIds}
	if e.Builds == nil {
		return Structured(data), nil
	}
	status, err := e.Builds.Reconcile(ctx, task.TaskId)
	if err != nil {
		return nil, err
	}
	switch status {
	case model.TaskFailed:
		return nil, fmt.Errorf("%s: manual builds failed", task.TaskType)
	case model.TaskCompleted:
		return Structured(data), nil
	}
	return awaitCallback, nil
}

func (e *Executor) triggerBuilds(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext, wt model.WorkflowType, targets []buildTarget) (Result, error) {
	if ec.CicdConfig == nil {
		return nil, errs.Validation("cicdConfigId", "release %s has no CI/CD configuration", ec.Release.ReleaseId)
	}
	for _, t := range targets {
		if _, ok := ec.CicdConfig.Workflow(t.platform, wt); !ok {
			return nil, errs.Validation("workflows", "no %s workflow configured for %s", wt, t.platform)
		}
	}

	// Targets with a live (non-FAILED) build were triggered by an earlier step;
	// only the rest are triggered, so a retry rebuilds exactly the failed platforms.
	existing, err := e.Repos.Build.ListByTask(ctx, task.TaskId)
	if err != nil {
		return nil, err
	}
	live := map[model.Platform]bool{}
	for _, b := range existing {
		if b.BuildUploadStatus != model.BuildUploadFailed {
			live[b.Platform] = true
		}
	}

	for _, t := range targets {
		if live[t.platform] {
			continue
		}
		res, err := e.Cicd.TriggerWorkflow(ctx, integration.TriggerRequest{
			Config:       ec.CicdConfig,
			TenantId:     ec.Release.TenantId,
			ReleaseId:    ec.Release.ReleaseId,
			Platform:     t.platform,
			WorkflowType: wt,
			Params:       buildParams(task, ec),
		})
		if err != nil {
			if errs.IsValidation(err) {
				return nil, err
			}
			return nil, errs.External("cicd", "triggerWorkflow", err)
		}
		if res.QueueHandle == "" {
			return nil, errs.External("cicd", "triggerWorkflow", fmt.Errorf("%s %s: %w", wt, t.platform, cicd.ErrMissingQueueHandle))
		}
		// persisted per platform so a later failure leaves earlier triggers tracked
		if err := e.Repos.Build.CreateBatch(ctx, []*model.Build{{
			BuildId:           id.GetUlid(),
			TenantId:          ec.Release.TenantId,
			ReleaseId:         ec.Release.ReleaseId,
			TaskId:            task.TaskId,
			CycleId:           task.CycleId,
			Platform:          t.platform,
			StoreType:         t.store,
			Stage:             task.Stage,
			BuildType:         model.BuildCICD,
			BuildUploadStatus: model.BuildUploadPending,
			WorkflowStatus:    model.WorkflowQueued,
			QueueLocation:     res.QueueHandle,
			CiRunId:           res.CiRunId,
		}}); err != nil {
			return nil, fmt.Errorf("record %s build %s: %w", t.platform, res.QueueHandle, err)
		}
	}
	return awaitCallback, nil
}

func buildParams(task *model.ReleaseTask, ec *ExecutionContext) map[string]string {
	p := map[string]string{
		cicd.RefParam: ec.Release.Branch,
		"version":     ec.Release.Version,
		"releaseId":   ec.Release.ReleaseId,
		"taskId":      task.TaskId,
	}
	if task.CycleId != "" {
		p["cycleId"] = task.CycleId
	}
	if ec.Cycle != nil && ec.Cycle.CycleTag != "" {
		p["tag"] = ec.Cycle.CycleTag
	}
	return p
}
