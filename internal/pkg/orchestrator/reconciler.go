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
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/executor"
	"github.com/arcentrix/launchpad/pkg/logger"
)

// StatusPoller pulls run status from CI/CD providers that support it.
type StatusPoller interface {
	SupportsPolling(cfg *model.CicdConfig) bool
	WorkflowStatus(ctx context.Context, cfg *model.CicdConfig, queueHandle string) (integration.RunStatus, error)
}

// BuildOutcome is the aggregate of a task's build rows.
type BuildOutcome int

const (
	BuildsPending BuildOutcome = iota
	BuildsCompleted
	BuildsFailed
)

// AggregateBuilds applies the completion rule shared by manual and CI/CD builds:
// any failed build fails the task, all uploaded completes it.
func AggregateBuilds(builds []*model.Build) BuildOutcome {
	if len(builds) == 0 {
		return BuildsPending
	}
	uploaded := 0
	for _, b := range builds {
		switch b.BuildUploadStatus {
		case model.BuildUploadFailed:
			return BuildsFailed
		case model.BuildUploadUploaded:
			uploaded++
		}
	}
	if uploaded == len(builds) {
		return BuildsCompleted
	}
	return BuildsPending
}

// ExpectBuilds keeps a completed outcome pending while some expected platform has
// no uploaded build, e.g. between the per-platform triggers of one step.
func ExpectBuilds(outcome BuildOutcome, builds []*model.Build, expected []model.Platform) BuildOutcome {
	if outcome != BuildsCompleted {
		return outcome
	}
	uploaded := map[model.Platform]bool{}
	for _, b := range builds {
		if b.BuildUploadStatus == model.BuildUploadUploaded {
			uploaded[b.Platform] = true
		}
	}
	for _, p := range expected {
		if !uploaded[p] {
			return BuildsPending
		}
	}
	return outcome
}

// waitingStatuses are the task statuses a reconcile may finish.
var waitingStatuses = []model.TaskStatus{
	model.TaskInProgress,
	model.TaskAwaitingCallback,
	model.TaskAwaitingManualBuild,
}

// BuildReconciler folds externally reported build status into task transitions.
type BuildReconciler struct {
	repos    *repo.Repositories
	poller   StatusPoller
	notifier integration.Notifier
	pauser   *pauser
	clock    Clock
	log      logger.ILogger
}

func NewBuildReconciler(repos *repo.Repositories, poller StatusPoller, notifier integration.Notifier, clock Clock) *BuildReconciler {
	if clock == nil {
		clock = SystemClock
	}
	return &BuildReconciler{
		repos:    repos,
		poller:   poller,
		notifier: notifier,
		pauser:   &pauser{repos: repos, notifier: notifier},
		clock:    clock,
		log:      logger.Channel("executor"),
	}
}

// Reconcile aggregates the builds of taskId and moves the task accordingly. It returns
// the task status after the call.
func (r *BuildReconciler) Reconcile(ctx context.Context, taskId string) (model.TaskStatus, error) {
	task, err := r.repos.Task.Get(ctx, taskId)
	if err != nil {
		return "", err
	}
	builds, err := r.repos.Build.ListByTask(ctx, taskId)
	if err != nil {
		return "", err
	}

	outcome := AggregateBuilds(builds)
	if outcome == BuildsCompleted {
		release, err := r.repos.Release.Get(ctx, task.ReleaseId)
		if err != nil {
			return "", err
		}
		outcome = ExpectBuilds(outcome, builds, executor.BuildPlatforms(task.TaskType, release))
	}

	now := r.clock.Now()
	switch outcome {
	case BuildsFailed:
		reason := failedBuildsMessage(builds)
		ok, err := r.repos.Task.Transition(ctx, taskId, waitingStatuses, model.TaskFailed, map[string]any{
			"error_message": reason,
			"finished_at":   now,
		})
		if err != nil {
			return "", err
		}
		if !ok {
			return r.current(ctx, taskId)
		}
		if err := r.pauser.pause(ctx, task.ReleaseId, model.PauseTaskFailure, reason); err != nil {
			return "", err
		}
		return model.TaskFailed, nil

	case BuildsCompleted:
		data := datatypes.JSONMap{}
		for k, v := range task.ExternalData {
			data[k] = v
		}
		ids := make([]any, 0, len(builds))
		for _, b := range builds {
			ids = append(ids, b.BuildId)
		}
		data["buildIds"] = ids
		ok, err := r.repos.Task.Transition(ctx, taskId, waitingStatuses, model.TaskCompleted, map[string]any{
			"external_data": data,
			"finished_at":   now,
			"error_message": "",
		})
		if err != nil {
			return "", err
		}
		if !ok {
			return r.current(ctx, taskId)
		}
		r.announce(ctx, builds)
		return model.TaskCompleted, nil
	}
	return task.TaskStatus, nil
}

func (r *BuildReconciler) current(ctx context.Context, taskId string) (model.TaskStatus, error) {
	task, err := r.repos.Task.Get(ctx, taskId)
	if err != nil {
		return "", err
	}
	return task.TaskStatus, nil
}

// announce sends one notification per build; delivery failures are only logged.
func (r *BuildReconciler) announce(ctx context.Context, builds []*model.Build) {
	if r.notifier == nil {
		return
	}
	for _, b := range builds {
		err := r.notifier.Notify(ctx, integration.Notification{
			Type:      integration.NotifyBuildReady,
			TenantId:  b.TenantId,
			ReleaseId: b.ReleaseId,
			Title:     fmt.Sprintf("%s build ready", b.Platform),
			Body:      fmt.Sprintf("%s build %s for %s is available.", b.Platform, b.BuildNumber, b.StoreType),
			Data: map[string]any{
				"buildId":      b.BuildId,
				"taskId":       b.TaskId,
				"platform":     string(b.Platform),
				"storeType":    string(b.StoreType),
				"buildType":    string(b.BuildType),
				"artifactPath": b.ArtifactPath,
				"buildNumber":  b.BuildNumber,
			},
		})
		if err != nil {
			r.log.WarnContext(ctx, "build notification failed", "buildId", b.BuildId, "error", err)
		}
	}
}

// HandleBuildCallback records the status a CI/CD provider reported for the build
// behind handle (queue location or CI run id) and reconciles its task.
func (r *BuildReconciler) HandleBuildCallback(ctx context.Context, handle string, st integration.RunStatus) (model.TaskStatus, error) {
	b, err := r.repos.Build.FindByHandle(ctx, handle)
	if err != nil {
		return "", err
	}
	if _, err := r.repos.Build.UpdateStatus(ctx, b.BuildId, statusUpdate(st)); err != nil {
		return "", err
	}
	return r.Reconcile(ctx, b.TaskId)
}

// Poll refreshes the pending builds of task from the provider, when it can be polled,
// then reconciles.
func (r *BuildReconciler) Poll(ctx context.Context, task *model.ReleaseTask, cfg *model.CicdConfig) (model.TaskStatus, error) {
	if r.poller != nil && cfg != nil && r.poller.SupportsPolling(cfg) {
		builds, err := r.repos.Build.ListByTask(ctx, task.TaskId)
		if err != nil {
			return "", err
		}
		for _, b := range builds {
			if b.BuildUploadStatus != model.BuildUploadPending || b.QueueLocation == "" {
				continue
			}
			st, err := r.poller.WorkflowStatus(ctx, cfg, b.QueueLocation)
			if err != nil {
				// transient; the next tick polls again
				r.log.WarnContext(ctx, "poll workflow status failed", "buildId", b.BuildId, "error", err)
				continue
			}
			if _, err := r.repos.Build.UpdateStatus(ctx, b.BuildId, statusUpdate(st)); err != nil {
				return "", err
			}
		}
	}
	return r.Reconcile(ctx, task.TaskId)
}

func statusUpdate(st integration.RunStatus) repo.BuildStatusUpdate {
	u := repo.BuildStatusUpdate{
		WorkflowStatus:      st.Status,
		CiRunId:             st.CiRunId,
		ArtifactPath:        st.ArtifactPath,
		BuildNumber:         st.BuildNumber,
		ArtifactVersionName: st.VersionName,
		ErrorMessage:        st.Error,
	}
	switch st.Status {
	case model.WorkflowCompleted:
		u.UploadStatus = model.BuildUploadUploaded
	case model.WorkflowFailed:
		u.UploadStatus = model.BuildUploadFailed
		if u.ErrorMessage == "" {
			u.ErrorMessage = "workflow failed"
		}
	}
	return u
}

func failedBuildsMessage(builds []*model.Build) string {
	var parts []string
	for _, b := range builds {
		if b.BuildUploadStatus != model.BuildUploadFailed {
			continue
		}
		msg := b.ErrorMessage
		if msg == "" {
			msg = "build failed"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", b.Platform, msg))
	}
	return strings.Join(parts, "; ")
}
