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
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/id"
)

// NewRelease is the input of CreateRelease.
type NewRelease struct {
	Release                *model.Release
	CronConfig             model.CronConfig
	UpcomingRegressions    model.RegressionSlots
	AutoTransitionToStage2 bool
	AutoTransitionToStage3 bool
}

// CreateRelease stores a release and its PENDING cron job. The scheduler starts it once
// the kickoff date arrives.
func (e *Engine) CreateRelease(ctx context.Context, in NewRelease) (*model.Release, error) {
	r := in.Release
	if r == nil {
		return nil, errs.Validation("release", "is required")
	}
	if r.Version == "" {
		return nil, errs.Validation("version", "is required")
	}
	if r.KickOffDate.IsZero() {
		return nil, errs.Validation("kickOffDate", "is required")
	}
	if len(r.Platforms.Data()) == 0 {
		return nil, errs.Validation("platforms", "at least one platform is required")
	}
	for _, pt := range r.Platforms.Data() {
		if !pt.Platform.Valid() {
			return nil, errs.Validation("platforms", "unknown platform %q", pt.Platform)
		}
	}
	if err := e.checkThresholds(in.CronConfig, in.UpcomingRegressions); err != nil {
		return nil, err
	}
	slots, err := model.ReplaceUpcoming(in.UpcomingRegressions, nil)
	if err != nil {
		return nil, errs.Validation("upcomingRegressions", "%v", err)
	}

	if r.ReleaseId == "" {
		r.ReleaseId = id.GetUlid()
	}
	if r.Type == "" {
		r.Type = model.ReleasePlanned
	}
	if r.Branch == "" {
		r.Branch = "release/" + r.Version
	}
	r.Status = model.ReleaseInProgress
	job := &model.CronJob{
		CronJobId:              id.GetUlid(),
		ReleaseId:              r.ReleaseId,
		Stage1Status:           model.StagePending,
		Stage2Status:           model.StagePending,
		Stage3Status:           model.StagePending,
		CronStatus:             model.CronPending,
		PauseType:              model.PauseNone,
		CronConfig:             datatypes.NewJSONType(in.CronConfig),
		UpcomingRegressions:    datatypes.NewJSONType(slots),
		AutoTransitionToStage2: in.AutoTransitionToStage2,
		AutoTransitionToStage3: in.AutoTransitionToStage3,
		Version:                1,
	}
	err = e.repos.Transaction(ctx, func(tx *repo.Repositories) error {
		if err := tx.Release.Create(ctx, r); err != nil {
			return err
		}
		return tx.CronJob.Create(ctx, job)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.InvalidState("release %s already exists", r.ReleaseId)
		}
		return nil, err
	}
	return r, nil
}

func (e *Engine) checkThresholds(cfg model.CronConfig, slots model.RegressionSlots) error {
	exprs := []string{cfg.ThresholdExpr()}
	for _, s := range slots {
		if s.Config != nil && s.Config.TestThresholdExpr != nil {
			exprs = append(exprs, *s.Config.TestThresholdExpr)
		}
	}
	th := integration.NewThresholdEvaluator()
	for _, src := range exprs {
		if err := th.Compile(src); err != nil {
			return errs.Validation("testThresholdExpr", "%v", err)
		}
	}
	return nil
}

// start moves a PENDING release to RUNNING with stage 1 in progress.
func (e *Engine) start(ctx context.Context, releaseId string) (bool, error) {
	started := false
	err := e.repos.Transaction(ctx, func(tx *repo.Repositories) error {
		ok, err := tx.CronJob.Transition(ctx, releaseId, repo.CronTransition{
			From: []model.CronStatus{model.CronPending},
			To:   model.CronRunning,
		})
		if err != nil || !ok {
			return err
		}
		if _, err := tx.CronJob.AdvanceStage(ctx, releaseId, 1, model.StagePending); err != nil {
			return err
		}
		started = true
		return nil
	})
	if err != nil || !started {
		return false, err
	}
	e.log.InfoContext(ctx, "release started", "releaseId", releaseId)
	e.kickoffReminder(ctx, releaseId)
	return true, nil
}

func (e *Engine) kickoffReminder(ctx context.Context, releaseId string) {
	if e.notifier == nil {
		return
	}
	job, err := e.repos.CronJob.GetByRelease(ctx, releaseId)
	if err != nil || !job.CronConfig.Data().KickOffReminderEnabled() {
		return
	}
	r, err := e.repos.Release.Get(ctx, releaseId)
	if err != nil {
		return
	}
	err = e.notifier.Notify(ctx, integration.Notification{
		Type:      integration.NotifyKickoffReminder,
		TenantId:  r.TenantId,
		ReleaseId: releaseId,
		Title:     fmt.Sprintf("Release %s kicked off", r.Version),
		Body:      fmt.Sprintf("Branch %s is being cut from %s.", r.Branch, r.BaseBranch),
	})
	if err != nil {
		e.log.WarnContext(ctx, "kickoff notification failed", "releaseId", releaseId, "error", err)
	}
}

// StartRelease starts a PENDING release whose kickoff date has arrived.
func (e *Engine) StartRelease(ctx context.Context, releaseId string) error {
	r, err := e.repos.Release.Get(ctx, releaseId)
	if err != nil {
		return err
	}
	if now := e.clock.Now(); now.Before(r.KickOffDate) {
		return errs.InvalidState("kickoff date %s has not arrived", r.KickOffDate.Format("2006-01-02 15:04"))
	}
	started, err := e.start(ctx, releaseId)
	if err != nil {
		return err
	}
	if !started {
		return errs.InvalidState("release %s is not pending", releaseId)
	}
	return nil
}

// TriggerStage starts stage 2 or 3 by hand. The previous stage must be COMPLETED; a
// release paused for the trigger resumes.
func (e *Engine) TriggerStage(ctx context.Context, releaseId string, stage int) error {
	if stage != 2 && stage != 3 {
		return errs.Validation("stage", "only stage 2 or 3 can be triggered, got %d", stage)
	}
	job, err := e.repos.CronJob.GetByRelease(ctx, releaseId)
	if err != nil {
		return err
	}
	if job.StageStatusOf(stage-1) != model.StageCompleted {
		return errs.InvalidState("stage %d is not completed", stage-1)
	}
	return e.repos.Transaction(ctx, func(tx *repo.Repositories) error {
		ok, err := tx.CronJob.AdvanceStage(ctx, releaseId, stage, model.StagePending)
		if err != nil {
			return err
		}
		if !ok {
			return errs.InvalidState("stage %d is not pending", stage)
		}
		_, err = tx.CronJob.Transition(ctx, releaseId, repo.CronTransition{
			From:      []model.CronStatus{model.CronPaused},
			To:        model.CronRunning,
			FromPause: []model.PauseType{model.PauseAwaitingStageTrigger},
		})
		return err
	})
}

// AbandonCycle ends a cycle that is not DONE. Its remaining tasks are never executed and
// the next slot may become a new cycle.
func (e *Engine) AbandonCycle(ctx context.Context, releaseId, cycleId string) error {
	c, err := e.repos.Cycle.Get(ctx, cycleId)
	if err != nil {
		return err
	}
	if c.ReleaseId != releaseId {
		return errs.NotFound("regression cycle", cycleId)
	}
	ok, err := e.repos.Cycle.UpdateStatus(ctx, cycleId,
		[]model.CycleStatus{model.CycleNotStarted, model.CycleInProgress}, model.CycleAbandoned)
	if err != nil {
		return err
	}
	if !ok {
		return errs.InvalidState("cycle %s is already %s", cycleId, c.Status)
	}
	e.log.InfoContext(ctx, "regression cycle abandoned", "releaseId", releaseId, "cycleId", cycleId)
	return nil
}

// RetryTask puts a FAILED task back to PENDING, drops its failed builds and lifts the
// task-failure pause.
func (e *Engine) RetryTask(ctx context.Context, taskId string) (*model.ReleaseTask, error) {
	task, err := e.repos.Task.Get(ctx, taskId)
	if err != nil {
		return nil, err
	}
	err = e.repos.Transaction(ctx, func(tx *repo.Repositories) error {
		ok, err := tx.Task.Transition(ctx, taskId, []model.TaskStatus{model.TaskFailed}, model.TaskPending, map[string]any{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"error_message": "",
			"started_at":    nil,
			"finished_at":   nil,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errs.InvalidState("task %s is not failed", taskId)
		}
		if _, err := tx.Build.DeleteFailedByTask(ctx, taskId); err != nil {
			return err
		}
		resumed, err := tx.CronJob.Transition(ctx, task.ReleaseId, repo.CronTransition{
			From:      []model.CronStatus{model.CronPaused},
			To:        model.CronRunning,
			FromPause: []model.PauseType{model.PauseTaskFailure},
		})
		if err != nil || !resumed {
			return err
		}
		_, err = tx.Release.UpdateStatus(ctx, task.ReleaseId, []model.ReleaseStatus{model.ReleasePaused}, model.ReleaseInProgress)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "task retried", "releaseId", task.ReleaseId, "taskId", taskId, "taskType", task.TaskType)
	return e.repos.Task.Get(ctx, taskId)
}

// Pause halts a running release until Resume.
func (e *Engine) Pause(ctx context.Context, releaseId string) error {
	return e.repos.Transaction(ctx, func(tx *repo.Repositories) error {
		ok, err := tx.CronJob.Transition(ctx, releaseId, repo.CronTransition{
			From:  []model.CronStatus{model.CronRunning},
			To:    model.CronPaused,
			Pause: model.PauseUserRequested,
		})
		if err != nil {
			return err
		}
		if !ok {
			return errs.InvalidState("release %s is not running", releaseId)
		}
		_, err = tx.Release.UpdateStatus(ctx, releaseId, []model.ReleaseStatus{model.ReleaseInProgress}, model.ReleasePaused)
		return err
	})
}

// Resume clears a user or task-failure pause. Failed tasks stay FAILED until retried;
// a release waiting for a stage trigger resumes through TriggerStage.
func (e *Engine) Resume(ctx context.Context, releaseId string) error {
	return e.repos.Transaction(ctx, func(tx *repo.Repositories) error {
		ok, err := tx.CronJob.Transition(ctx, releaseId, repo.CronTransition{
			From:      []model.CronStatus{model.CronPaused},
			To:        model.CronRunning,
			FromPause: []model.PauseType{model.PauseUserRequested, model.PauseTaskFailure},
		})
		if err != nil {
			return err
		}
		if !ok {
			return errs.InvalidState("release %s cannot be resumed", releaseId)
		}
		_, err = tx.Release.UpdateStatus(ctx, releaseId, []model.ReleaseStatus{model.ReleasePaused}, model.ReleaseInProgress)
		return err
	})
}

// UpdateUpcomingSlots replaces the regression schedule. slots is the whole schedule,
// including slots already turned into cycles; it returns the slots still to run.
func (e *Engine) UpdateUpcomingSlots(ctx context.Context, releaseId string, slots model.RegressionSlots) (model.RegressionSlots, error) {
	job, err := e.repos.CronJob.GetByRelease(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	if job.Stage3Status != model.StagePending {
		return nil, errs.InvalidState("regression schedule is frozen once stage 3 started")
	}
	if err := e.checkThresholds(model.CronConfig{}, slots); err != nil {
		return nil, err
	}
	consumed, err := e.repos.Cycle.SlotTimes(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	remaining, err := model.ReplaceUpcoming(slots, consumed)
	if err != nil {
		if errors.Is(err, model.ErrSlotAlreadyConsumed) {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidState, err)
		}
		return nil, errs.Validation("upcomingRegressions", "%v", err)
	}
	ok, err := e.repos.CronJob.UpdateUpcoming(ctx, releaseId, job.Version, remaining)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.InvalidState("release %s changed concurrently", releaseId)
	}
	return remaining, nil
}

// UpdateCronConfig overlays the set fields of overlay on the stored config.
func (e *Engine) UpdateCronConfig(ctx context.Context, releaseId string, overlay model.CronConfig) (model.CronConfig, error) {
	job, err := e.repos.CronJob.GetByRelease(ctx, releaseId)
	if err != nil {
		return model.CronConfig{}, err
	}
	merged := job.CronConfig.Data().Merge(overlay)
	if err := e.checkThresholds(merged, nil); err != nil {
		return model.CronConfig{}, err
	}
	ok, err := e.repos.CronJob.UpdateConfig(ctx, releaseId, job.Version, merged)
	if err != nil {
		return model.CronConfig{}, err
	}
	if !ok {
		return model.CronConfig{}, errs.InvalidState("release %s changed concurrently", releaseId)
	}
	return merged, nil
}

// ReleaseView is the orchestration state of one release.
type ReleaseView struct {
	Release *model.Release           `json:"release"`
	CronJob *model.CronJob           `json:"cronJob"`
	Cycles  []*model.RegressionCycle `json:"cycles"`
	Tasks   []*model.ReleaseTask     `json:"tasks"`
}

// Describe loads everything the engine knows about releaseId.
func (e *Engine) Describe(ctx context.Context, releaseId string) (*ReleaseView, error) {
	r, err := e.repos.Release.Get(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	job, err := e.repos.CronJob.GetByRelease(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	cycles, err := e.repos.Cycle.List(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	tasks, err := e.repos.Task.ListByRelease(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	return &ReleaseView{Release: r, CronJob: job, Cycles: cycles, Tasks: tasks}, nil
}
