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
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/executor"
	"github.com/arcentrix/launchpad/pkg/id"
)

// ReleaseStateMachine moves one release forward, one step per Execute call. All state
// lives in the database; the machine itself only holds the release id.
type ReleaseStateMachine struct {
	mu        sync.Mutex
	releaseId string
	engine    *Engine
}

func (m *ReleaseStateMachine) ReleaseId() string { return m.releaseId }

// outcome is what running a single task did to the step.
type outcome int

const (
	outcomeWaiting outcome = iota
	outcomeDone
	// outcomeHalt ends the step: a conditional write lost or the release was paused.
	outcomeHalt
)

// step is the state one Execute call works on.
type step struct {
	release *model.Release
	job     *model.CronJob
	cicd    *model.CicdConfig
	now     time.Time
}

// Execute performs one step. Conditional writes that match no row end the step
// quietly: another tick already moved the release.
func (m *ReleaseStateMachine) Execute(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.engine
	release, err := e.repos.Release.Get(ctx, m.releaseId)
	if err != nil {
		return err
	}
	job, err := e.repos.CronJob.GetByRelease(ctx, m.releaseId)
	if err != nil {
		return err
	}
	if !release.IsActive() || job.CronStatus == model.CronCompleted {
		e.registry.Evict(m.releaseId)
		return nil
	}

	s := &step{release: release, job: job, now: e.clock.Now()}
	switch job.CronStatus {
	case model.CronPaused:
		return nil
	case model.CronPending:
		if s.now.Before(release.KickOffDate) {
			return nil
		}
		started, err := e.start(ctx, m.releaseId)
		if err != nil || !started {
			return err
		}
		if s.job, err = e.repos.CronJob.GetByRelease(ctx, m.releaseId); err != nil {
			return err
		}
	}

	if release.CicdConfigId != "" {
		cfg, err := e.repos.CicdConfig.Get(ctx, release.CicdConfigId)
		if err != nil && !errs.IsNotFound(err) {
			return err
		}
		s.cicd = cfg
	}

	switch s.job.ActiveStage() {
	case 1:
		return m.runKickoff(ctx, s)
	case 2:
		return m.runRegression(ctx, s)
	case 3:
		return m.runPostRegression(ctx, s)
	}
	return m.enterNext(ctx, s)
}

func (m *ReleaseStateMachine) runKickoff(ctx context.Context, s *step) error {
	done, err := m.drive(ctx, s, model.StageKickoff, nil, nil)
	if err != nil || !done {
		return err
	}
	return m.completeStage(ctx, s, 1)
}

func (m *ReleaseStateMachine) runRegression(ctx context.Context, s *step) error {
	e := m.engine
	latest, err := e.repos.Cycle.Latest(ctx, m.releaseId)
	if err != nil {
		return err
	}

	if latest == nil || latest.Status.IsTerminal() {
		slots := s.job.UpcomingRegressions.Data()
		slot, due := slots.Due(s.now)
		if !due {
			if len(slots) > 0 {
				// slots never fire early
				return nil
			}
			return m.completeStage(ctx, s, 2)
		}
		cycle, err := m.createCycle(ctx, s, latest, slot, slots)
		if err != nil || cycle == nil {
			return err
		}
		latest = cycle
	}

	var previous *model.RegressionCycle
	if latest.CycleIndex > 1 {
		if previous, err = m.cycleByIndex(ctx, latest.CycleIndex-1); err != nil {
			return err
		}
	}
	done, err := m.drive(ctx, s, model.StageRegression, latest, previous)
	if err != nil || !done {
		return err
	}
	// the next cycle, or the end of the stage, comes with the next tick
	_, err = e.repos.Cycle.UpdateStatus(ctx, latest.CycleId,
		[]model.CycleStatus{model.CycleNotStarted, model.CycleInProgress}, model.CycleDone)
	return err
}

func (m *ReleaseStateMachine) cycleByIndex(ctx context.Context, index int) (*model.RegressionCycle, error) {
	cycles, err := m.engine.repos.Cycle.List(ctx, m.releaseId)
	if err != nil {
		return nil, err
	}
	for _, c := range cycles {
		if c.CycleIndex == index {
			return c, nil
		}
	}
	return nil, nil
}

// createCycle turns the due slot into the next cycle. The slot is popped with an
// optimistic lock on the cron job, in the same transaction that inserts the cycle.
func (m *ReleaseStateMachine) createCycle(ctx context.Context, s *step, latest *model.RegressionCycle, slot model.RegressionSlot, slots model.RegressionSlots) (*model.RegressionCycle, error) {
	e := m.engine
	if e.scm == nil {
		return nil, errs.Validation("scm", "no source control configured")
	}
	tag, err := e.scm.NextReleaseCandidateTag(ctx, integration.RepoOf(s.release), s.release.Version)
	if err != nil {
		return nil, err
	}
	index := 1
	if latest != nil {
		index = latest.CycleIndex + 1
	}
	cycle := &model.RegressionCycle{
		CycleId:    id.GetUlid(),
		ReleaseId:  m.releaseId,
		CycleIndex: index,
		SlotTime:   slot.Date,
		Status:     model.CycleNotStarted,
		CycleTag:   tag,
	}
	if slot.Config != nil {
		cycle.Config = datatypes.NewJSONType(*slot.Config)
	}

	popped := false
	err = e.repos.Transaction(ctx, func(tx *repo.Repositories) error {
		ok, err := tx.CronJob.UpdateUpcoming(ctx, m.releaseId, s.job.Version, slots.Without(slot))
		if err != nil || !ok {
			return err
		}
		popped = true
		return tx.Cycle.Create(ctx, cycle)
	})
	if err != nil || !popped {
		return nil, err
	}
	s.job.Version++
	e.log.InfoContext(ctx, "regression cycle created", "releaseId", m.releaseId, "cycleIndex", index, "tag", tag)
	return cycle, nil
}

func (m *ReleaseStateMachine) runPostRegression(ctx context.Context, s *step) error {
	latest, err := m.engine.repos.Cycle.Latest(ctx, m.releaseId)
	if err != nil {
		return err
	}
	done, err := m.drive(ctx, s, model.StagePostRegression, nil, latest)
	if err != nil || !done {
		return err
	}
	return m.completeStage(ctx, s, 3)
}

// completeStage marks stage i COMPLETED and enters whatever follows it.
func (m *ReleaseStateMachine) completeStage(ctx context.Context, s *step, i int) error {
	ok, err := m.engine.repos.CronJob.AdvanceStage(ctx, m.releaseId, i, model.StageInProgress)
	if err != nil || !ok {
		return err
	}
	if s.job, err = m.engine.repos.CronJob.GetByRelease(ctx, m.releaseId); err != nil {
		return err
	}
	return m.enterNext(ctx, s)
}

// enterNext starts the first stage that is not COMPLETED, pauses for a manual trigger
// when auto-transition is off, or finishes the release when every stage is done.
func (m *ReleaseStateMachine) enterNext(ctx context.Context, s *step) error {
	e := m.engine
	for i := 1; i <= 3; i++ {
		switch s.job.StageStatusOf(i) {
		case model.StageCompleted:
			continue
		case model.StageInProgress:
			return nil
		}
		if i > 1 && !autoTransition(s.job, i) {
			return e.pauser.pause(ctx, m.releaseId, model.PauseAwaitingStageTrigger, fmt.Sprintf("stage %d awaits trigger", i))
		}
		_, err := e.repos.CronJob.AdvanceStage(ctx, m.releaseId, i, model.StagePending)
		return err
	}
	return m.finish(ctx, s)
}

func autoTransition(job *model.CronJob, stage int) bool {
	switch stage {
	case 2:
		return job.AutoTransitionToStage2
	case 3:
		return job.AutoTransitionToStage3
	}
	return true
}

func (m *ReleaseStateMachine) finish(ctx context.Context, s *step) error {
	e := m.engine
	ok, err := e.repos.CronJob.Transition(ctx, m.releaseId, repo.CronTransition{
		From: []model.CronStatus{model.CronRunning},
		To:   model.CronCompleted,
	})
	if err != nil || !ok {
		return err
	}
	if _, err := e.repos.Release.UpdateStatus(ctx, m.releaseId,
		[]model.ReleaseStatus{model.ReleaseInProgress, model.ReleasePaused}, model.ReleaseCompleted); err != nil {
		return err
	}
	e.registry.Evict(m.releaseId)
	e.log.InfoContext(ctx, "release completed", "releaseId", m.releaseId)
	if e.notifier != nil {
		err := e.notifier.Notify(ctx, integration.Notification{
			Type:      integration.NotifyReleaseCompleted,
			TenantId:  s.release.TenantId,
			ReleaseId: m.releaseId,
			Title:     fmt.Sprintf("Release %s completed", s.release.Version),
			Data:      map[string]any{"releaseTag": s.release.ReleaseTag},
		})
		if err != nil {
			e.log.WarnContext(ctx, "completion notification failed", "releaseId", m.releaseId, "error", err)
		}
	}
	return nil
}

// drive creates the tasks of one stage (or cycle) whose predecessors are done and runs
// every task that is not terminal. It reports whether all tasks of the scope are done.
func (m *ReleaseStateMachine) drive(ctx context.Context, s *step, stage model.Stage, cycle, previous *model.RegressionCycle) (bool, error) {
	e := m.engine
	cfg := s.job.CronConfig.Data()
	cycleId, cycleIndex := "", 0
	if cycle != nil {
		cycleId, cycleIndex = cycle.CycleId, cycle.CycleIndex
		cfg = cycle.EffectiveConfig(cfg)
	}
	specs := Catalog(stage, cycleIndex)

	// each round may unlock the next wave of tasks
	for round := 0; round <= len(specs); round++ {
		all, err := e.repos.Task.ListByRelease(ctx, m.releaseId)
		if err != nil {
			return false, err
		}
		scope := inScope(all, stage, cycleId)
		// a FAILED task blocks its scope until retried; keep the release visibly paused
		for _, t := range scope {
			if t.TaskStatus == model.TaskFailed {
				reason := fmt.Sprintf("%s is failed and awaits retry", t.TaskType)
				if t.ErrorMessage != "" {
					reason = fmt.Sprintf("%s failed: %s", t.TaskType, t.ErrorMessage)
				}
				return false, e.pauser.pause(ctx, m.releaseId, model.PauseTaskFailure, reason)
			}
		}
		created, err := m.createWave(ctx, s, specs, scope, stage, cycleId, cfg)
		if err != nil {
			return false, err
		}
		if len(created) > 0 && cycle != nil && cycle.Status == model.CycleNotStarted {
			if _, err := e.repos.Cycle.UpdateStatus(ctx, cycle.CycleId,
				[]model.CycleStatus{model.CycleNotStarted}, model.CycleInProgress); err != nil {
				return false, err
			}
			cycle.Status = model.CycleInProgress
		}
		all = append(all, created...)
		scope = append(scope, created...)

		ec := &executor.ExecutionContext{
			Release:       s.release,
			CronJob:       s.job,
			Cycle:         cycle,
			PreviousCycle: previous,
			CicdConfig:    s.cicd,
			Config:        cfg,
			Tasks:         all,
			Now:           s.now,
		}
		progressed := len(created) > 0
		for _, t := range scope {
			if !t.TaskStatus.IsRunnable() {
				continue
			}
			out, err := m.runTask(ctx, s, t, ec)
			if err != nil {
				return false, err
			}
			switch out {
			case outcomeHalt:
				return false, nil
			case outcomeDone:
				progressed = true
			}
		}
		if complete(specs, scope) {
			return true, nil
		}
		if !progressed {
			return false, nil
		}
	}
	return false, nil
}

func inScope(tasks []*model.ReleaseTask, stage model.Stage, cycleId string) []*model.ReleaseTask {
	var out []*model.ReleaseTask
	for _, t := range tasks {
		if t.Stage == stage && t.CycleId == cycleId {
			out = append(out, t)
		}
	}
	return out
}

// complete reports whether every spec has a task and every task is done.
func complete(specs []TaskSpec, scope []*model.ReleaseTask) bool {
	byKind := make(map[model.TaskType]*model.ReleaseTask, len(scope))
	for _, t := range scope {
		byKind[t.TaskType] = t
	}
	for _, s := range specs {
		t, ok := byKind[s.Kind]
		if !ok || !t.TaskStatus.IsDone() {
			return false
		}
	}
	return true
}

// createWave inserts the tasks whose predecessors are done. Kinds disabled by config or
// without a matching platform are inserted as SKIPPED.
func (m *ReleaseStateMachine) createWave(ctx context.Context, s *step, specs []TaskSpec, scope []*model.ReleaseTask, stage model.Stage, cycleId string, cfg model.CronConfig) ([]*model.ReleaseTask, error) {
	have := make(map[model.TaskType]*model.ReleaseTask, len(scope))
	for _, t := range scope {
		have[t.TaskType] = t
	}
	applicable := make(map[model.TaskType]bool, len(specs))
	for _, sp := range specs {
		applicable[sp.Kind] = true
	}

	var wave []*model.ReleaseTask
	for _, sp := range specs {
		if _, ok := have[sp.Kind]; ok {
			continue
		}
		ready := true
		for _, dep := range sp.After {
			if !applicable[dep] {
				continue
			}
			if t, ok := have[dep]; !ok || !t.TaskStatus.IsDone() {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		t := &model.ReleaseTask{
			TaskId:     id.GetUlid(),
			ReleaseId:  m.releaseId,
			CycleId:    cycleId,
			TaskType:   sp.Kind,
			Stage:      stage,
			TaskStatus: model.TaskPending,
		}
		if reason := SkipReason(sp, s.release, cfg); reason != "" {
			now := s.now
			t.TaskStatus = model.TaskSkipped
			t.ExternalData = datatypes.JSONMap{"skipped": reason}
			t.FinishedAt = &now
		}
		wave = append(wave, t)
	}
	if len(wave) == 0 {
		return []*model.ReleaseTask{}, nil
	}
	if err := m.engine.repos.Task.CreateBatch(ctx, wave); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent step created the wave first
			return []*model.ReleaseTask{}, nil
		}
		return nil, err
	}
	return wave, nil
}

// runTask takes one task a single transition forward.
func (m *ReleaseStateMachine) runTask(ctx context.Context, s *step, t *model.ReleaseTask, ec *executor.ExecutionContext) (outcome, error) {
	e := m.engine
	if t.TaskStatus == model.TaskPending {
		ok, err := e.repos.Task.Transition(ctx, t.TaskId, []model.TaskStatus{model.TaskPending}, model.TaskInProgress,
			map[string]any{"started_at": s.now})
		if err != nil || !ok {
			return outcomeHalt, err
		}
		t.TaskStatus = model.TaskInProgress
	}

	if t.TaskStatus == model.TaskAwaitingCallback && executor.IsBuildTask(t.TaskType) {
		status, err := e.builds.Poll(ctx, t, s.cicd)
		if err != nil {
			return outcomeHalt, err
		}
		t.TaskStatus = status
		switch status {
		case model.TaskCompleted:
			return outcomeDone, nil
		case model.TaskFailed:
			return outcomeHalt, nil
		}
		return outcomeWaiting, nil
	}

	res, err := e.exec.Execute(ctx, t, ec)
	if err != nil {
		if !errs.PausesRelease(err) {
			return outcomeHalt, err
		}
		return outcomeHalt, m.fail(ctx, s, t, err)
	}

	switch r := res.(type) {
	case executor.Value:
		ok, err := e.repos.Task.Transition(ctx, t.TaskId, []model.TaskStatus{t.TaskStatus}, model.TaskCompleted, map[string]any{
			"external_id":   r.ExternalId,
			"external_data": datatypes.JSONMap(r.Data),
			"error_message": "",
			"finished_at":   s.now,
		})
		if err != nil {
			return outcomeHalt, err
		}
		if !ok {
			// completed elsewhere (the manual build path reconciles on its own)
			cur, err := e.repos.Task.Get(ctx, t.TaskId)
			if err != nil {
				return outcomeHalt, err
			}
			t.TaskStatus = cur.TaskStatus
			if cur.TaskStatus.IsDone() {
				return outcomeDone, nil
			}
			return outcomeHalt, nil
		}
		t.TaskStatus = model.TaskCompleted
		t.ExternalId = r.ExternalId
		t.ExternalData = datatypes.JSONMap(r.Data)
		return outcomeDone, nil

	case executor.AwaitMarker:
		if t.TaskStatus != r.Status {
			ok, err := e.repos.Task.Transition(ctx, t.TaskId, []model.TaskStatus{t.TaskStatus}, r.Status, nil)
			if err != nil || !ok {
				return outcomeHalt, err
			}
			t.TaskStatus = r.Status
		}
	}
	return outcomeWaiting, nil
}

// fail persists FAILED for t and pauses the release in the same step.
func (m *ReleaseStateMachine) fail(ctx context.Context, s *step, t *model.ReleaseTask, cause error) error {
	e := m.engine
	ok, err := e.repos.Task.Transition(ctx, t.TaskId, []model.TaskStatus{t.TaskStatus}, model.TaskFailed, map[string]any{
		"error_message": cause.Error(),
		"finished_at":   s.now,
	})
	if err != nil || !ok {
		return err
	}
	t.TaskStatus = model.TaskFailed
	e.log.ErrorContext(ctx, "task failed", "releaseId", m.releaseId, "taskId", t.TaskId, "taskType", t.TaskType, "error", cause)
	return e.pauser.pause(ctx, m.releaseId, model.PauseTaskFailure, fmt.Sprintf("%s failed: %v", t.TaskType, cause))
}
