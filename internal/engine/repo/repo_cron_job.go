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

package repo

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/pkg/database"
)

// CronTransition is a conditional change of cron status and pause type.
type CronTransition struct {
	From  []model.CronStatus
	To    model.CronStatus
	Pause model.PauseType
	// FromPause, when set, additionally requires the current pause type.
	FromPause []model.PauseType
}

// ICronJobRepository persists the orchestration cursor of each release. Every write is
// conditional on the expected prior state and bumps Version; a false return means the row
// was not in the expected state.
type ICronJobRepository interface {
	Create(ctx context.Context, job *model.CronJob) error
	GetByRelease(ctx context.Context, releaseId string) (*model.CronJob, error)
	// ListSchedulable returns RUNNING jobs and PENDING jobs; callers check kickoff dates.
	ListSchedulable(ctx context.Context) ([]*model.CronJob, error)
	Transition(ctx context.Context, releaseId string, t CronTransition) (bool, error)
	// AdvanceStage moves stage i from `from` to its single successor status.
	AdvanceStage(ctx context.Context, releaseId string, stage int, from model.StageStatus) (bool, error)
	UpdateUpcoming(ctx context.Context, releaseId string, version int64, slots model.RegressionSlots) (bool, error)
	UpdateConfig(ctx context.Context, releaseId string, version int64, cfg model.CronConfig) (bool, error)
	AcquireLease(ctx context.Context, releaseId, owner string, nowMs, ttlMs int64) (bool, error)
	ReleaseLease(ctx context.Context, releaseId, owner string) error
}

type CronJobRepo struct {
	database.IDatabase
}

func NewCronJobRepo(db database.IDatabase) ICronJobRepository {
	return &CronJobRepo{IDatabase: db}
}

func (r *CronJobRepo) Create(ctx context.Context, job *model.CronJob) error {
	return r.Database().WithContext(ctx).Create(job).Error
}

func (r *CronJobRepo) GetByRelease(ctx context.Context, releaseId string) (*model.CronJob, error) {
	var one model.CronJob
	if err := r.Database().WithContext(ctx).
		Where("release_id = ?", releaseId).
		First(&one).Error; err != nil {
		return nil, notFound(err, "cron job", releaseId)
	}
	return &one, nil
}

func (r *CronJobRepo) ListSchedulable(ctx context.Context) ([]*model.CronJob, error) {
	var list []*model.CronJob
	err := r.Database().WithContext(ctx).
		Where("cron_status IN ?", []model.CronStatus{model.CronRunning, model.CronPending}).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *CronJobRepo) conditional(ctx context.Context, releaseId string) *gorm.DB {
	return r.Database().WithContext(ctx).
		Model(&model.CronJob{}).
		Where("release_id = ?", releaseId)
}

func (r *CronJobRepo) Transition(ctx context.Context, releaseId string, t CronTransition) (bool, error) {
	tx := r.conditional(ctx, releaseId).Where("cron_status IN ?", t.From)
	if len(t.FromPause) > 0 {
		tx = tx.Where("pause_type IN ?", t.FromPause)
	}
	pause := t.Pause
	if pause == "" {
		pause = model.PauseNone
	}
	res := tx.Updates(map[string]any{
		"cron_status": t.To,
		"pause_type":  pause,
		"version":     gorm.Expr("version + 1"),
	})
	return res.RowsAffected > 0, res.Error
}

func (r *CronJobRepo) AdvanceStage(ctx context.Context, releaseId string, stage int, from model.StageStatus) (bool, error) {
	col := model.StageColumn(stage)
	if col == "" {
		return false, fmt.Errorf("unknown stage %d", stage)
	}
	to, ok := from.Next()
	if !ok {
		return false, fmt.Errorf("stage %d cannot leave %s", stage, from)
	}
	res := r.conditional(ctx, releaseId).
		Where(col+" = ?", from).
		Updates(map[string]any{
			col:       to,
			"version": gorm.Expr("version + 1"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *CronJobRepo) UpdateUpcoming(ctx context.Context, releaseId string, version int64, slots model.RegressionSlots) (bool, error) {
	res := r.conditional(ctx, releaseId).
		Where("version = ?", version).
		Updates(map[string]any{
			"upcoming_regressions": datatypes.NewJSONType(slots.Sorted()),
			"version":              gorm.Expr("version + 1"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *CronJobRepo) UpdateConfig(ctx context.Context, releaseId string, version int64, cfg model.CronConfig) (bool, error) {
	res := r.conditional(ctx, releaseId).
		Where("version = ?", version).
		Updates(map[string]any{
			"cron_config": datatypes.NewJSONType(cfg),
			"version":     gorm.Expr("version + 1"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *CronJobRepo) AcquireLease(ctx context.Context, releaseId, owner string, nowMs, ttlMs int64) (bool, error) {
	res := r.conditional(ctx, releaseId).
		Where("(locked_until < ? OR locked_by = ?)", nowMs, owner).
		Updates(map[string]any{
			"locked_until": nowMs + ttlMs,
			"locked_by":    owner,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *CronJobRepo) ReleaseLease(ctx context.Context, releaseId, owner string) error {
	return r.conditional(ctx, releaseId).
		Where("locked_by = ?", owner).
		Updates(map[string]any{
			"locked_until": 0,
			"locked_by":    "",
		}).Error
}
