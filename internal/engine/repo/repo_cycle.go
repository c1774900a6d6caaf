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
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/pkg/database"
)

// ICycleRepository persists regression cycles.
type ICycleRepository interface {
	// Create inserts the cycle and makes it the only IsLatest cycle of its release.
	Create(ctx context.Context, cycle *model.RegressionCycle) error
	Get(ctx context.Context, cycleId string) (*model.RegressionCycle, error)
	// Latest returns the highest-index cycle, or nil when the release has none.
	Latest(ctx context.Context, releaseId string) (*model.RegressionCycle, error)
	List(ctx context.Context, releaseId string) ([]*model.RegressionCycle, error)
	SlotTimes(ctx context.Context, releaseId string) ([]time.Time, error)
	UpdateStatus(ctx context.Context, cycleId string, from []model.CycleStatus, to model.CycleStatus) (bool, error)
}

type CycleRepo struct {
	database.IDatabase
}

func NewCycleRepo(db database.IDatabase) ICycleRepository {
	return &CycleRepo{IDatabase: db}
}

func (r *CycleRepo) Create(ctx context.Context, cycle *model.RegressionCycle) error {
	return r.Database().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.RegressionCycle{}).
			Where("release_id = ? AND is_latest = ?", cycle.ReleaseId, true).
			Update("is_latest", false).Error; err != nil {
			return err
		}
		cycle.IsLatest = true
		return tx.Create(cycle).Error
	})
}

func (r *CycleRepo) Get(ctx context.Context, cycleId string) (*model.RegressionCycle, error) {
	var one model.RegressionCycle
	if err := r.Database().WithContext(ctx).
		Where("cycle_id = ?", cycleId).
		First(&one).Error; err != nil {
		return nil, notFound(err, "regression cycle", cycleId)
	}
	return &one, nil
}

func (r *CycleRepo) Latest(ctx context.Context, releaseId string) (*model.RegressionCycle, error) {
	var one model.RegressionCycle
	err := r.Database().WithContext(ctx).
		Where("release_id = ?", releaseId).
		Order("cycle_index DESC").
		First(&one).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &one, nil
}

func (r *CycleRepo) List(ctx context.Context, releaseId string) ([]*model.RegressionCycle, error) {
	var list []*model.RegressionCycle
	err := r.Database().WithContext(ctx).
		Where("release_id = ?", releaseId).
		Order("cycle_index ASC").
		Find(&list).Error
	return list, err
}

func (r *CycleRepo) SlotTimes(ctx context.Context, releaseId string) ([]time.Time, error) {
	cycles, err := r.List(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, c.SlotTime)
	}
	return out, nil
}

func (r *CycleRepo) UpdateStatus(ctx context.Context, cycleId string, from []model.CycleStatus, to model.CycleStatus) (bool, error) {
	res := r.Database().WithContext(ctx).
		Model(&model.RegressionCycle{}).
		Where("cycle_id = ? AND status IN ?", cycleId, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}
