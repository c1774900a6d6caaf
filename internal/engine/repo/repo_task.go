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

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/pkg/database"
)

// TaskQuery selects the tasks of one stage, optionally within a cycle.
type TaskQuery struct {
	ReleaseId string
	Stage     model.Stage
	// CycleId filters regression tasks; empty matches tasks outside any cycle.
	CycleId  string
	Statuses []model.TaskStatus
}

// ITaskRepository persists release tasks. Status writes are conditional.
type ITaskRepository interface {
	CreateBatch(ctx context.Context, tasks []*model.ReleaseTask) error
	Get(ctx context.Context, taskId string) (*model.ReleaseTask, error)
	List(ctx context.Context, query TaskQuery) ([]*model.ReleaseTask, error)
	ListByRelease(ctx context.Context, releaseId string) ([]*model.ReleaseTask, error)
	// Transition sets task_status to `to` (plus extra columns) only while it is in `from`.
	Transition(ctx context.Context, taskId string, from []model.TaskStatus, to model.TaskStatus, extra map[string]any) (bool, error)
}

type TaskRepo struct {
	database.IDatabase
}

func NewTaskRepo(db database.IDatabase) ITaskRepository {
	return &TaskRepo{IDatabase: db}
}

func (r *TaskRepo) CreateBatch(ctx context.Context, tasks []*model.ReleaseTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.Database().WithContext(ctx).Create(&tasks).Error
}

func (r *TaskRepo) Get(ctx context.Context, taskId string) (*model.ReleaseTask, error) {
	var one model.ReleaseTask
	if err := r.Database().WithContext(ctx).
		Where("task_id = ?", taskId).
		First(&one).Error; err != nil {
		return nil, notFound(err, "task", taskId)
	}
	return &one, nil
}

func (r *TaskRepo) List(ctx context.Context, query TaskQuery) ([]*model.ReleaseTask, error) {
	tx := r.Database().WithContext(ctx).
		Where("release_id = ? AND stage = ? AND cycle_id = ?", query.ReleaseId, query.Stage, query.CycleId)
	if len(query.Statuses) > 0 {
		tx = tx.Where("task_status IN ?", query.Statuses)
	}
	var list []*model.ReleaseTask
	err := tx.Order("id ASC").Find(&list).Error
	return list, err
}

func (r *TaskRepo) ListByRelease(ctx context.Context, releaseId string) ([]*model.ReleaseTask, error) {
	var list []*model.ReleaseTask
	err := r.Database().WithContext(ctx).
		Where("release_id = ?", releaseId).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *TaskRepo) Transition(ctx context.Context, taskId string, from []model.TaskStatus, to model.TaskStatus, extra map[string]any) (bool, error) {
	updates := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		updates[k] = v
	}
	updates["task_status"] = to
	res := r.Database().WithContext(ctx).
		Model(&model.ReleaseTask{}).
		Where("task_id = ? AND task_status IN ?", taskId, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

