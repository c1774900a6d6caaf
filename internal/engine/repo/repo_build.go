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

// BuildStatusUpdate is what a CI/CD callback or a status poll reports for one build.
type BuildStatusUpdate struct {
	UploadStatus        model.BuildUploadStatus
	WorkflowStatus      model.WorkflowStatus
	CiRunId             string
	ArtifactPath        string
	BuildNumber         string
	ArtifactVersionName string
	ErrorMessage        string
}

func (u BuildStatusUpdate) columns() map[string]any {
	m := map[string]any{}
	if u.UploadStatus != "" {
		m["build_upload_status"] = u.UploadStatus
	}
	if u.WorkflowStatus != "" {
		m["workflow_status"] = u.WorkflowStatus
	}
	if u.CiRunId != "" {
		m["ci_run_id"] = u.CiRunId
	}
	if u.ArtifactPath != "" {
		m["artifact_path"] = u.ArtifactPath
	}
	if u.BuildNumber != "" {
		m["build_number"] = u.BuildNumber
	}
	if u.ArtifactVersionName != "" {
		m["artifact_version_name"] = u.ArtifactVersionName
	}
	if u.ErrorMessage != "" {
		m["error_message"] = u.ErrorMessage
	}
	return m
}

// IBuildRepository persists build rows.
type IBuildRepository interface {
	CreateBatch(ctx context.Context, builds []*model.Build) error
	ListByTask(ctx context.Context, taskId string) ([]*model.Build, error)
	// FindByHandle looks a build up by queue location first, then by CI run id.
	FindByHandle(ctx context.Context, handle string) (*model.Build, error)
	// UpdateStatus only touches builds that are still PENDING; terminal builds are immutable.
	UpdateStatus(ctx context.Context, buildId string, update BuildStatusUpdate) (bool, error)
	DeleteFailedByTask(ctx context.Context, taskId string) (int64, error)
}

type BuildRepo struct {
	database.IDatabase
}

func NewBuildRepo(db database.IDatabase) IBuildRepository {
	return &BuildRepo{IDatabase: db}
}

func (r *BuildRepo) CreateBatch(ctx context.Context, builds []*model.Build) error {
	if len(builds) == 0 {
		return nil
	}
	return r.Database().WithContext(ctx).Create(&builds).Error
}

func (r *BuildRepo) ListByTask(ctx context.Context, taskId string) ([]*model.Build, error) {
	var list []*model.Build
	err := r.Database().WithContext(ctx).
		Where("task_id = ?", taskId).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *BuildRepo) FindByHandle(ctx context.Context, handle string) (*model.Build, error) {
	var one model.Build
	if err := r.Database().WithContext(ctx).
		Where("queue_location = ? OR ci_run_id = ?", handle, handle).
		Order("id DESC").
		First(&one).Error; err != nil {
		return nil, notFound(err, "build", handle)
	}
	return &one, nil
}

func (r *BuildRepo) UpdateStatus(ctx context.Context, buildId string, update BuildStatusUpdate) (bool, error) {
	cols := update.columns()
	if len(cols) == 0 {
		return false, nil
	}
	res := r.Database().WithContext(ctx).
		Model(&model.Build{}).
		Where("build_id = ? AND build_upload_status = ?", buildId, model.BuildUploadPending).
		Updates(cols)
	return res.RowsAffected > 0, res.Error
}

func (r *BuildRepo) DeleteFailedByTask(ctx context.Context, taskId string) (int64, error) {
	res := r.Database().WithContext(ctx).
		Where("task_id = ? AND build_upload_status = ?", taskId, model.BuildUploadFailed).
		Delete(&model.Build{})
	return res.RowsAffected, res.Error
}
