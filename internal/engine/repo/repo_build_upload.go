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
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/database"
	"github.com/arcentrix/launchpad/pkg/id"
)

// UploadKey addresses the staging slot of one platform.
type UploadKey struct {
	ReleaseId string
	Stage     model.Stage
	Platform  model.Platform
	CycleId   string
}

func (k UploadKey) String() string {
	return model.UploadKey(k.ReleaseId, k.Stage, k.Platform, k.CycleId)
}

// Artifact is the stored object an upload points at.
type Artifact struct {
	Path     string
	Name     string
	Size     int64
	Checksum string
}

// IBuildUploadRepository is the staging table. The unused_key column carries a unique
// index and is cleared on consumption, so the database itself guarantees at most one
// unused row per key.
type IBuildUploadRepository interface {
	// Upsert replaces the unused row of key in place, or inserts one. replaced reports
	// whether an existing row was reused.
	Upsert(ctx context.Context, tenantId string, key UploadKey, artifact Artifact) (upload *model.BuildUpload, replaced bool, err error)
	Get(ctx context.Context, uploadId string) (*model.BuildUpload, error)
	// FindUnused returns the unused row of key, or nil.
	FindUnused(ctx context.Context, key UploadKey) (*model.BuildUpload, error)
	ListUnused(ctx context.Context, releaseId string, stage model.Stage, cycleId string) ([]*model.BuildUpload, error)
	ListByRelease(ctx context.Context, releaseId string) ([]*model.BuildUpload, error)
	// MarkAsUsed consumes the row exactly once; later calls get errs.ErrConsumptionConflict.
	MarkAsUsed(ctx context.Context, uploadId, taskId, cycleId string, at time.Time) error
	// Delete removes an unused row; a used row yields errs.ErrConsumptionConflict.
	Delete(ctx context.Context, uploadId string) error
}

type BuildUploadRepo struct {
	database.IDatabase
}

func NewBuildUploadRepo(db database.IDatabase) IBuildUploadRepository {
	return &BuildUploadRepo{IDatabase: db}
}

func (r *BuildUploadRepo) Upsert(ctx context.Context, tenantId string, key UploadKey, artifact Artifact) (*model.BuildUpload, bool, error) {
	// A concurrent insert for the same key loses on the unique index; the retry then
	// finds and replaces the winner's row.
	for attempt := 0; attempt < 3; attempt++ {
		existing, err := r.FindUnused(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			ok, err := r.replace(ctx, existing.UploadId, artifact)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				// consumed between read and write; the key is free again
				continue
			}
			updated, err := r.Get(ctx, existing.UploadId)
			return updated, true, err
		}

		k := key.String()
		row := &model.BuildUpload{
			UploadId:     id.GetUlid(),
			TenantId:     tenantId,
			ReleaseId:    key.ReleaseId,
			Platform:     key.Platform,
			Stage:        key.Stage,
			CycleId:      key.CycleId,
			ArtifactPath: artifact.Path,
			ArtifactName: artifact.Name,
			ArtifactSize: artifact.Size,
			Checksum:     artifact.Checksum,
			UnusedKey:    &k,
		}
		err = r.Database().WithContext(ctx).Create(row).Error
		if err == nil {
			return row, false, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, err
		}
	}
	return nil, false, errs.ErrConsumptionConflict
}

func (r *BuildUploadRepo) replace(ctx context.Context, uploadId string, artifact Artifact) (bool, error) {
	res := r.Database().WithContext(ctx).
		Model(&model.BuildUpload{}).
		Where("upload_id = ? AND is_used = ?", uploadId, false).
		Updates(map[string]any{
			"artifact_path": artifact.Path,
			"artifact_name": artifact.Name,
			"artifact_size": artifact.Size,
			"checksum":      artifact.Checksum,
			"updated_at":    time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *BuildUploadRepo) Get(ctx context.Context, uploadId string) (*model.BuildUpload, error) {
	var one model.BuildUpload
	if err := r.Database().WithContext(ctx).
		Where("upload_id = ?", uploadId).
		First(&one).Error; err != nil {
		return nil, notFound(err, "upload", uploadId)
	}
	return &one, nil
}

func (r *BuildUploadRepo) FindUnused(ctx context.Context, key UploadKey) (*model.BuildUpload, error) {
	var list []*model.BuildUpload
	if err := r.Database().WithContext(ctx).
		Where("unused_key = ? AND is_used = ?", key.String(), false).
		Limit(1).
		Find(&list).Error; err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *BuildUploadRepo) ListUnused(ctx context.Context, releaseId string, stage model.Stage, cycleId string) ([]*model.BuildUpload, error) {
	var list []*model.BuildUpload
	err := r.Database().WithContext(ctx).
		Where("release_id = ? AND stage = ? AND cycle_id = ? AND is_used = ?", releaseId, stage, cycleId, false).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *BuildUploadRepo) ListByRelease(ctx context.Context, releaseId string) ([]*model.BuildUpload, error) {
	var list []*model.BuildUpload
	err := r.Database().WithContext(ctx).
		Where("release_id = ?", releaseId).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *BuildUploadRepo) MarkAsUsed(ctx context.Context, uploadId, taskId, cycleId string, at time.Time) error {
	res := r.Database().WithContext(ctx).
		Model(&model.BuildUpload{}).
		Where("upload_id = ? AND is_used = ?", uploadId, false).
		Updates(map[string]any{
			"is_used":          true,
			"unused_key":       nil,
			"used_by_task_id":  taskId,
			"used_by_cycle_id": cycleId,
			"used_at":          at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.Get(ctx, uploadId); err != nil {
		return err
	}
	return errs.ErrConsumptionConflict
}

func (r *BuildUploadRepo) Delete(ctx context.Context, uploadId string) error {
	res := r.Database().WithContext(ctx).
		Where("upload_id = ? AND is_used = ?", uploadId, false).
		Delete(&model.BuildUpload{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.Get(ctx, uploadId); err != nil {
		return err
	}
	return errs.ErrConsumptionConflict
}
