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

// IReleaseRepository persists releases.
type IReleaseRepository interface {
	Create(ctx context.Context, release *model.Release) error
	Get(ctx context.Context, releaseId string) (*model.Release, error)
	List(ctx context.Context, tenantId string, statuses ...model.ReleaseStatus) ([]*model.Release, error)
	// UpdateStatus moves the release to `to` only while it is in one of `from`.
	UpdateStatus(ctx context.Context, releaseId string, from []model.ReleaseStatus, to model.ReleaseStatus) (bool, error)
	// SetReleaseTag writes the tag only when none is stored yet.
	SetReleaseTag(ctx context.Context, releaseId, tag string) (bool, error)
	Update(ctx context.Context, releaseId string, updates map[string]any) error
}

type ReleaseRepo struct {
	database.IDatabase
}

func NewReleaseRepo(db database.IDatabase) IReleaseRepository {
	return &ReleaseRepo{IDatabase: db}
}

func (r *ReleaseRepo) Create(ctx context.Context, release *model.Release) error {
	return r.Database().WithContext(ctx).Create(release).Error
}

func (r *ReleaseRepo) Get(ctx context.Context, releaseId string) (*model.Release, error) {
	var one model.Release
	if err := r.Database().WithContext(ctx).
		Where("release_id = ?", releaseId).
		First(&one).Error; err != nil {
		return nil, notFound(err, "release", releaseId)
	}
	return &one, nil
}

func (r *ReleaseRepo) List(ctx context.Context, tenantId string, statuses ...model.ReleaseStatus) ([]*model.Release, error) {
	tx := r.Database().WithContext(ctx).Model(&model.Release{})
	if tenantId != "" {
		tx = tx.Where("tenant_id = ?", tenantId)
	}
	if len(statuses) > 0 {
		tx = tx.Where("status IN ?", statuses)
	}
	var list []*model.Release
	if err := tx.Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ReleaseRepo) UpdateStatus(ctx context.Context, releaseId string, from []model.ReleaseStatus, to model.ReleaseStatus) (bool, error) {
	res := r.Database().WithContext(ctx).
		Model(&model.Release{}).
		Where("release_id = ? AND status IN ?", releaseId, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *ReleaseRepo) SetReleaseTag(ctx context.Context, releaseId, tag string) (bool, error) {
	res := r.Database().WithContext(ctx).
		Model(&model.Release{}).
		Where("release_id = ? AND (release_tag = '' OR release_tag IS NULL)", releaseId).
		Update("release_tag", tag)
	return res.RowsAffected > 0, res.Error
}

func (r *ReleaseRepo) Update(ctx context.Context, releaseId string, updates map[string]any) error {
	delete(updates, "release_tag")
	return r.Database().WithContext(ctx).
		Model(&model.Release{}).
		Where("release_id = ?", releaseId).
		Updates(updates).Error
}
