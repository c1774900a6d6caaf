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

// ICicdConfigRepository reads CI/CD configurations.
type ICicdConfigRepository interface {
	Create(ctx context.Context, cfg *model.CicdConfig) error
	Get(ctx context.Context, configId string) (*model.CicdConfig, error)
}

type CicdConfigRepo struct {
	database.IDatabase
}

func NewCicdConfigRepo(db database.IDatabase) ICicdConfigRepository {
	return &CicdConfigRepo{IDatabase: db}
}

func (r *CicdConfigRepo) Create(ctx context.Context, cfg *model.CicdConfig) error {
	return r.Database().WithContext(ctx).Create(cfg).Error
}

func (r *CicdConfigRepo) Get(ctx context.Context, configId string) (*model.CicdConfig, error) {
	var one model.CicdConfig
	if err := r.Database().WithContext(ctx).
		Where("config_id = ?", configId).
		First(&one).Error; err != nil {
		return nil, notFound(err, "cicd config", configId)
	}
	return &one, nil
}
