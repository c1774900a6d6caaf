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

	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/database"
)

// ProviderSet provides the repository aggregate.
var ProviderSet = wire.NewSet(NewRepositories)

// Repositories groups every repository over one connection (or one transaction).
type Repositories struct {
	db database.IDatabase

	Release    IReleaseRepository
	CronJob    ICronJobRepository
	Cycle      ICycleRepository
	Task       ITaskRepository
	Build      IBuildRepository
	Upload     IBuildUploadRepository
	CicdConfig ICicdConfigRepository
}

func NewRepositories(db database.IDatabase) *Repositories {
	return &Repositories{
		db:         db,
		Release:    NewReleaseRepo(db),
		CronJob:    NewCronJobRepo(db),
		Cycle:      NewCycleRepo(db),
		Task:       NewTaskRepo(db),
		Build:      NewBuildRepo(db),
		Upload:     NewBuildUploadRepo(db),
		CicdConfig: NewCicdConfigRepo(db),
	}
}

// Transaction runs fn with repositories bound to a single database transaction.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.Database().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(database.Wrap(tx)))
	})
}

// AutoMigrate creates or updates every table. Used by tests and dev setups.
func (r *Repositories) AutoMigrate(ctx context.Context) error {
	return r.db.Database().WithContext(ctx).AutoMigrate(model.All()...)
}

// Count returns the row count of a prepared query without disturbing it.
func Count(tx *gorm.DB) (int64, error) {
	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// notFound maps gorm's record-not-found onto the engine's ErrNotFound.
func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(entity, id)
	}
	return err
}
