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

package service

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/logger"
)

type PlatformTargetRequest struct {
	Platform model.Platform  `json:"platform" validate:"required,oneof=ANDROID IOS WEB"`
	Target   model.StoreType `json:"target" validate:"required"`
}

type CreateReleaseRequest struct {
	TenantId               string                  `json:"tenantId" validate:"required"`
	Version                string                  `json:"version" validate:"required"`
	Type                   model.ReleaseType       `json:"type" validate:"omitempty,oneof=PLANNED HOTFIX UNPLANNED"`
	BaseBranch             string                  `json:"baseBranch" validate:"required"`
	Branch                 string                  `json:"branch"`
	BaseReleaseId          string                  `json:"baseReleaseId"`
	HasManualBuildUpload   bool                    `json:"hasManualBuildUpload"`
	Platforms              []PlatformTargetRequest `json:"platforms" validate:"required,min=1,dive"`
	KickOffDate            time.Time               `json:"kickOffDate" validate:"required"`
	TargetReleaseDate      *time.Time              `json:"targetReleaseDate"`
	CicdConfigId           string                  `json:"cicdConfigId"`
	ScmProvider            string                  `json:"scmProvider" validate:"required"`
	Repository             string                  `json:"repository" validate:"required"`
	CreatedBy              string                  `json:"createdBy"`
	CronConfig             model.CronConfig        `json:"cronConfig"`
	UpcomingRegressions    model.RegressionSlots   `json:"upcomingRegressions"`
	AutoTransitionToStage2 bool                    `json:"autoTransitionToStage2"`
	AutoTransitionToStage3 bool                    `json:"autoTransitionToStage3"`
}

// ReleaseService is the operator surface of the engine.
type ReleaseService struct {
	repos  *repo.Repositories
	engine *orchestrator.Engine
}

func NewReleaseService(repos *repo.Repositories, engine *orchestrator.Engine) *ReleaseService {
	return &ReleaseService{repos: repos, engine: engine}
}

func (s *ReleaseService) Create(ctx context.Context, req *CreateReleaseRequest) (*model.Release, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	targets := make([]model.PlatformTarget, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		targets = append(targets, model.PlatformTarget{Platform: p.Platform, Target: p.Target})
	}
	r, err := s.engine.CreateRelease(ctx, orchestrator.NewRelease{
		Release: &model.Release{
			TenantId:             req.TenantId,
			Type:                 req.Type,
			Version:              req.Version,
			BaseBranch:           req.BaseBranch,
			Branch:               req.Branch,
			BaseReleaseId:        req.BaseReleaseId,
			HasManualBuildUpload: req.HasManualBuildUpload,
			Platforms:            datatypes.NewJSONType(targets),
			KickOffDate:          req.KickOffDate,
			TargetReleaseDate:    req.TargetReleaseDate,
			CicdConfigId:         req.CicdConfigId,
			ScmProvider:          req.ScmProvider,
			Repository:           req.Repository,
			CreatedBy:            req.CreatedBy,
		},
		CronConfig:             req.CronConfig,
		UpcomingRegressions:    req.UpcomingRegressions,
		AutoTransitionToStage2: req.AutoTransitionToStage2,
		AutoTransitionToStage3: req.AutoTransitionToStage3,
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("release created", "releaseId", r.ReleaseId, "version", r.Version, "manual", r.HasManualBuildUpload)
	return r, nil
}

func (s *ReleaseService) List(ctx context.Context, tenantId string, statuses ...model.ReleaseStatus) ([]*model.Release, error) {
	return s.repos.Release.List(ctx, tenantId, statuses...)
}

func (s *ReleaseService) Describe(ctx context.Context, releaseId string) (*orchestrator.ReleaseView, error) {
	return s.engine.Describe(ctx, releaseId)
}

func (s *ReleaseService) Start(ctx context.Context, releaseId string) error {
	return s.engine.StartRelease(ctx, releaseId)
}

func (s *ReleaseService) Pause(ctx context.Context, releaseId string) error {
	if err := s.engine.Pause(ctx, releaseId); err != nil {
		return err
	}
	logger.Infow("release paused by user", "releaseId", releaseId)
	return nil
}

func (s *ReleaseService) Resume(ctx context.Context, releaseId string) error {
	if err := s.engine.Resume(ctx, releaseId); err != nil {
		return err
	}
	logger.Infow("release resumed", "releaseId", releaseId)
	return nil
}

type TriggerStageRequest struct {
	Stage int `json:"stage" validate:"required,oneof=2 3"`
}

func (s *ReleaseService) TriggerStage(ctx context.Context, releaseId string, req *TriggerStageRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	return s.engine.TriggerStage(ctx, releaseId, req.Stage)
}

func (s *ReleaseService) AbandonCycle(ctx context.Context, releaseId, cycleId string) error {
	return s.engine.AbandonCycle(ctx, releaseId, cycleId)
}

// RetryTask resets a FAILED task; the task is looked up first so a task of another
// release surfaces as not found rather than being retried.
func (s *ReleaseService) RetryTask(ctx context.Context, releaseId, taskId string) (*model.ReleaseTask, error) {
	task, err := s.repos.Task.Get(ctx, taskId)
	if err != nil {
		return nil, err
	}
	if releaseId != "" && task.ReleaseId != releaseId {
		return nil, errs.NotFound("task", taskId)
	}
	return s.engine.RetryTask(ctx, taskId)
}

type UpdateSlotsRequest struct {
	Slots model.RegressionSlots `json:"slots"`
}

func (s *ReleaseService) UpdateUpcomingSlots(ctx context.Context, releaseId string, req *UpdateSlotsRequest) (model.RegressionSlots, error) {
	return s.engine.UpdateUpcomingSlots(ctx, releaseId, req.Slots)
}

func (s *ReleaseService) UpdateCronConfig(ctx context.Context, releaseId string, overlay model.CronConfig) (model.CronConfig, error) {
	return s.engine.UpdateCronConfig(ctx, releaseId, overlay)
}
