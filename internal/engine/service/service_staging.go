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
	"errors"
	"io"
	"math"
	"slices"
	"time"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/artifact"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/executor"
	"github.com/arcentrix/launchpad/internal/pkg/storage"
	"github.com/arcentrix/launchpad/pkg/id"
	"github.com/arcentrix/launchpad/pkg/logger"
)

var errNoStorage = errors.New("artifact storage is not configured")

// UploadRequest carries one manually built artifact. Size is -1 when unknown.
type UploadRequest struct {
	ReleaseId string         `json:"releaseId" validate:"required"`
	Stage     model.Stage    `json:"stage" validate:"required,oneof=KICKOFF REGRESSION POST_REGRESSION"`
	Platform  model.Platform `json:"platform" validate:"required,oneof=ANDROID IOS WEB"`
	CycleId   string         `json:"cycleId"`
	FileName  string         `json:"fileName" validate:"required"`
	Size      int64          `json:"size"`
	Body      io.Reader      `json:"-"`
}

type UploadResult struct {
	Upload   *model.BuildUpload `json:"upload"`
	Replaced bool               `json:"replaced"`
}

type StagingStatus struct {
	AllReady bool                                  `json:"allReady"`
	Uploaded map[model.Platform]*model.BuildUpload `json:"uploaded"`
	Missing  []model.Platform                      `json:"missing"`
}

// StagingService stores manually built artifacts until a build task consumes them.
type StagingService struct {
	repos *repo.Repositories
	store storage.IStorage
	rules artifact.Rules
	log   logger.ILogger
}

func NewStagingService(repos *repo.Repositories, store storage.IStorage, rules artifact.Rules) *StagingService {
	return &StagingService{repos: repos, store: store, rules: rules, log: logger.Channel("http")}
}

// Upload streams the artifact to object storage and stages it, replacing the unused
// upload of the same key in place.
func (s *StagingService) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, errs.Validation("file", "is required")
	}
	if s.store == nil {
		return nil, errNoStorage
	}
	if err := s.rules.Validate(req.Platform, req.FileName, req.Size); err != nil {
		return nil, err
	}
	r, err := s.checkTarget(ctx, req.ReleaseId, req.Stage, req.Platform, req.CycleId)
	if err != nil {
		return nil, err
	}

	body := artifact.NewReader(req.Body, s.rules.MaxSizeBytes)
	key := artifact.ObjectKey(r.ReleaseId, req.Stage, req.Platform, id.GetUlid(), req.FileName)
	fullKey, err := s.store.Upload(ctx, key, body, req.Size, artifact.ContentType(req.FileName))
	if err != nil {
		if errors.Is(err, artifact.ErrTooLarge) {
			return nil, errs.Validation("file", "%v", err)
		}
		return nil, errs.External("storage", "upload", err)
	}
	if body.Size() == 0 {
		s.discard(ctx, fullKey)
		return nil, errs.Validation("file", "artifact is empty")
	}

	uk := repo.UploadKey{
		ReleaseId: r.ReleaseId,
		Stage:     req.Stage,
		Platform:  req.Platform,
		CycleId:   req.CycleId,
	}
	prev, err := s.repos.Upload.FindUnused(ctx, uk)
	if err != nil {
		s.discard(ctx, fullKey)
		return nil, err
	}
	up, replaced, err := s.repos.Upload.Upsert(ctx, r.TenantId, uk, repo.Artifact{
		Path:     fullKey,
		Name:     req.FileName,
		Size:     body.Size(),
		Checksum: body.Checksum(),
	})
	if err != nil {
		s.discard(ctx, fullKey)
		return nil, err
	}
	if replaced && prev != nil && prev.UploadId == up.UploadId {
		s.discard(ctx, prev.ArtifactPath)
	}
	s.log.InfoContext(ctx, "artifact staged", "releaseId", r.ReleaseId, "stage", req.Stage,
		"platform", req.Platform, "uploadId", up.UploadId, "replaced", replaced, "size", body.Size())
	return &UploadResult{Upload: up, Replaced: replaced}, nil
}

// Replace is Upload addressed by an existing unused upload.
func (s *StagingService) Replace(ctx context.Context, uploadId, fileName string, size int64, body io.Reader) (*UploadResult, error) {
	old, err := s.repos.Upload.Get(ctx, uploadId)
	if err != nil {
		return nil, err
	}
	if old.IsUsed {
		return nil, errs.ErrConsumptionConflict
	}
	return s.Upload(ctx, &UploadRequest{
		ReleaseId: old.ReleaseId,
		Stage:     old.Stage,
		Platform:  old.Platform,
		CycleId:   old.CycleId,
		FileName:  fileName,
		Size:      size,
		Body:      body,
	})
}

// Delete removes an unused upload and its object. Consumed uploads are immutable.
func (s *StagingService) Delete(ctx context.Context, uploadId string) error {
	up, err := s.repos.Upload.Get(ctx, uploadId)
	if err != nil {
		return err
	}
	if err := s.repos.Upload.Delete(ctx, uploadId); err != nil {
		return err
	}
	s.discard(ctx, up.ArtifactPath)
	return nil
}

// Status reports which platforms of the stage's build tasks have an upload staged.
func (s *StagingService) Status(ctx context.Context, releaseId string, stage model.Stage, cycleId string) (*StagingStatus, error) {
	r, err := s.repos.Release.Get(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	var platforms []model.Platform
	for _, spec := range orchestrator.Catalog(stage, math.MaxInt) {
		for _, p := range executor.BuildPlatforms(spec.Kind, r) {
			if !slices.Contains(platforms, p) {
				platforms = append(platforms, p)
			}
		}
	}
	ready, err := executor.CheckAllPlatformsReady(ctx, s.repos.Upload, releaseId, stage, cycleId, platforms)
	if err != nil {
		return nil, err
	}
	return &StagingStatus{AllReady: ready.AllReady, Uploaded: ready.Uploaded, Missing: ready.Missing}, nil
}

func (s *StagingService) List(ctx context.Context, releaseId string) ([]*model.BuildUpload, error) {
	return s.repos.Upload.ListByRelease(ctx, releaseId)
}

// DownloadURL presigns the object of an upload.
func (s *StagingService) DownloadURL(ctx context.Context, uploadId string, expiry time.Duration) (string, error) {
	if s.store == nil {
		return "", errNoStorage
	}
	up, err := s.repos.Upload.Get(ctx, uploadId)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignedURL(ctx, up.ArtifactPath, expiry)
	if err != nil {
		return "", errs.External("storage", "presign", err)
	}
	return url, nil
}

// checkTarget accepts uploads only for a manual release whose build task of stage has
// not completed for the platform.
func (s *StagingService) checkTarget(ctx context.Context, releaseId string, stage model.Stage, p model.Platform, cycleId string) (*model.Release, error) {
	r, err := s.repos.Release.Get(ctx, releaseId)
	if err != nil {
		return nil, err
	}
	if !r.HasManualBuildUpload {
		return nil, errs.InvalidState("release %s builds through CI/CD", releaseId)
	}
	if r.Status == model.ReleaseCompleted || r.Status == model.ReleaseArchived {
		return nil, errs.InvalidState("release %s is %s", releaseId, r.Status)
	}
	if _, ok := r.TargetFor(p); !ok {
		return nil, errs.Validation("platform", "release does not target %s", p)
	}

	switch stage {
	case model.StageRegression:
		if cycleId == "" {
			return nil, errs.Validation("cycleId", "is required for regression uploads")
		}
		cycle, err := s.repos.Cycle.Get(ctx, cycleId)
		if err != nil {
			return nil, err
		}
		if cycle.ReleaseId != releaseId {
			return nil, errs.NotFound("cycle", cycleId)
		}
		if cycle.Status.IsTerminal() {
			return nil, errs.InvalidState("cycle %s is %s", cycleId, cycle.Status)
		}
	default:
		if cycleId != "" {
			return nil, errs.Validation("cycleId", "only regression uploads belong to a cycle")
		}
	}

	var kinds []model.TaskType
	for _, spec := range orchestrator.Catalog(stage, math.MaxInt) {
		if slices.Contains(executor.BuildPlatforms(spec.Kind, r), p) {
			kinds = append(kinds, spec.Kind)
		}
	}
	if len(kinds) == 0 {
		return nil, errs.Validation("stage", "%s has no %s build", stage, p)
	}
	done, err := s.repos.Task.List(ctx, repo.TaskQuery{
		ReleaseId: releaseId,
		Stage:     stage,
		CycleId:   cycleId,
		Statuses:  []model.TaskStatus{model.TaskCompleted},
	})
	if err != nil {
		return nil, err
	}
	for _, t := range done {
		if slices.Contains(kinds, t.TaskType) {
			return nil, errs.InvalidState("%s already completed", t.TaskType)
		}
	}
	return r, nil
}

// discard deletes an orphaned object; the row is the source of truth, so failures
// are only logged.
func (s *StagingService) discard(ctx context.Context, fullKey string) {
	if fullKey == "" || s.store == nil {
		return
	}
	if err := s.store.Delete(context.WithoutCancel(ctx), fullKey); err != nil {
		s.log.WarnContext(ctx, "failed to delete artifact object", "key", fullKey, "error", err)
	}
}
