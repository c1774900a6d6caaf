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
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/logger"
	"github.com/arcentrix/launchpad/pkg/scm"
)

// CallbackSecret signs build callbacks; empty disables verification.
type CallbackSecret string

// ErrUnauthorized rejects a callback whose signature or token does not match.
var ErrUnauthorized = errors.New("unauthorized")

const SignaturePrefix = "sha256="

// CallbackRequest is the body CI/CD pipelines post when a build changes state.
type CallbackRequest struct {
	// Handle is the queue handle returned at trigger time, or the CI run id.
	Handle       string               `json:"handle" validate:"required"`
	Status       model.WorkflowStatus `json:"status" validate:"required,oneof=QUEUED RUNNING COMPLETED FAILED"`
	CiRunId      string               `json:"ciRunId"`
	ArtifactPath string               `json:"artifactPath"`
	BuildNumber  string               `json:"buildNumber"`
	VersionName  string               `json:"versionName"`
	Error        string               `json:"error"`
}

type CallbackResult struct {
	Handle     string           `json:"handle"`
	TaskStatus model.TaskStatus `json:"taskStatus"`
}

type CallbackService struct {
	engine *orchestrator.Engine
	secret string
	log    logger.ILogger
}

func NewCallbackService(engine *orchestrator.Engine, secret string) *CallbackService {
	return &CallbackService{engine: engine, secret: secret, log: logger.Channel("http")}
}

// Verify checks the HMAC signature header, or the shared token for pipelines that
// cannot sign.
func (s *CallbackService) Verify(body []byte, signature, token string) error {
	if s.secret == "" {
		return nil
	}
	var err error
	if signature != "" {
		err = scm.VerifyHmacSha256Hex(body, s.secret, signature, SignaturePrefix)
	} else {
		err = scm.VerifyTokenHeader(s.secret, token)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

// Handle verifies and applies one callback. Duplicate deliveries are harmless: the
// reconciler only moves builds that are still pending.
func (s *CallbackService) Handle(ctx context.Context, body []byte, signature, token string) (*CallbackResult, error) {
	if err := s.Verify(body, signature, token); err != nil {
		s.log.WarnContext(ctx, "callback rejected", "error", err)
		return nil, err
	}
	var req CallbackRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		return nil, errs.Validation("body", "invalid json: %v", err)
	}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}
	status, err := s.engine.HandleBuildCallback(ctx, req.Handle, integration.RunStatus{
		Status:       req.Status,
		CiRunId:      req.CiRunId,
		ArtifactPath: req.ArtifactPath,
		BuildNumber:  req.BuildNumber,
		VersionName:  req.VersionName,
		Error:        req.Error,
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "build callback applied", "handle", req.Handle, "status", req.Status, "taskStatus", status)
	return &CallbackResult{Handle: req.Handle, TaskStatus: status}, nil
}
