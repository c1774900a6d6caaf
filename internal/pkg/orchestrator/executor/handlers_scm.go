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

package executor

import (
	"context"
	"strings"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

func (e *Executor) forkBranch(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	r := ec.Release
	if r.Branch == "" || r.BaseBranch == "" {
		return nil, errs.Validation("branch", "release %s needs both branch and base branch", r.ReleaseId)
	}
	if err := e.Scm.ForkBranch(ctx, integration.RepoOf(r), r.Branch, r.BaseBranch); err != nil {
		return nil, err
	}
	return Scalar(r.Branch), nil
}

func (e *Executor) createRcTag(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	if ec.Cycle == nil || ec.Cycle.CycleTag == "" {
		return nil, errs.Validation("cycleTag", "no active regression cycle with a tag")
	}
	if err := e.Scm.CreateTag(ctx, integration.RepoOf(ec.Release), ec.Cycle.CycleTag, ec.Release.Branch); err != nil {
		return nil, err
	}
	return Scalar(ec.Cycle.CycleTag), nil
}

func (e *Executor) createReleaseNotes(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	if ec.Cycle == nil || ec.Cycle.CycleTag == "" {
		return nil, errs.Validation("cycleTag", "no active regression cycle with a tag")
	}
	previous := ""
	if ec.PreviousCycle != nil {
		previous = ec.PreviousCycle.CycleTag
	}
	url, err := e.Scm.CreateReleaseNotes(ctx, integration.RepoOf(ec.Release), ec.Cycle.CycleTag, previous, true)
	if err != nil {
		return nil, err
	}
	return Scalar(url), nil
}

func (e *Executor) createReleaseTag(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	r := ec.Release
	tag := r.ReleaseTag
	if tag == "" {
		if r.Version == "" {
			return nil, errs.Validation("version", "release %s has no version", r.ReleaseId)
		}
		tag = integration.ReleaseTagName(r.Version)
	}
	if r.ReleaseTag == "" {
		// the tag is written once; a concurrent writer keeps its value
		ok, err := e.Repos.Release.SetReleaseTag(ctx, r.ReleaseId, tag)
		if err != nil {
			return nil, err
		}
		if !ok {
			stored, err := e.Repos.Release.Get(ctx, r.ReleaseId)
			if err != nil {
				return nil, err
			}
			tag = stored.ReleaseTag
		}
		r.ReleaseTag = tag
	}
	if err := e.Scm.CreateTag(ctx, integration.RepoOf(r), tag, r.Branch); err != nil {
		return nil, err
	}
	return Scalar(tag), nil
}

func (e *Executor) createFinalReleaseNotes(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	tag, err := ec.Output(model.TaskCreateReleaseTag, "")
	if err != nil {
		return nil, errs.Validation("releaseTag", "%v", err)
	}
	previous := ""
	if ec.PreviousCycle != nil {
		previous = ec.PreviousCycle.CycleTag
	}
	url, err := e.Scm.CreateReleaseNotes(ctx, integration.RepoOf(ec.Release), tag[ValueKey], previous, false)
	if err != nil {
		return nil, err
	}
	return Scalar(url), nil
}

func (e *Executor) triggerAutomationRuns(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	if ec.CicdConfig == nil {
		return nil, errs.Validation("cicdConfigId", "release %s has no CI/CD configuration", ec.Release.ReleaseId)
	}
	var handles []string
	for _, p := range ec.Release.PlatformList() {
		if _, ok := ec.CicdConfig.Workflow(p, model.WorkflowAutomation); !ok {
			continue
		}
		res, err := e.Cicd.TriggerWorkflow(ctx, integration.TriggerRequest{
			Config:       ec.CicdConfig,
			TenantId:     ec.Release.TenantId,
			ReleaseId:    ec.Release.ReleaseId,
			Platform:     p,
			WorkflowType: model.WorkflowAutomation,
			Params:       buildParams(task, ec),
		})
		if err != nil {
			if errs.IsValidation(err) {
				return nil, err
			}
			return nil, errs.External("cicd", "triggerWorkflow", err)
		}
		if res.QueueHandle == "" {
			return nil, errs.External("cicd", "triggerWorkflow", errMissingHandle(p))
		}
		handles = append(handles, res.QueueHandle)
	}
	if len(handles) == 0 {
		return nil, errs.Validation("workflows", "no %s workflow configured", model.WorkflowAutomation)
	}
	return Scalar(strings.Join(handles, ",")), nil
}
