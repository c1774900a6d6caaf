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

package cicd

import (
	"context"
	"errors"
	"fmt"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

var (
	// ErrMissingQueueHandle is returned when a provider accepted a trigger but gave
	// nothing to correlate the run with.
	ErrMissingQueueHandle = errors.New("trigger returned no queue handle")
	// ErrPollingUnsupported is returned by WorkflowStatus for push-only providers.
	ErrPollingUnsupported = errors.New("provider does not support status polling")
)

// Dispatcher routes triggers to the provider named by the CicdConfig.
type Dispatcher struct {
	triggers map[model.CicdProvider]integration.WorkflowTrigger
}

// NewDispatcher wires every supported provider from cfg.
func NewDispatcher(cfg Config) *Dispatcher {
	cfg.SetDefaults()
	return NewDispatcherWith(map[model.CicdProvider]integration.WorkflowTrigger{
		model.CicdGithubActions: NewGithubActions(cfg.GithubActions, cfg.timeout()),
		model.CicdGitlabCI:      NewGitlabCI(cfg.GitlabCI, cfg.timeout()),
		model.CicdJenkins:       NewJenkins(cfg.Jenkins, cfg.timeout()),
		model.CicdWebhook:       NewWebhook(cfg.Webhook, cfg.timeout()),
	})
}

func NewDispatcherWith(triggers map[model.CicdProvider]integration.WorkflowTrigger) *Dispatcher {
	return &Dispatcher{triggers: triggers}
}

func (d *Dispatcher) trigger(cfg *model.CicdConfig) (integration.WorkflowTrigger, error) {
	if cfg == nil {
		return nil, errs.Validation("cicdConfigId", "release has no CI/CD configuration")
	}
	t, ok := d.triggers[cfg.Provider]
	if !ok {
		return nil, errs.Validation("provider", "unsupported CI/CD provider %q", cfg.Provider)
	}
	return t, nil
}

// TriggerWorkflow validates the workflow binding, triggers it and insists on a queue handle.
func (d *Dispatcher) TriggerWorkflow(ctx context.Context, req integration.TriggerRequest) (integration.TriggerResult, error) {
	t, err := d.trigger(req.Config)
	if err != nil {
		return integration.TriggerResult{}, err
	}
	if _, err := workflowOf(req); err != nil {
		return integration.TriggerResult{}, err
	}
	res, err := t.TriggerWorkflow(ctx, req)
	if err != nil {
		if errs.IsValidation(err) {
			return integration.TriggerResult{}, err
		}
		return integration.TriggerResult{}, errs.External(string(req.Config.Provider), "TriggerWorkflow", err)
	}
	if res.QueueHandle == "" {
		return integration.TriggerResult{}, errs.External(string(req.Config.Provider), "TriggerWorkflow",
			fmt.Errorf("%s/%s: %w", req.Platform, req.WorkflowType, ErrMissingQueueHandle))
	}
	return res, nil
}

// SupportsPolling reports whether the provider of cfg can be polled.
func (d *Dispatcher) SupportsPolling(cfg *model.CicdConfig) bool {
	t, err := d.trigger(cfg)
	if err != nil {
		return false
	}
	_, ok := t.(integration.WorkflowPoller)
	return ok
}

func (d *Dispatcher) WorkflowStatus(ctx context.Context, cfg *model.CicdConfig, queueHandle string) (integration.RunStatus, error) {
	t, err := d.trigger(cfg)
	if err != nil {
		return integration.RunStatus{}, err
	}
	p, ok := t.(integration.WorkflowPoller)
	if !ok {
		return integration.RunStatus{}, ErrPollingUnsupported
	}
	st, err := p.WorkflowStatus(ctx, cfg, queueHandle)
	if err != nil {
		return integration.RunStatus{}, errs.External(string(cfg.Provider), "WorkflowStatus", err)
	}
	return st, nil
}
