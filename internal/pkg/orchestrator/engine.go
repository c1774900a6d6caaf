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

// Package orchestrator drives releases through their stages: the per-release state
// machine, the build reconciler, the machine registry and the periodic scheduler.
package orchestrator

import (
	"context"

	"github.com/google/wire"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/executor"
	"github.com/arcentrix/launchpad/pkg/logger"
)

// ProviderSet provides the engine and its scheduler.
var ProviderSet = wire.NewSet(NewEngine, NewScheduler)

// CicdClient triggers workflows and, for some providers, polls them.
type CicdClient interface {
	integration.WorkflowTrigger
	StatusPoller
}

// Options are the collaborators of the engine. Nil collaborators are allowed in tests
// whose releases never reach the tasks that need them.
type Options struct {
	Repos     *repo.Repositories
	Scm       integration.SourceControl
	Cicd      CicdClient
	Tickets   integration.TicketService
	TestRuns  integration.TestRunService
	Notifier  integration.Notifier
	Threshold *integration.ThresholdEvaluator
	Clock     Clock
}

// Engine owns everything the state machines of all releases share.
type Engine struct {
	repos    *repo.Repositories
	exec     *executor.Executor
	builds   *BuildReconciler
	scm      integration.SourceControl
	notifier integration.Notifier
	clock    Clock
	registry *MachineRegistry
	pauser   *pauser
	log      *logger.Logger
}

func NewEngine(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	var poller StatusPoller
	var trigger integration.WorkflowTrigger
	if opts.Cicd != nil {
		poller, trigger = opts.Cicd, opts.Cicd
	}
	builds := NewBuildReconciler(opts.Repos, poller, opts.Notifier, clock)
	e := &Engine{
		repos:    opts.Repos,
		builds:   builds,
		scm:      opts.Scm,
		notifier: opts.Notifier,
		clock:    clock,
		pauser:   &pauser{repos: opts.Repos, notifier: opts.Notifier},
		log:      logger.Channel("scheduler"),
	}
	e.exec = executor.New(executor.Deps{
		Repos:     opts.Repos,
		Scm:       opts.Scm,
		Cicd:      trigger,
		Tickets:   opts.Tickets,
		TestRuns:  opts.TestRuns,
		Notifier:  opts.Notifier,
		Threshold: opts.Threshold,
		Builds:    builds,
	})
	e.registry = NewMachineRegistry(func(releaseId string) *ReleaseStateMachine {
		return &ReleaseStateMachine{releaseId: releaseId, engine: e}
	})
	return e
}

// Registry returns the machine registry owned by the engine.
func (e *Engine) Registry() *MachineRegistry { return e.registry }

// Executor returns the task executor, mainly for handler overrides.
func (e *Engine) Executor() *executor.Executor { return e.exec }

// Builds returns the build reconciler.
func (e *Engine) Builds() *BuildReconciler { return e.builds }

// Step runs one state machine step of releaseId.
func (e *Engine) Step(ctx context.Context, releaseId string) error {
	return e.registry.Get(releaseId).Execute(ctx)
}

// HandleBuildCallback applies a CI/CD callback for the build behind handle.
func (e *Engine) HandleBuildCallback(ctx context.Context, handle string, st integration.RunStatus) (model.TaskStatus, error) {
	return e.builds.HandleBuildCallback(ctx, handle, st)
}
