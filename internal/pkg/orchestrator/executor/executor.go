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

// Package executor performs the side effects of release tasks and classifies
// what each one produced.
package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
	"github.com/arcentrix/launchpad/pkg/logger"
)

// Handler runs one task kind. It calls at most one collaborator (or consults staging)
// and never writes the task's own status.
type Handler func(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext) (Result, error)

// BuildCompleter folds the build rows of a task into a task status.
type BuildCompleter interface {
	Reconcile(ctx context.Context, taskId string) (model.TaskStatus, error)
}

// Deps are the collaborators handlers talk to.
type Deps struct {
	Repos     *repo.Repositories
	Scm       integration.SourceControl
	Cicd      integration.WorkflowTrigger
	Tickets   integration.TicketService
	TestRuns  integration.TestRunService
	Notifier  integration.Notifier
	Threshold *integration.ThresholdEvaluator
	Builds    BuildCompleter
}

// Executor dispatches tasks to the handler registered for their kind.
type Executor struct {
	Deps
	handlers map[model.TaskType]Handler
	log      *logger.Logger
}

func New(deps Deps) *Executor {
	if deps.Threshold == nil {
		deps.Threshold = integration.NewThresholdEvaluator()
	}
	e := &Executor{Deps: deps, log: logger.Channel("executor")}
	e.handlers = map[model.TaskType]Handler{
		model.TaskForkBranch:                    e.forkBranch,
		model.TaskCreateProjectManagementTicket: e.createTickets,
		model.TaskCreateTestSuite:               e.createTestSuite,
		model.TaskTriggerPreRegressionBuilds:    e.preRegressionBuilds,

		model.TaskResetTestSuite:             e.resetTestSuite,
		model.TaskCreateRcTag:                e.createRcTag,
		model.TaskCreateReleaseNotes:         e.createReleaseNotes,
		model.TaskTriggerRegressionBuilds:    e.regressionBuilds,
		model.TaskTriggerAutomationRuns:      e.triggerAutomationRuns,
		model.TaskAutomationRuns:             e.automationRuns,
		model.TaskSendRegressionBuildMessage: e.sendRegressionBuildMessage,

		model.TaskPreReleaseCherryPicksReminder: e.cherryPicksReminder,
		model.TaskCreateReleaseTag:              e.createReleaseTag,
		model.TaskCreateFinalReleaseNotes:       e.createFinalReleaseNotes,
		model.TaskTriggerTestFlightBuild:        e.testFlightBuild,
		model.TaskCreateAabBuild:                e.aabBuild,
		model.TaskCheckProjectReleaseApproval:   e.checkReleaseApproval,
	}
	return e
}

// Register replaces the handler of kind.
func (e *Executor) Register(kind model.TaskType, h Handler) {
	e.handlers[kind] = h
}

// Kinds lists the registered task kinds in name order.
func (e *Executor) Kinds() []model.TaskType {
	out := make([]model.TaskType, 0, len(e.handlers))
	for k := range e.handlers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Execute runs task and returns its classified result.
func (e *Executor) Execute(ctx context.Context, task *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	h, ok := e.handlers[task.TaskType]
	if !ok {
		return nil, errs.Validation("taskType", "no handler registered for %s", task.TaskType)
	}
	res, err := h(ctx, task, ec)
	if err != nil {
		return nil, err
	}
	switch r := res.(type) {
	case Value:
		return classify(task.TaskType, r), nil
	case AwaitMarker:
		if r.Status != model.TaskAwaitingCallback && r.Status != model.TaskAwaitingManualBuild {
			return nil, fmt.Errorf("%s: cannot await status %s", task.TaskType, r.Status)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%s: unexpected result %T", task.TaskType, res)
	}
}

// notify delivers n and only logs failures.
func (e *Executor) notify(ctx context.Context, n integration.Notification) bool {
	if e.Notifier == nil {
		return false
	}
	if err := e.Notifier.Notify(ctx, n); err != nil {
		e.log.WarnContext(ctx, "notification failed", "type", n.Type, "releaseId", n.ReleaseId, "error", err)
		return false
	}
	return true
}
