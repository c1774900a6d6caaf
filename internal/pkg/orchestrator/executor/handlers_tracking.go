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
	"fmt"
	"sort"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/integration/cicd"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

func errMissingHandle(p model.Platform) error {
	return fmt.Errorf("%s %s: %w", model.WorkflowAutomation, p, cicd.ErrMissingQueueHandle)
}

func (e *Executor) createTickets(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	r := ec.Release
	tickets, err := e.Tickets.CreateTickets(ctx, integration.TicketRequest{
		ReleaseId: r.ReleaseId,
		TenantId:  r.TenantId,
		Version:   r.Version,
		Platforms: r.PlatformList(),
	})
	if err != nil {
		return nil, errs.External("tickets", "createTickets", err)
	}
	return Structured(stringsToAny(tickets)), nil
}

func (e *Executor) checkReleaseApproval(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	tickets, err := ec.Output(model.TaskCreateProjectManagementTicket, "")
	if err != nil {
		return nil, errs.Validation("tickets", "%v", err)
	}
	st, err := e.Tickets.CheckTicketStatus(ctx, tickets)
	if err != nil {
		return nil, errs.External("tickets", "checkTicketStatus", err)
	}
	if !st.Approved {
		return awaitCallback, nil
	}
	return Structured(stringsToAny(st.Statuses)), nil
}

func (e *Executor) createTestSuite(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	return e.createTestRuns(ctx, ec, "kickoff")
}

func (e *Executor) resetTestSuite(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	if ec.Cycle == nil {
		return nil, errs.Validation("cycle", "no active regression cycle")
	}
	return e.createTestRuns(ctx, ec, fmt.Sprintf("regression-%d", ec.Cycle.CycleIndex))
}

func (e *Executor) createTestRuns(ctx context.Context, ec *ExecutionContext, label string) (Result, error) {
	r := ec.Release
	runs, err := e.TestRuns.CreateTestRuns(ctx, integration.TestRunRequest{
		ReleaseId: r.ReleaseId,
		Version:   r.Version,
		Label:     label,
		Platforms: r.PlatformList(),
	})
	if err != nil {
		return nil, errs.External("testRuns", "createTestRuns", err)
	}
	return Structured(stringsToAny(runs)), nil
}

// testRunIds returns the runs of the active cycle: its reset suite when one ran,
// otherwise the kickoff suite.
func testRunIds(ec *ExecutionContext) (map[string]string, error) {
	if t := ec.Find(model.TaskResetTestSuite, ec.CycleId()); t != nil && t.TaskStatus == model.TaskCompleted {
		return ec.Output(model.TaskResetTestSuite, ec.CycleId())
	}
	return ec.Output(model.TaskCreateTestSuite, "")
}

func (e *Executor) automationRuns(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	runs, err := testRunIds(ec)
	if err != nil {
		return nil, errs.Validation("testRuns", "%v", err)
	}
	if len(runs) == 0 {
		return nil, errs.Validation("testRuns", "no test runs recorded")
	}
	var total integration.TestRunStatus
	for _, key := range sortedKeys(runs) {
		st, err := e.TestRuns.GetTestStatus(ctx, runs[key])
		if err != nil {
			return nil, errs.External("testRuns", "getTestStatus", err)
		}
		total.Total += st.Total
		total.Passed += st.Passed
		total.Failed += st.Failed
		total.Blocked += st.Blocked
		total.Untested += st.Untested
	}
	met, err := e.Threshold.Met(ec.Config.ThresholdExpr(), total)
	if err != nil {
		return nil, errs.Validation("testThresholdExpr", "%v", err)
	}
	if !met {
		return awaitCallback, nil
	}
	return Structured(map[string]any{
		"total":    total.Total,
		"passed":   total.Passed,
		"failed":   total.Failed,
		"blocked":  total.Blocked,
		"untested": total.Untested,
	}), nil
}

func (e *Executor) sendRegressionBuildMessage(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	trigger := ec.Find(model.TaskTriggerRegressionBuilds, ec.CycleId())
	if trigger == nil {
		return nil, errs.Validation("builds", "cycle %s has no regression build task", ec.CycleId())
	}
	builds, err := e.Repos.Build.ListByTask(ctx, trigger.TaskId)
	if err != nil {
		return nil, err
	}
	list := make([]any, 0, len(builds))
	for _, b := range builds {
		list = append(list, map[string]any{
			"platform":     string(b.Platform),
			"buildNumber":  b.BuildNumber,
			"artifactPath": b.ArtifactPath,
		})
	}
	tag := ""
	if ec.Cycle != nil {
		tag = ec.Cycle.CycleTag
	}
	delivered := e.notify(ctx, integration.Notification{
		Type:      integration.NotifyRegressionBuilds,
		TenantId:  ec.Release.TenantId,
		ReleaseId: ec.Release.ReleaseId,
		Title:     fmt.Sprintf("Regression builds ready: %s", tag),
		Body:      fmt.Sprintf("%d builds of %s are ready for regression testing.", len(builds), ec.Release.Version),
		Data:      map[string]any{"builds": list, "cycleTag": tag},
	})
	return Structured(map[string]any{"builds": len(builds), "delivered": delivered}), nil
}

func (e *Executor) cherryPicksReminder(ctx context.Context, _ *model.ReleaseTask, ec *ExecutionContext) (Result, error) {
	delivered := e.notify(ctx, integration.Notification{
		Type:      integration.NotifyCherryPicksReminder,
		TenantId:  ec.Release.TenantId,
		ReleaseId: ec.Release.ReleaseId,
		Title:     fmt.Sprintf("Cherry-picks for %s", ec.Release.Version),
		Body:      fmt.Sprintf("Regression is over. Land the remaining cherry-picks on %s.", ec.Release.Branch),
		Data:      map[string]any{"branch": ec.Release.Branch},
	})
	return Structured(map[string]any{"delivered": delivered}), nil
}

func stringsToAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
