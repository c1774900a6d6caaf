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
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/pkg/scm"
)

type GithubActionsConfig struct {
	ApiBaseUrl string `mapstructure:"apiBaseUrl"`
	Token      string `mapstructure:"token"`
}

// GithubActions dispatches workflow_dispatch events. The queue handle is the API URL
// of the created run.
type GithubActions struct {
	client *resty.Client
}

func NewGithubActions(cfg GithubActionsConfig, timeout time.Duration) *GithubActions {
	base := strings.TrimRight(strings.TrimSpace(cfg.ApiBaseUrl), "/")
	if base == "" {
		base = "https://api.github.com"
	}
	c := newClient(timeout).
		SetBaseURL(base).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28")
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	return &GithubActions{client: c}
}

func (g *GithubActions) TriggerWorkflow(ctx context.Context, req integration.TriggerRequest) (integration.TriggerResult, error) {
	def, err := workflowOf(req)
	if err != nil {
		return integration.TriggerResult{}, err
	}
	repo, err := scm.ParseRepo(def.Repository)
	if err != nil {
		return integration.TriggerResult{}, err
	}
	var out struct {
		WorkflowRunId int64  `json:"workflow_run_id"`
		RunUrl        string `json:"run_url"`
	}
	r, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"ref":                refOf(def, req),
			"inputs":             params(def, req),
			"return_run_details": true,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/dispatches",
			url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.PathEscape(def.Name)))
	if err != nil {
		return integration.TriggerResult{}, err
	}
	if r.IsError() {
		return integration.TriggerResult{}, fmt.Errorf("dispatch %s: %s", def.Name, r.Status())
	}
	res := integration.TriggerResult{QueueHandle: out.RunUrl}
	if out.WorkflowRunId > 0 {
		res.CiRunId = strconv.FormatInt(out.WorkflowRunId, 10)
	}
	return res, nil
}

func (g *GithubActions) WorkflowStatus(ctx context.Context, _ *model.CicdConfig, queueHandle string) (integration.RunStatus, error) {
	var run struct {
		Id         int64  `json:"id"`
		Status     string `json:"status"`
		Conclusion string `json:"conclusion"`
		RunNumber  int    `json:"run_number"`
		HtmlUrl    string `json:"html_url"`
	}
	r, err := g.client.R().SetContext(ctx).SetResult(&run).Get(queueHandle)
	if err != nil {
		return integration.RunStatus{}, err
	}
	if r.IsError() {
		return integration.RunStatus{}, fmt.Errorf("get run: %s", r.Status())
	}

	st := integration.RunStatus{
		CiRunId:      strconv.FormatInt(run.Id, 10),
		BuildNumber:  strconv.Itoa(run.RunNumber),
		ArtifactPath: run.HtmlUrl,
	}
	switch run.Status {
	case "completed":
		if run.Conclusion == "success" {
			st.Status = model.WorkflowCompleted
		} else {
			st.Status = model.WorkflowFailed
			st.Error = "conclusion: " + run.Conclusion
		}
	case "in_progress":
		st.Status = model.WorkflowRunning
	default:
		st.Status = model.WorkflowQueued
	}
	return st, nil
}
