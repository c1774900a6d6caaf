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
)

type GitlabCIConfig struct {
	BaseUrl string `mapstructure:"baseUrl"`
	Token   string `mapstructure:"token"`
}

// GitlabCI creates pipelines. The queue handle is the API path of the pipeline.
type GitlabCI struct {
	client *resty.Client
}

func NewGitlabCI(cfg GitlabCIConfig, timeout time.Duration) *GitlabCI {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseUrl), "/")
	if base == "" {
		base = "https://gitlab.com"
	}
	c := newClient(timeout).SetBaseURL(base + "/api/v4")
	if cfg.Token != "" {
		c.SetHeader("PRIVATE-TOKEN", cfg.Token)
	}
	return &GitlabCI{client: c}
}

type gitlabVariable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (g *GitlabCI) TriggerWorkflow(ctx context.Context, req integration.TriggerRequest) (integration.TriggerResult, error) {
	def, err := workflowOf(req)
	if err != nil {
		return integration.TriggerResult{}, err
	}
	project := def.Repository
	if project == "" {
		project = def.Name
	}
	vars := []gitlabVariable{{Key: "LAUNCHPAD_WORKFLOW", Value: def.Name}}
	for k, v := range params(def, req) {
		vars = append(vars, gitlabVariable{Key: k, Value: v})
	}

	var out struct {
		Id int64 `json:"id"`
	}
	path := "/projects/" + url.PathEscape(project)
	r, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"ref": refOf(def, req), "variables": vars}).
		SetResult(&out).
		Post(path + "/pipeline")
	if err != nil {
		return integration.TriggerResult{}, err
	}
	if r.IsError() {
		return integration.TriggerResult{}, fmt.Errorf("create pipeline: %s", r.Status())
	}
	if out.Id == 0 {
		return integration.TriggerResult{}, nil
	}
	id := strconv.FormatInt(out.Id, 10)
	return integration.TriggerResult{QueueHandle: path + "/pipelines/" + id, CiRunId: id}, nil
}

func (g *GitlabCI) WorkflowStatus(ctx context.Context, _ *model.CicdConfig, queueHandle string) (integration.RunStatus, error) {
	var p struct {
		Id     int64  `json:"id"`
		Iid    int64  `json:"iid"`
		Status string `json:"status"`
		WebUrl string `json:"web_url"`
	}
	r, err := g.client.R().SetContext(ctx).SetResult(&p).Get(queueHandle)
	if err != nil {
		return integration.RunStatus{}, err
	}
	if r.IsError() {
		return integration.RunStatus{}, fmt.Errorf("get pipeline: %s", r.Status())
	}

	st := integration.RunStatus{
		CiRunId:      strconv.FormatInt(p.Id, 10),
		BuildNumber:  strconv.FormatInt(p.Iid, 10),
		ArtifactPath: p.WebUrl,
	}
	switch p.Status {
	case "success":
		st.Status = model.WorkflowCompleted
	case "failed", "canceled", "skipped":
		st.Status = model.WorkflowFailed
		st.Error = "pipeline " + p.Status
	case "running":
		st.Status = model.WorkflowRunning
	default:
		st.Status = model.WorkflowQueued
	}
	return st, nil
}
