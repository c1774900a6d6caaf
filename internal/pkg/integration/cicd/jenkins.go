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
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
)

type JenkinsConfig struct {
	BaseUrl  string `mapstructure:"baseUrl"`
	User     string `mapstructure:"user"`
	ApiToken string `mapstructure:"apiToken"`
}

// Jenkins triggers parameterized jobs. The queue handle is the Location header of
// the queued item.
type Jenkins struct {
	client *resty.Client
}

func NewJenkins(cfg JenkinsConfig, timeout time.Duration) *Jenkins {
	c := newClient(timeout).SetBaseURL(strings.TrimRight(cfg.BaseUrl, "/"))
	if cfg.User != "" {
		c.SetBasicAuth(cfg.User, cfg.ApiToken)
	}
	return &Jenkins{client: c}
}

// jobPath turns "folder/app" into "/job/folder/job/app".
func jobPath(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.Trim(name, "/"), "/") {
		if part == "" {
			continue
		}
		b.WriteString("/job/")
		b.WriteString(part)
	}
	return b.String()
}

func (j *Jenkins) TriggerWorkflow(ctx context.Context, req integration.TriggerRequest) (integration.TriggerResult, error) {
	def, err := workflowOf(req)
	if err != nil {
		return integration.TriggerResult{}, err
	}
	form := params(def, req)
	if ref := refOf(def, req); ref != "" {
		form[RefParam] = ref
	}
	r, err := j.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(jobPath(def.Name) + "/buildWithParameters")
	if err != nil {
		return integration.TriggerResult{}, err
	}
	if r.IsError() {
		return integration.TriggerResult{}, fmt.Errorf("build %s: %s", def.Name, r.Status())
	}
	return integration.TriggerResult{QueueHandle: r.Header().Get("Location")}, nil
}

func apiJSON(u string) string {
	return strings.TrimRight(u, "/") + "/api/json"
}

func (j *Jenkins) WorkflowStatus(ctx context.Context, _ *model.CicdConfig, queueHandle string) (integration.RunStatus, error) {
	var item struct {
		Cancelled  bool `json:"cancelled"`
		Executable *struct {
			Number int    `json:"number"`
			Url    string `json:"url"`
		} `json:"executable"`
	}
	r, err := j.client.R().SetContext(ctx).SetResult(&item).Get(apiJSON(queueHandle))
	if err != nil {
		return integration.RunStatus{}, err
	}
	if r.IsError() {
		return integration.RunStatus{}, fmt.Errorf("get queue item: %s", r.Status())
	}
	if item.Cancelled {
		return integration.RunStatus{Status: model.WorkflowFailed, Error: "queue item cancelled"}, nil
	}
	if item.Executable == nil {
		return integration.RunStatus{Status: model.WorkflowQueued}, nil
	}

	var build struct {
		Building bool   `json:"building"`
		Result   string `json:"result"`
		Number   int    `json:"number"`
		Url      string `json:"url"`
	}
	r, err = j.client.R().SetContext(ctx).SetResult(&build).Get(apiJSON(item.Executable.Url))
	if err != nil {
		return integration.RunStatus{}, err
	}
	if r.IsError() {
		return integration.RunStatus{}, fmt.Errorf("get build: %s", r.Status())
	}

	st := integration.RunStatus{
		CiRunId:      item.Executable.Url,
		BuildNumber:  strconv.Itoa(build.Number),
		ArtifactPath: build.Url,
	}
	switch {
	case build.Building:
		st.Status = model.WorkflowRunning
	case build.Result == "SUCCESS":
		st.Status = model.WorkflowCompleted
	default:
		st.Status = model.WorkflowFailed
		st.Error = "result: " + build.Result
	}
	return st, nil
}
