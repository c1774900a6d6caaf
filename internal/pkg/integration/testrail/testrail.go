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

// Package testrail implements integration.TestRunService on the TestRail API v2.
package testrail

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

type Config struct {
	BaseUrl   string `mapstructure:"baseUrl"`
	User      string `mapstructure:"user"`
	ApiKey    string `mapstructure:"apiKey"`
	ProjectId int    `mapstructure:"projectId"`
	// SuiteIds maps a platform to its test suite.
	SuiteIds       map[string]int `mapstructure:"suiteIds"`
	TimeoutSeconds int            `mapstructure:"timeoutSeconds"`
}

func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

var _ integration.TestRunService = (*Client)(nil)

type Client struct {
	cfg    Config
	client *resty.Client
}

func New(cfg Config) *Client {
	cfg.SetDefaults()
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseUrl, "/")+"/index.php?/api/v2").
		SetTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if cfg.User != "" {
		c.SetBasicAuth(cfg.User, cfg.ApiKey)
	}
	return &Client{cfg: cfg, client: c}
}

// CreateTestRuns adds one run per platform, including every case of the platform suite.
func (c *Client) CreateTestRuns(ctx context.Context, req integration.TestRunRequest) (map[string]string, error) {
	if c.cfg.ProjectId == 0 {
		return nil, errs.Validation("testRuns.projectId", "testrail project is not configured")
	}
	out := make(map[string]string, len(req.Platforms))
	for _, p := range req.Platforms {
		body := map[string]any{
			"name":        strings.TrimSpace(fmt.Sprintf("%s %s %s", req.Version, p, req.Label)),
			"include_all": true,
		}
		if id, ok := c.cfg.SuiteIds[string(p)]; ok {
			body["suite_id"] = id
		}
		var run struct {
			Id int64 `json:"id"`
		}
		r, err := c.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&run).
			Post("/add_run/" + strconv.Itoa(c.cfg.ProjectId))
		if err != nil {
			return nil, errs.External("testrail", "CreateTestRuns", err)
		}
		if r.IsError() || run.Id == 0 {
			return nil, errs.External("testrail", "CreateTestRuns", fmt.Errorf("add run for %s: %s", p, r.Status()))
		}
		out[string(p)] = strconv.FormatInt(run.Id, 10)
	}
	return out, nil
}

func (c *Client) GetTestStatus(ctx context.Context, runId string) (integration.TestRunStatus, error) {
	var run struct {
		PassedCount   int `json:"passed_count"`
		FailedCount   int `json:"failed_count"`
		BlockedCount  int `json:"blocked_count"`
		UntestedCount int `json:"untested_count"`
		RetestCount   int `json:"retest_count"`
	}
	r, err := c.client.R().
		SetContext(ctx).
		SetResult(&run).
		Get("/get_run/" + runId)
	if err != nil {
		return integration.TestRunStatus{}, errs.External("testrail", "GetTestStatus", err)
	}
	if r.IsError() {
		return integration.TestRunStatus{}, errs.External("testrail", "GetTestStatus", fmt.Errorf("run %s: %s", runId, r.Status()))
	}
	st := integration.TestRunStatus{
		Passed:   run.PassedCount,
		Failed:   run.FailedCount + run.RetestCount,
		Blocked:  run.BlockedCount,
		Untested: run.UntestedCount,
	}
	st.Total = st.Passed + st.Failed + st.Blocked + st.Untested
	return st, nil
}
