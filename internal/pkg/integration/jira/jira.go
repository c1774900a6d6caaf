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

// Package jira implements integration.TicketService on the Jira REST API v2.
package jira

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

type Config struct {
	BaseUrl    string `mapstructure:"baseUrl"`
	User       string `mapstructure:"user"`
	ApiToken   string `mapstructure:"apiToken"`
	ProjectKey string `mapstructure:"projectKey"`
	IssueType  string `mapstructure:"issueType"`
	// ApprovedStatuses are the workflow states that count as release approval.
	ApprovedStatuses []string `mapstructure:"approvedStatuses"`
	TimeoutSeconds   int      `mapstructure:"timeoutSeconds"`
}

func (c *Config) SetDefaults() {
	if c.IssueType == "" {
		c.IssueType = "Task"
	}
	if len(c.ApprovedStatuses) == 0 {
		c.ApprovedStatuses = []string{"Done", "Approved"}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

var _ integration.TicketService = (*Client)(nil)

type Client struct {
	cfg    Config
	client *resty.Client
}

func New(cfg Config) *Client {
	cfg.SetDefaults()
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseUrl, "/")+"/rest/api/2").
		SetTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if cfg.User != "" {
		c.SetBasicAuth(cfg.User, cfg.ApiToken)
	}
	return &Client{cfg: cfg, client: c}
}

type jiraError struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func (e jiraError) String() string {
	parts := slices.Clone(e.ErrorMessages)
	for k, v := range e.Errors {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, "; ")
}

// CreateTickets opens one release ticket per platform.
func (c *Client) CreateTickets(ctx context.Context, req integration.TicketRequest) (map[string]string, error) {
	if c.cfg.ProjectKey == "" {
		return nil, errs.Validation("tickets.projectKey", "jira project key is not configured")
	}
	out := make(map[string]string, len(req.Platforms))
	for _, p := range req.Platforms {
		var created struct {
			Key string `json:"key"`
		}
		var apiErr jiraError
		r, err := c.client.R().
			SetContext(ctx).
			SetBody(map[string]any{
				"fields": map[string]any{
					"project":   map[string]string{"key": c.cfg.ProjectKey},
					"summary":   fmt.Sprintf("Release %s (%s)", req.Version, p),
					"issuetype": map[string]string{"name": c.cfg.IssueType},
					"labels":    []string{"launchpad", "release-" + req.ReleaseId},
				},
			}).
			SetResult(&created).
			SetError(&apiErr).
			Post("/issue")
		if err != nil {
			return nil, errs.External("jira", "CreateTickets", err)
		}
		if r.IsError() || created.Key == "" {
			return nil, errs.External("jira", "CreateTickets", fmt.Errorf("%s: %s", r.Status(), apiErr))
		}
		out[string(p)] = created.Key
	}
	return out, nil
}

// CheckTicketStatus fetches the status of every ticket; approval needs all of them approved.
func (c *Client) CheckTicketStatus(ctx context.Context, tickets map[string]string) (integration.TicketStatus, error) {
	st := integration.TicketStatus{Approved: len(tickets) > 0, Statuses: make(map[string]string, len(tickets))}
	for platform, key := range tickets {
		var issue struct {
			Fields struct {
				Status struct {
					Name string `json:"name"`
				} `json:"status"`
			} `json:"fields"`
		}
		r, err := c.client.R().
			SetContext(ctx).
			SetQueryParam("fields", "status").
			SetResult(&issue).
			Get("/issue/" + key)
		if err != nil {
			return integration.TicketStatus{}, errs.External("jira", "CheckTicketStatus", err)
		}
		if r.IsError() {
			return integration.TicketStatus{}, errs.External("jira", "CheckTicketStatus", fmt.Errorf("%s: %s", key, r.Status()))
		}
		name := issue.Fields.Status.Name
		st.Statuses[platform] = name
		if !slices.ContainsFunc(c.cfg.ApprovedStatuses, func(s string) bool { return strings.EqualFold(s, name) }) {
			st.Approved = false
		}
	}
	return st, nil
}
