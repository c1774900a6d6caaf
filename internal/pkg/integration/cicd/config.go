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

// Package cicd triggers and polls build workflows on the supported CI/CD providers.
package cicd

import (
	"maps"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

// Config holds provider credentials. Workflow definitions live in CicdConfig rows.
type Config struct {
	TimeoutSeconds int                 `mapstructure:"timeoutSeconds"`
	GithubActions  GithubActionsConfig `mapstructure:"githubActions"`
	GitlabCI       GitlabCIConfig      `mapstructure:"gitlabCi"`
	Jenkins        JenkinsConfig       `mapstructure:"jenkins"`
	Webhook        WebhookConfig       `mapstructure:"webhook"`
}

func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

func (c *Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func newClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
}

// workflowOf resolves the workflow bound to the request's platform and type.
func workflowOf(req integration.TriggerRequest) (model.WorkflowDefinition, error) {
	if req.Config == nil {
		return model.WorkflowDefinition{}, errs.Validation("cicdConfigId", "release has no CI/CD configuration")
	}
	def, ok := req.Config.Workflow(req.Platform, req.WorkflowType)
	if !ok || def.Name == "" {
		return model.WorkflowDefinition{}, errs.Validation("workflows",
			"no %s workflow configured for %s", req.WorkflowType, req.Platform)
	}
	return def, nil
}

// RefParam is the request param naming the git ref to build; it overrides WorkflowDefinition.Ref.
const RefParam = "ref"

func refOf(def model.WorkflowDefinition, req integration.TriggerRequest) string {
	if v := req.Params[RefParam]; v != "" {
		return v
	}
	return def.Ref
}

// params overlays request params on the workflow defaults. The ref is passed separately.
func params(def model.WorkflowDefinition, req integration.TriggerRequest) map[string]string {
	out := make(map[string]string, len(def.Params)+len(req.Params))
	maps.Copy(out, def.Params)
	maps.Copy(out, req.Params)
	delete(out, RefParam)
	return out
}
