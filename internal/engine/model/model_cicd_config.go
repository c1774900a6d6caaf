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

package model

import (
	"fmt"

	"gorm.io/datatypes"
)

type CicdProvider string

const (
	CicdGithubActions CicdProvider = "GITHUB_ACTIONS"
	CicdGitlabCI      CicdProvider = "GITLAB_CI"
	CicdJenkins       CicdProvider = "JENKINS"
	CicdWebhook       CicdProvider = "WEBHOOK"
)

// WorkflowType distinguishes the workflows a release may trigger per platform.
type WorkflowType string

const (
	WorkflowPreRegression WorkflowType = "PRE_REGRESSION"
	WorkflowRegression    WorkflowType = "REGRESSION"
	WorkflowAutomation    WorkflowType = "AUTOMATION"
	WorkflowTestFlight    WorkflowType = "TESTFLIGHT"
	WorkflowAab           WorkflowType = "AAB"
)

// WorkflowDefinition points at one job of a CI/CD provider.
type WorkflowDefinition struct {
	// Name is the workflow file (GitHub Actions), job path (Jenkins) or hook URL (webhook).
	Name string `json:"name"`
	// Repository is owner/name (GitHub) or the project path (GitLab).
	Repository string            `json:"repository,omitempty"`
	Ref        string            `json:"ref,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// CicdConfig CI/CD 配置表
type CicdConfig struct {
	BaseModel
	ConfigId  string                                           `gorm:"column:config_id;uniqueIndex;size:64" json:"configId"`
	TenantId  string                                           `gorm:"column:tenant_id;size:64" json:"tenantId"`
	Provider  CicdProvider                                     `gorm:"column:provider;size:32" json:"provider"`
	Workflows datatypes.JSONType[map[string]WorkflowDefinition] `gorm:"column:workflows" json:"workflows"`
}

func (CicdConfig) TableName() string {
	return "t_cicd_config"
}

// WorkflowKey is the lookup key of Workflows.
func WorkflowKey(p Platform, wt WorkflowType) string {
	return fmt.Sprintf("%s/%s", p, wt)
}

// Workflow returns the definition for (platform, workflowType).
func (c *CicdConfig) Workflow(p Platform, wt WorkflowType) (WorkflowDefinition, bool) {
	w, ok := c.Workflows.Data()[WorkflowKey(p, wt)]
	return w, ok
}

// All returns every table owned by the service, in migration order.
func All() []any {
	return []any{
		&Release{},
		&CronJob{},
		&RegressionCycle{},
		&ReleaseTask{},
		&Build{},
		&BuildUpload{},
		&CicdConfig{},
	}
}
