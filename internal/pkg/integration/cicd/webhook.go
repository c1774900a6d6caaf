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
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/pkg/scm"
)

// SignatureHeader carries "sha256=<hex hmac of body>" on outbound hooks.
const SignatureHeader = "X-Launchpad-Signature"

type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
	// CallbackUrl is sent with every trigger so the receiver knows where to report.
	CallbackUrl string `mapstructure:"callbackUrl"`
}

// Webhook posts a signed JSON trigger to the URL stored as the workflow name.
// Results arrive only through the build callback.
type Webhook struct {
	cfg    WebhookConfig
	client *resty.Client
}

func NewWebhook(cfg WebhookConfig, timeout time.Duration) *Webhook {
	return &Webhook{cfg: cfg, client: newClient(timeout)}
}

type webhookPayload struct {
	TenantId     string            `json:"tenantId"`
	ReleaseId    string            `json:"releaseId"`
	Platform     string            `json:"platform"`
	WorkflowType string            `json:"workflowType"`
	Ref          string            `json:"ref,omitempty"`
	Params       map[string]string `json:"params,omitempty"`
	CallbackUrl  string            `json:"callbackUrl,omitempty"`
}

func (w *Webhook) TriggerWorkflow(ctx context.Context, req integration.TriggerRequest) (integration.TriggerResult, error) {
	def, err := workflowOf(req)
	if err != nil {
		return integration.TriggerResult{}, err
	}
	body, err := sonic.Marshal(webhookPayload{
		TenantId:     req.TenantId,
		ReleaseId:    req.ReleaseId,
		Platform:     string(req.Platform),
		WorkflowType: string(req.WorkflowType),
		Ref:          refOf(def, req),
		Params:       params(def, req),
		CallbackUrl:  w.cfg.CallbackUrl,
	})
	if err != nil {
		return integration.TriggerResult{}, fmt.Errorf("marshal trigger: %w", err)
	}

	request := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if w.cfg.Secret != "" {
		request.SetHeader(SignatureHeader, "sha256="+scm.SignHmacSha256Hex(body, w.cfg.Secret))
	}
	var out struct {
		QueueHandle string `json:"queueHandle"`
		CiRunId     string `json:"ciRunId"`
	}
	r, err := request.SetResult(&out).Post(def.Name)
	if err != nil {
		return integration.TriggerResult{}, err
	}
	if r.IsError() {
		return integration.TriggerResult{}, fmt.Errorf("webhook: %s", r.Status())
	}
	return integration.TriggerResult{QueueHandle: out.QueueHandle, CiRunId: out.CiRunId}, nil
}
