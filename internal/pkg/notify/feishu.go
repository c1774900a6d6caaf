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

package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/arcentrix/launchpad/internal/pkg/integration"
)

func (c *Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Feishu posts interactive cards to a Feishu custom bot webhook.
type Feishu struct {
	cfg    FeishuConfig
	client *resty.Client
	now    func() time.Time
}

func NewFeishu(cfg FeishuConfig, timeout time.Duration) *Feishu {
	return &Feishu{
		cfg: cfg,
		client: resty.New().
			SetTimeout(timeout).
			SetJSONMarshaler(sonic.Marshal).
			SetJSONUnmarshaler(sonic.Unmarshal),
		now: time.Now,
	}
}

// sign computes base64(HmacSHA256(key = timestamp + "\n" + secret, data = "")).
func (f *Feishu) sign(timestamp int64) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, f.cfg.Secret)
	h := hmac.New(sha256.New, []byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (f *Feishu) card(n integration.Notification) map[string]any {
	var b strings.Builder
	if n.Body != "" {
		b.WriteString(n.Body)
	}
	for _, k := range sortedKeys(n.Data) {
		fmt.Fprintf(&b, "\n**%s**: %v", k, n.Data[k])
	}
	return map[string]any{
		"config": map[string]any{"wide_screen_mode": true},
		"header": map[string]any{
			"title": map[string]any{"tag": "plain_text", "content": n.Title},
		},
		"elements": []map[string]any{
			{"tag": "div", "text": map[string]any{"tag": "lark_md", "content": b.String()}},
		},
	}
}

func (f *Feishu) Notify(ctx context.Context, n integration.Notification) error {
	if f.cfg.WebhookUrl == "" {
		return fmt.Errorf("feishu webhook URL is required")
	}
	payload := map[string]any{
		"msg_type": "interactive",
		"card":     f.card(n),
	}
	if f.cfg.Secret != "" {
		ts := f.now().Unix()
		payload["timestamp"] = strconv.FormatInt(ts, 10)
		payload["sign"] = f.sign(ts)
	}

	var out struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	r, err := f.client.R().SetContext(ctx).SetBody(payload).SetResult(&out).Post(f.cfg.WebhookUrl)
	if err != nil {
		return fmt.Errorf("feishu: %w", err)
	}
	if r.IsError() {
		return fmt.Errorf("feishu: %s", r.Status())
	}
	if out.Code != 0 {
		return fmt.Errorf("feishu: code=%d msg=%s", out.Code, out.Msg)
	}
	return nil
}

func (f *Feishu) Close() error {
	return nil
}
