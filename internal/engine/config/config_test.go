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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcentrix/launchpad/pkg/scm"
)

const sample = `
http:
  port: 9090
  callbackSecret: hush
database:
  driver: sqlite
  dsn: "file:launchpad.db"
scheduler:
  cronSpec: "@every 30s"
  maxParallel: 4
staging:
  maxArtifactSizeMB: 256
storage:
  provider: minio
  bucket: artifacts
scm:
  - kind: github
    token: ghp_x
  - kind: gitlab
    baseUrl: https://gitlab.example.com
notify:
  feishu:
    webhookUrl: https://open.feishu.cn/hook/x
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launchpad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	c, err := LoadConfigFile(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Http.Port)
	assert.Equal(t, "127.0.0.1", c.Http.Host, "defaults fill unset keys")
	assert.Equal(t, "@every 30s", c.Scheduler.CronSpec)
	assert.Equal(t, 4, c.Scheduler.MaxParallel)
	assert.Equal(t, 300, c.Scheduler.LeaseTTLSeconds)
	assert.Equal(t, "artifacts", c.Storage.Bucket)
	require.Len(t, c.Scm, 2)
	assert.Equal(t, scm.ProviderKindGitLab, c.Scm[1].Kind)
	assert.Equal(t, "https://open.feishu.cn/hook/x", c.Notify.Feishu.WebhookUrl)
	assert.Equal(t, 30, c.Cicd.TimeoutSeconds)

	assert.Equal(t, int64(256)<<20, ProvideArtifactRules(&c).MaxSizeBytes)
	assert.Equal(t, "hush", string(ProvideCallbackSecret(&c)))
	assert.Equal(t, "/metrics", ProvideMetrics(&c).Path)

	assert.Equal(t, 9090, GetConfig().Http.Port)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	var c AppConfig
	c.SetDefaults()
	assert.Equal(t, 8080, c.Http.Port)
	assert.Equal(t, 1024, c.Staging.MaxArtifactSizeMB)
	assert.Equal(t, "127.0.0.1:6379", c.Redis.Addr)
	assert.Equal(t, "@every 1m", c.Scheduler.CronSpec)
	assert.Equal(t, 5, c.Notify.TimeoutSeconds)
}
