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

package kafka

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMapRequiresServers(t *testing.T) {
	_, err := configMap(Config{ClientId: "x"})
	require.Error(t, err)
}

func TestConfigMapDefaultsAndAuth(t *testing.T) {
	cfg := Config{
		BootstrapServers: "localhost:9092",
		SecurityProtocol: "SASL_SSL",
		Sasl:             SaslConfig{Mechanism: "PLAIN", Username: "user", Password: "pass"},
	}
	cfg.SetDefaults()
	m, err := configMap(cfg)
	require.NoError(t, err)

	get := func(key string) any {
		v, err := m.Get(key, nil)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "localhost:9092", get("bootstrap.servers"))
	assert.Equal(t, "all", get("acks"))
	assert.Equal(t, 3, get("retries"))
	assert.Equal(t, "snappy", get("compression.type"))
	assert.Equal(t, "SASL_SSL", get("security.protocol"))
	assert.Equal(t, "user", get("sasl.username"))
	assert.True(t, strings.HasPrefix(get("client.id").(string), "LAUNCHPAD_CLIENT_"))
	// unset ssl options stay absent
	assert.Nil(t, get("ssl.ca.location"))
}
