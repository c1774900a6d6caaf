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
	"fmt"
	"os"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/arcentrix/launchpad/pkg/mq"
)

// Config represents the Kafka producer configuration.
type Config struct {
	BootstrapServers string     `mapstructure:"bootstrapServers"`
	ClientId         string     `mapstructure:"clientId"`
	Acks             string     `mapstructure:"acks"`
	Retries          int        `mapstructure:"retries"`
	Compression      string     `mapstructure:"compression"`
	SecurityProtocol string     `mapstructure:"securityProtocol"`
	Sasl             SaslConfig `mapstructure:"sasl"`
	Ssl              SslConfig  `mapstructure:"ssl"`
}

type SaslConfig struct {
	Mechanism string `mapstructure:"mechanism"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

type SslConfig struct {
	CaFile   string `mapstructure:"caFile"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	Password string `mapstructure:"password"`
}

func (c *Config) SetDefaults() {
	if c.ClientId == "" {
		c.ClientId = "launchpad"
	}
	if c.Acks == "" {
		c.Acks = "all"
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
}

// configMap turns cfg into librdkafka properties. Empty optional values are left unset
// so librdkafka keeps its own defaults.
func configMap(cfg Config) (*kafka.ConfigMap, error) {
	if err := mq.RequireNonEmpty("bootstrapServers", cfg.BootstrapServers); err != nil {
		return nil, err
	}
	clientId, err := buildClientId(cfg.ClientId)
	if err != nil {
		return nil, err
	}

	m := &kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
		"client.id":         clientId,
		"acks":              cfg.Acks,
		"retries":           cfg.Retries,
		"compression.type":  cfg.Compression,
	}
	optional := map[string]string{
		"security.protocol":        cfg.SecurityProtocol,
		"sasl.mechanism":           cfg.Sasl.Mechanism,
		"sasl.username":            cfg.Sasl.Username,
		"sasl.password":            cfg.Sasl.Password,
		"ssl.ca.location":          cfg.Ssl.CaFile,
		"ssl.certificate.location": cfg.Ssl.CertFile,
		"ssl.key.location":         cfg.Ssl.KeyFile,
		"ssl.key.password":         cfg.Ssl.Password,
	}
	for k, v := range optional {
		if v != "" {
			_ = m.SetKey(k, v)
		}
	}
	return m, nil
}

func buildClientId(clientId string) (string, error) {
	if err := mq.RequireNonEmpty("clientId", clientId); err != nil {
		return "", err
	}
	hostname, err := os.Hostname()
	if err != nil || strings.TrimSpace(hostname) == "" {
		hostname = "UNKNOWN"
	}
	return strings.ToUpper(fmt.Sprintf("%s_CLIENT_%s", clientId, hostname)), nil
}
