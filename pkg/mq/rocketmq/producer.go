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

package rocketmq

import (
	"context"
	"fmt"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"

	"github.com/arcentrix/launchpad/pkg/mq"
)

// Config represents the RocketMQ producer configuration.
type Config struct {
	NameServers []string `mapstructure:"nameServers"`
	GroupName   string   `mapstructure:"groupName"`
	Retry       int      `mapstructure:"retry"`
	AccessKey   string   `mapstructure:"accessKey"`
	SecretKey   string   `mapstructure:"secretKey"`
}

func (c *Config) SetDefaults() {
	if c.GroupName == "" {
		c.GroupName = "launchpad-producer"
	}
	if c.Retry == 0 {
		c.Retry = 3
	}
}

func (c Config) credentials() (*primitive.Credentials, error) {
	if c.AccessKey == "" && c.SecretKey == "" {
		return nil, nil
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return nil, fmt.Errorf("accessKey and secretKey are required together")
	}
	return &primitive.Credentials{AccessKey: c.AccessKey, SecretKey: c.SecretKey}, nil
}

func (c Config) options() ([]producer.Option, error) {
	if err := mq.RequireNonEmptySlice("nameServers", c.NameServers); err != nil {
		return nil, err
	}
	if err := mq.RequireNonEmpty("groupName", c.GroupName); err != nil {
		return nil, err
	}
	cred, err := c.credentials()
	if err != nil {
		return nil, err
	}
	opts := []producer.Option{
		producer.WithNsResolver(primitive.NewPassthroughResolver(c.NameServers)),
		producer.WithGroupName(c.GroupName),
		producer.WithRetry(c.Retry),
	}
	if cred != nil {
		opts = append(opts, producer.WithCredentials(*cred))
	}
	return opts, nil
}

var _ mq.Publisher = (*Producer)(nil)

type Producer struct {
	producer rocketmq.Producer
}

// NewProducer creates and starts a RocketMQ producer.
func NewProducer(cfg Config) (*Producer, error) {
	cfg.SetDefaults()
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	p, err := rocketmq.NewProducer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("start producer: %w", err)
	}
	return &Producer{producer: p}, nil
}

// Publish sends msg synchronously. Headers become message properties.
func (p *Producer) Publish(ctx context.Context, msg mq.Message) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("producer is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	m := primitive.NewMessage(msg.Topic, msg.Value)
	if msg.Key != "" {
		m.WithKeys([]string{msg.Key})
	}
	for k, v := range msg.Headers {
		m.WithProperty(k, v)
	}

	result, err := p.producer.SendSync(ctx, m)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if result.Status != primitive.SendOK {
		return fmt.Errorf("send message: status=%v", result.Status)
	}
	return nil
}

func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Shutdown()
}
