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

// Package notify delivers release notifications to chat channels and message brokers.
package notify

import (
	"context"
	"errors"
	"io"

	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/pkg/mq/kafka"
	"github.com/arcentrix/launchpad/pkg/mq/rocketmq"
)

type Config struct {
	Feishu   FeishuConfig   `mapstructure:"feishu"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	RocketMQ RocketMQConfig `mapstructure:"rocketmq"`
	// SourcePrefix is the CloudEvents source of published events.
	SourcePrefix   string `mapstructure:"sourcePrefix"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

type FeishuConfig struct {
	WebhookUrl string `mapstructure:"webhookUrl"`
	// Secret enables request signing; leave empty when the bot has no signature check.
	Secret string `mapstructure:"secret"`
}

type KafkaConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Topic        string `mapstructure:"topic"`
	kafka.Config `mapstructure:",squash"`
}

type RocketMQConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Topic           string `mapstructure:"topic"`
	rocketmq.Config `mapstructure:",squash"`
}

func (c *Config) SetDefaults() {
	if c.SourcePrefix == "" {
		c.SourcePrefix = DefaultSource
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "LAUNCHPAD_RELEASE_EVENTS"
	}
	if c.RocketMQ.Topic == "" {
		c.RocketMQ.Topic = "LAUNCHPAD_RELEASE_EVENTS"
	}
}

// Sink is a notifier owning resources that must be released on shutdown.
type Sink interface {
	integration.Notifier
	io.Closer
}

// MultiNotifier fans a notification out to every sink.
type MultiNotifier struct {
	sinks []Sink
}

// NewMultiNotifier drops nil sinks.
func NewMultiNotifier(sinks ...Sink) *MultiNotifier {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiNotifier{sinks: filtered}
}

// Notify delivers to all sinks and joins their errors; one failing sink does not
// stop the others.
func (m *MultiNotifier) Notify(ctx context.Context, n integration.Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiNotifier) Close() error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len is the number of configured sinks.
func (m *MultiNotifier) Len() int {
	return len(m.sinks)
}

// New builds every sink enabled in cfg. Broker sinks that cannot connect are an error.
func New(cfg Config) (*MultiNotifier, error) {
	cfg.SetDefaults()
	var sinks []Sink
	if cfg.Feishu.WebhookUrl != "" {
		sinks = append(sinks, NewFeishu(cfg.Feishu, cfg.timeout()))
	}
	if cfg.Kafka.Enabled {
		p, err := kafka.NewProducer(cfg.Kafka.Config)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewEventNotifier(p, cfg.Kafka.Topic, cfg.SourcePrefix))
	}
	if cfg.RocketMQ.Enabled {
		p, err := rocketmq.NewProducer(cfg.RocketMQ.Config)
		if err != nil {
			_ = NewMultiNotifier(sinks...).Close()
			return nil, err
		}
		sinks = append(sinks, NewEventNotifier(p, cfg.RocketMQ.Topic, cfg.SourcePrefix))
	}
	return NewMultiNotifier(sinks...), nil
}
