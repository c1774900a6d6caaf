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
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/arcentrix/launchpad/pkg/mq"
)

var _ mq.Publisher = (*Producer)(nil)

// Producer wraps a Kafka producer instance.
type Producer struct {
	producer *kafka.Producer
}

// NewProducer creates a new Kafka producer.
func NewProducer(cfg Config) (*Producer, error) {
	cfg.SetDefaults()
	m, err := configMap(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := kafka.NewProducer(m)
	if err != nil {
		return nil, fmt.Errorf("create producer: %w", err)
	}
	return &Producer{producer: producer}, nil
}

// Publish sends msg and waits for its delivery report.
func (p *Producer) Publish(ctx context.Context, msg mq.Message) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("producer is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	topic := msg.Topic
	km := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(msg.Key),
		Value:          msg.Value,
		Headers:        headers,
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(km, deliveryChan); err != nil {
		return fmt.Errorf("produce message: %w", err)
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver message: %w", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes outstanding messages for up to 15 seconds and closes the producer.
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	p.producer.Flush(15 * 1000)
	p.producer.Close()
	return nil
}
