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
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/pkg/mq"
)

const (
	// CloudEventSpecVersion is the CloudEvents spec version.
	CloudEventSpecVersion = "1.0"
	// CloudEventContentTypeJSON is the default data content type.
	CloudEventContentTypeJSON = "application/json"
	// DefaultSource is the CloudEvents source when none is configured.
	DefaultSource = "urn:launchpad:orchestrator"
)

// CloudEvent represents a CloudEvents 1.0 envelope in structured mode.
type CloudEvent struct {
	SpecVersion     string         `json:"specversion"`
	Id              string         `json:"id"`
	Source          string         `json:"source"`
	Type            string         `json:"type"`
	Time            time.Time      `json:"time"`
	DataContentType string         `json:"datacontenttype,omitempty"`
	Subject         string         `json:"subject,omitempty"`
	TenantId        string         `json:"tenantid,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
}

// NewCloudEvent wraps n. The subject is release/<id> so consumers can key on it.
func NewCloudEvent(source string, n integration.Notification, now time.Time) CloudEvent {
	data := make(map[string]any, len(n.Data)+2)
	maps.Copy(data, n.Data)
	if n.Title != "" {
		data["title"] = n.Title
	}
	if n.Body != "" {
		data["body"] = n.Body
	}
	ev := CloudEvent{
		SpecVersion:     CloudEventSpecVersion,
		Id:              uuid.NewString(),
		Source:          source,
		Type:            n.Type,
		Time:            now,
		DataContentType: CloudEventContentTypeJSON,
		TenantId:        n.TenantId,
		Data:            data,
	}
	if n.ReleaseId != "" {
		ev.Subject = "release/" + n.ReleaseId
	}
	return ev
}

// EventNotifier publishes notifications as CloudEvents through a broker.
type EventNotifier struct {
	publisher mq.Publisher
	topic     string
	source    string
}

func NewEventNotifier(publisher mq.Publisher, topic, source string) *EventNotifier {
	if source == "" {
		source = DefaultSource
	}
	return &EventNotifier{publisher: publisher, topic: topic, source: source}
}

func (e *EventNotifier) Notify(ctx context.Context, n integration.Notification) error {
	ev := NewCloudEvent(e.source, n, time.Now())
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return e.publisher.Publish(ctx, mq.Message{
		Topic: e.topic,
		Key:   n.ReleaseId,
		Value: payload,
		Headers: map[string]string{
			"ce_id":          ev.Id,
			"ce_type":        ev.Type,
			"ce_source":      ev.Source,
			"ce_specversion": ev.SpecVersion,
			"content-type":   "application/cloudevents+json",
		},
	})
}

func (e *EventNotifier) Close() error {
	return e.publisher.Close()
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
