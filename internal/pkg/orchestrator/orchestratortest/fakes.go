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

// Package orchestratortest provides in-memory collaborators for engine tests.
package orchestratortest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
)

// Scm records every call and fails when Err is set.
type Scm struct {
	mu       sync.Mutex
	Err      error
	Branches []string
	Tags     []string
	Notes    []string
	rc       map[string]int
}

func (s *Scm) ForkBranch(_ context.Context, _ integration.RepoRef, newBranch, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Branches = append(s.Branches, newBranch)
	return nil
}

func (s *Scm) CreateTag(_ context.Context, _ integration.RepoRef, tag, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Tags = append(s.Tags, tag)
	return nil
}

func (s *Scm) CreateReleaseNotes(_ context.Context, _ integration.RepoRef, currentTag, previousTag string, _ bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Notes = append(s.Notes, previousTag+".."+currentTag)
	return "https://scm.example/releases/" + currentTag, nil
}

func (s *Scm) NextReleaseCandidateTag(_ context.Context, _ integration.RepoRef, version string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if s.rc == nil {
		s.rc = map[string]int{}
	}
	s.rc[version]++
	return integration.ReleaseCandidateTag(version, s.rc[version]), nil
}

// Trigger hands out sequential queue handles. With NoHandle set it accepts the
// trigger but returns an empty handle. FailPlatform rejects that platform only.
type Trigger struct {
	mu           sync.Mutex
	NoHandle     bool
	Err          error
	FailPlatform model.Platform
	Requests []integration.TriggerRequest
	// Statuses is returned by WorkflowStatus per queue handle.
	Statuses map[string]integration.RunStatus
}

func (t *Trigger) TriggerWorkflow(_ context.Context, req integration.TriggerRequest) (integration.TriggerResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return integration.TriggerResult{}, t.Err
	}
	if t.FailPlatform != "" && req.Platform == t.FailPlatform {
		return integration.TriggerResult{}, fmt.Errorf("dispatch %s: runner unavailable", req.Platform)
	}
	t.Requests = append(t.Requests, req)
	if t.NoHandle {
		return integration.TriggerResult{}, nil
	}
	n := len(t.Requests)
	return integration.TriggerResult{
		QueueHandle: fmt.Sprintf("queue/%d", n),
		CiRunId:     fmt.Sprintf("run-%d", n),
	}, nil
}

func (t *Trigger) SupportsPolling(*model.CicdConfig) bool {
	return true
}

func (t *Trigger) WorkflowStatus(_ context.Context, _ *model.CicdConfig, handle string) (integration.RunStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.Statuses[handle]; ok {
		return st, nil
	}
	return integration.RunStatus{Status: model.WorkflowRunning}, nil
}

// SetStatus makes WorkflowStatus report st for handle.
func (t *Trigger) SetStatus(handle string, st integration.RunStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Statuses == nil {
		t.Statuses = map[string]integration.RunStatus{}
	}
	t.Statuses[handle] = st
}

// Calls returns the number of triggered workflows.
func (t *Trigger) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Requests)
}

// Tickets opens one ticket per platform; Approved controls CheckTicketStatus.
type Tickets struct {
	mu       sync.Mutex
	Approved bool
	Err      error
}

func (t *Tickets) CreateTickets(_ context.Context, req integration.TicketRequest) (map[string]string, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	out := make(map[string]string, len(req.Platforms))
	for i, p := range req.Platforms {
		out[string(p)] = fmt.Sprintf("REL-%d", i+1)
	}
	return out, nil
}

func (t *Tickets) CheckTicketStatus(_ context.Context, tickets map[string]string) (integration.TicketStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return integration.TicketStatus{}, t.Err
	}
	status := "In Review"
	if t.Approved {
		status = "Done"
	}
	out := integration.TicketStatus{Approved: t.Approved, Statuses: map[string]string{}}
	for _, key := range tickets {
		out.Statuses[key] = status
	}
	return out, nil
}

// SetApproved flips the approval answer.
func (t *Tickets) SetApproved(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Approved = v
}

// TestRuns creates runs named after their label and reports Status for each.
type TestRuns struct {
	mu     sync.Mutex
	Status integration.TestRunStatus
	Labels []string
}

func (t *TestRuns) CreateTestRuns(_ context.Context, req integration.TestRunRequest) (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Labels = append(t.Labels, req.Label)
	out := make(map[string]string, len(req.Platforms))
	for _, p := range req.Platforms {
		out[string(p)] = req.Label + "-" + string(p)
	}
	return out, nil
}

func (t *TestRuns) GetTestStatus(context.Context, string) (integration.TestRunStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Status, nil
}

// SetStatus changes what every run reports.
func (t *TestRuns) SetStatus(st integration.TestRunStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = st
}

// Notifier collects notifications; Err makes every delivery fail after recording.
type Notifier struct {
	mu   sync.Mutex
	Err  error
	Sent []integration.Notification
}

func (n *Notifier) Notify(_ context.Context, msg integration.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, msg)
	return n.Err
}

// Count returns how many notifications of typ were sent.
func (n *Notifier) Count(typ string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.Sent {
		if m.Type == typ {
			c++
		}
	}
	return c
}

// Clock is a settable clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
