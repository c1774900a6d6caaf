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

// Package integration declares the collaborators a release talks to and the
// adapters that bind them to concrete providers.
package integration

import (
	"context"

	"github.com/arcentrix/launchpad/internal/engine/model"
)

// RepoRef locates a repository on a configured SCM provider.
type RepoRef struct {
	Provider   string
	Repository string
}

// RepoOf returns the repository a release is cut from.
func RepoOf(r *model.Release) RepoRef {
	return RepoRef{Provider: r.ScmProvider, Repository: r.Repository}
}

// SourceControl creates branches, tags and release notes. Creating something that
// already exists is not an error.
type SourceControl interface {
	ForkBranch(ctx context.Context, ref RepoRef, newBranch, baseBranch string) error
	CreateTag(ctx context.Context, ref RepoRef, tag, target string) error
	// CreateReleaseNotes publishes notes for currentTag and returns their URL.
	CreateReleaseNotes(ctx context.Context, ref RepoRef, currentTag, previousTag string, prerelease bool) (string, error)
	// NextReleaseCandidateTag returns the first unused rc tag of version.
	NextReleaseCandidateTag(ctx context.Context, ref RepoRef, version string) (string, error)
}

// TriggerRequest asks a CI/CD provider to run the workflow bound to (Platform, WorkflowType).
type TriggerRequest struct {
	Config       *model.CicdConfig
	TenantId     string
	ReleaseId    string
	Platform     model.Platform
	WorkflowType model.WorkflowType
	Params       map[string]string
}

// TriggerResult is the provider handle used to correlate callbacks and polls.
type TriggerResult struct {
	QueueHandle string
	CiRunId     string
}

type WorkflowTrigger interface {
	TriggerWorkflow(ctx context.Context, req TriggerRequest) (TriggerResult, error)
}

// RunStatus is a point-in-time view of a triggered workflow.
type RunStatus struct {
	Status       model.WorkflowStatus
	CiRunId      string
	ArtifactPath string
	BuildNumber  string
	VersionName  string
	Error        string
}

// WorkflowPoller is implemented by providers whose run status can be pulled.
type WorkflowPoller interface {
	WorkflowStatus(ctx context.Context, cfg *model.CicdConfig, queueHandle string) (RunStatus, error)
}

// TicketRequest describes the tickets opened at kickoff.
type TicketRequest struct {
	ReleaseId string
	TenantId  string
	Version   string
	Platforms []model.Platform
}

// TicketStatus is the approval view of a release's tickets.
type TicketStatus struct {
	Approved bool
	Statuses map[string]string
}

type TicketService interface {
	// CreateTickets returns the ticket key per platform.
	CreateTickets(ctx context.Context, req TicketRequest) (map[string]string, error)
	// CheckTicketStatus reports whether every ticket is approved.
	CheckTicketStatus(ctx context.Context, tickets map[string]string) (TicketStatus, error)
}

// TestRunRequest describes the test runs created for a release or one of its cycles.
type TestRunRequest struct {
	ReleaseId string
	Version   string
	Label     string
	Platforms []model.Platform
}

// TestRunStatus counts results of one run.
type TestRunStatus struct {
	Total    int
	Passed   int
	Failed   int
	Blocked  int
	Untested int
}

// PassRate is the passed share in percent.
func (s TestRunStatus) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) * 100 / float64(s.Total)
}

type TestRunService interface {
	// CreateTestRuns returns the run id per platform.
	CreateTestRuns(ctx context.Context, req TestRunRequest) (map[string]string, error)
	GetTestStatus(ctx context.Context, runId string) (TestRunStatus, error)
}

// Notification is a release event pushed to humans or downstream systems.
type Notification struct {
	Type      string
	TenantId  string
	ReleaseId string
	Title     string
	Body      string
	Data      map[string]any
}

// Notifier delivers notifications. Callers treat delivery as best-effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notification types.
const (
	NotifyBuildReady          = "launchpad.build.ready"
	NotifyRegressionBuilds    = "launchpad.regression.builds"
	NotifyCherryPicksReminder = "launchpad.release.cherrypicks"
	NotifyReleasePaused       = "launchpad.release.paused"
	NotifyReleaseCompleted    = "launchpad.release.completed"
	NotifyKickoffReminder     = "launchpad.release.kickoff"
)
