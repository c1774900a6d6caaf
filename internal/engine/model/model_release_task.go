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

package model

import (
	"time"

	"gorm.io/datatypes"
)

type TaskType string

const (
	TaskForkBranch                    TaskType = "FORK_BRANCH"
	TaskCreateProjectManagementTicket TaskType = "CREATE_PROJECT_MANAGEMENT_TICKET"
	TaskCreateTestSuite               TaskType = "CREATE_TEST_SUITE"
	TaskTriggerPreRegressionBuilds    TaskType = "TRIGGER_PRE_REGRESSION_BUILDS"

	TaskResetTestSuite             TaskType = "RESET_TEST_SUITE"
	TaskCreateRcTag                TaskType = "CREATE_RC_TAG"
	TaskCreateReleaseNotes         TaskType = "CREATE_RELEASE_NOTES"
	TaskTriggerRegressionBuilds    TaskType = "TRIGGER_REGRESSION_BUILDS"
	TaskTriggerAutomationRuns      TaskType = "TRIGGER_AUTOMATION_RUNS"
	TaskAutomationRuns             TaskType = "AUTOMATION_RUNS"
	TaskSendRegressionBuildMessage TaskType = "SEND_REGRESSION_BUILD_MESSAGE"

	TaskPreReleaseCherryPicksReminder TaskType = "PRE_RELEASE_CHERRY_PICKS_REMINDER"
	TaskCreateReleaseTag              TaskType = "CREATE_RELEASE_TAG"
	TaskCreateFinalReleaseNotes       TaskType = "CREATE_FINAL_RELEASE_NOTES"
	TaskTriggerTestFlightBuild        TaskType = "TRIGGER_TEST_FLIGHT_BUILD"
	TaskCreateAabBuild                TaskType = "CREATE_AAB_BUILD"
	TaskCheckProjectReleaseApproval   TaskType = "CHECK_PROJECT_RELEASE_APPROVAL"
)

type TaskStatus string

const (
	TaskPending             TaskStatus = "PENDING"
	TaskInProgress          TaskStatus = "IN_PROGRESS"
	TaskCompleted           TaskStatus = "COMPLETED"
	TaskFailed              TaskStatus = "FAILED"
	TaskAwaitingCallback    TaskStatus = "AWAITING_CALLBACK"
	TaskAwaitingManualBuild TaskStatus = "AWAITING_MANUAL_BUILD"
	TaskSkipped             TaskStatus = "SKIPPED"
)

// IsDone reports whether the task no longer blocks its stage.
func (s TaskStatus) IsDone() bool {
	return s == TaskCompleted || s == TaskSkipped
}

// IsRunnable reports whether the executor should look at the task on a tick.
func (s TaskStatus) IsRunnable() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskAwaitingCallback, TaskAwaitingManualBuild:
		return true
	}
	return false
}

// ReleaseTask 发布任务表
type ReleaseTask struct {
	BaseModel
	TaskId       string            `gorm:"column:task_id;uniqueIndex;size:64" json:"taskId"`
	ReleaseId    string            `gorm:"column:release_id;index;uniqueIndex:idx_task_kind,priority:1;size:64" json:"releaseId"`
	CycleId      string            `gorm:"column:cycle_id;index;uniqueIndex:idx_task_kind,priority:2;size:64" json:"cycleId"` // 空表示不属于回归周期
	TaskType     TaskType          `gorm:"column:task_type;uniqueIndex:idx_task_kind,priority:3;size:64" json:"taskType"`
	Stage        Stage             `gorm:"column:stage;size:32" json:"stage"`
	TaskStatus   TaskStatus        `gorm:"column:task_status;size:32" json:"taskStatus"`
	ExternalId   string            `gorm:"column:external_id" json:"externalId"`
	ExternalData datatypes.JSONMap `gorm:"column:external_data" json:"externalData"`
	ErrorMessage string            `gorm:"column:error_message;type:text" json:"errorMessage"`
	RetryCount   int               `gorm:"column:retry_count" json:"retryCount"`
	StartedAt    *time.Time        `gorm:"column:started_at" json:"startedAt"`
	FinishedAt   *time.Time        `gorm:"column:finished_at" json:"finishedAt"`
}

func (ReleaseTask) TableName() string {
	return "t_release_task"
}
