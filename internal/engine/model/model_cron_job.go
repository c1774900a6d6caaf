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

import "gorm.io/datatypes"

type StageStatus string

const (
	StagePending    StageStatus = "PENDING"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageCompleted  StageStatus = "COMPLETED"
)

// Next returns the only status a stage may move to from s.
func (s StageStatus) Next() (StageStatus, bool) {
	switch s {
	case StagePending:
		return StageInProgress, true
	case StageInProgress:
		return StageCompleted, true
	}
	return "", false
}

// Rank orders stage statuses; a stage never moves to a lower rank.
func (s StageStatus) Rank() int {
	switch s {
	case StagePending:
		return 0
	case StageInProgress:
		return 1
	case StageCompleted:
		return 2
	}
	return -1
}

type CronStatus string

const (
	CronPending   CronStatus = "PENDING"
	CronRunning   CronStatus = "RUNNING"
	CronPaused    CronStatus = "PAUSED"
	CronCompleted CronStatus = "COMPLETED"
)

type PauseType string

const (
	PauseNone                 PauseType = "NONE"
	PauseTaskFailure          PauseType = "TASK_FAILURE"
	PauseUserRequested        PauseType = "USER_REQUESTED"
	PauseAwaitingStageTrigger PauseType = "AWAITING_STAGE_TRIGGER"
)

// CronJob 发布编排状态表, one row per release
type CronJob struct {
	BaseModel
	CronJobId              string                            `gorm:"column:cron_job_id;uniqueIndex;size:64" json:"cronJobId"`
	ReleaseId              string                            `gorm:"column:release_id;uniqueIndex;size:64" json:"releaseId"`
	Stage1Status           StageStatus                       `gorm:"column:stage1_status;size:32" json:"stage1Status"`
	Stage2Status           StageStatus                       `gorm:"column:stage2_status;size:32" json:"stage2Status"`
	Stage3Status           StageStatus                       `gorm:"column:stage3_status;size:32" json:"stage3Status"`
	CronStatus             CronStatus                        `gorm:"column:cron_status;index;size:32" json:"cronStatus"`
	PauseType              PauseType                         `gorm:"column:pause_type;size:32" json:"pauseType"`
	CronConfig             datatypes.JSONType[CronConfig]     `gorm:"column:cron_config" json:"cronConfig"`
	UpcomingRegressions    datatypes.JSONType[RegressionSlots] `gorm:"column:upcoming_regressions" json:"upcomingRegressions"`
	AutoTransitionToStage2 bool                              `gorm:"column:auto_transition_to_stage2" json:"autoTransitionToStage2"`
	AutoTransitionToStage3 bool                              `gorm:"column:auto_transition_to_stage3" json:"autoTransitionToStage3"`
	Version                int64                             `gorm:"column:version" json:"version"`
	LockedUntil            int64                             `gorm:"column:locked_until" json:"lockedUntil"` // epoch millis
	LockedBy               string                            `gorm:"column:locked_by;size:128" json:"lockedBy"`
}

func (CronJob) TableName() string {
	return "t_cron_job"
}

// StageStatusOf returns the status of the stage with the given 1-based index.
func (c *CronJob) StageStatusOf(stage int) StageStatus {
	switch stage {
	case 1:
		return c.Stage1Status
	case 2:
		return c.Stage2Status
	case 3:
		return c.Stage3Status
	}
	return ""
}

// StageColumn is the column holding the status of stage i.
func StageColumn(i int) string {
	switch i {
	case 1:
		return "stage1_status"
	case 2:
		return "stage2_status"
	case 3:
		return "stage3_status"
	}
	return ""
}

// ActiveStage returns the lowest stage that is IN_PROGRESS, or 0.
func (c *CronJob) ActiveStage() int {
	for i := 1; i <= 3; i++ {
		if c.StageStatusOf(i) == StageInProgress {
			return i
		}
	}
	return 0
}
