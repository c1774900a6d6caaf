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

import "time"

type BuildType string

const (
	BuildManual BuildType = "MANUAL"
	BuildCICD   BuildType = "CI_CD"
)

type BuildUploadStatus string

const (
	BuildUploadPending  BuildUploadStatus = "PENDING"
	BuildUploadUploaded BuildUploadStatus = "UPLOADED"
	BuildUploadFailed   BuildUploadStatus = "FAILED"
)

type WorkflowStatus string

const (
	WorkflowQueued    WorkflowStatus = "QUEUED"
	WorkflowRunning   WorkflowStatus = "RUNNING"
	WorkflowCompleted WorkflowStatus = "COMPLETED"
	WorkflowFailed    WorkflowStatus = "FAILED"
)

// Build 构建产物表, one row per (task, platform)
type Build struct {
	BaseModel
	BuildId             string            `gorm:"column:build_id;uniqueIndex;size:64" json:"buildId"`
	TenantId            string            `gorm:"column:tenant_id;size:64" json:"tenantId"`
	ReleaseId           string            `gorm:"column:release_id;index;size:64" json:"releaseId"`
	TaskId              string            `gorm:"column:task_id;index;size:64" json:"taskId"`
	CycleId             string            `gorm:"column:cycle_id;size:64" json:"cycleId"`
	Platform            Platform          `gorm:"column:platform;size:16" json:"platform"`
	StoreType           StoreType         `gorm:"column:store_type;size:32" json:"storeType"`
	Stage               Stage             `gorm:"column:stage;size:32" json:"stage"`
	BuildType           BuildType         `gorm:"column:build_type;size:16" json:"buildType"`
	BuildUploadStatus   BuildUploadStatus `gorm:"column:build_upload_status;size:16" json:"buildUploadStatus"`
	WorkflowStatus      WorkflowStatus    `gorm:"column:workflow_status;size:16" json:"workflowStatus"`
	QueueLocation       string            `gorm:"column:queue_location;index" json:"queueLocation"`
	CiRunId             string            `gorm:"column:ci_run_id;index" json:"ciRunId"`
	ArtifactPath        string            `gorm:"column:artifact_path" json:"artifactPath"`
	BuildNumber         string            `gorm:"column:build_number" json:"buildNumber"`
	ArtifactVersionName string            `gorm:"column:artifact_version_name" json:"artifactVersionName"`
	ErrorMessage        string            `gorm:"column:error_message;type:text" json:"errorMessage"`
}

func (Build) TableName() string {
	return "t_build"
}

// BuildUpload 手动上传暂存表; at most one unused row per (release, stage, platform, cycle)
type BuildUpload struct {
	BaseModel
	UploadId      string     `gorm:"column:upload_id;uniqueIndex;size:64" json:"uploadId"`
	TenantId      string     `gorm:"column:tenant_id;size:64" json:"tenantId"`
	ReleaseId     string     `gorm:"column:release_id;index:idx_upload_key;size:64" json:"releaseId"`
	Platform      Platform   `gorm:"column:platform;index:idx_upload_key;size:16" json:"platform"`
	Stage         Stage      `gorm:"column:stage;index:idx_upload_key;size:32" json:"stage"`
	CycleId       string     `gorm:"column:cycle_id;index:idx_upload_key;size:64" json:"cycleId"`
	ArtifactPath  string     `gorm:"column:artifact_path" json:"artifactPath"`
	ArtifactName  string     `gorm:"column:artifact_name" json:"artifactName"`
	ArtifactSize  int64      `gorm:"column:artifact_size" json:"artifactSize"`
	Checksum      string     `gorm:"column:checksum;size:64" json:"checksum"`
	IsUsed        bool       `gorm:"column:is_used" json:"isUsed"`
	UnusedKey     *string    `gorm:"column:unused_key;uniqueIndex;size:255" json:"-"` // NULL once used
	UsedByTaskId  string     `gorm:"column:used_by_task_id;size:64" json:"usedByTaskId"`
	UsedByCycleId string     `gorm:"column:used_by_cycle_id;size:64" json:"usedByCycleId"`
	UsedAt        *time.Time `gorm:"column:used_at" json:"usedAt"`
}

func (BuildUpload) TableName() string {
	return "t_build_upload"
}

// UploadKey identifies the single unused staging slot of a release.
func UploadKey(releaseId string, stage Stage, platform Platform, cycleId string) string {
	return releaseId + "|" + string(stage) + "|" + string(platform) + "|" + cycleId
}
