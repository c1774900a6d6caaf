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

type ReleaseStatus string

const (
	ReleaseInProgress ReleaseStatus = "IN_PROGRESS"
	ReleasePaused     ReleaseStatus = "PAUSED"
	ReleaseCompleted  ReleaseStatus = "COMPLETED"
	ReleaseArchived   ReleaseStatus = "ARCHIVED"
)

type ReleaseType string

const (
	ReleasePlanned   ReleaseType = "PLANNED"
	ReleaseHotfix    ReleaseType = "HOTFIX"
	ReleaseUnplanned ReleaseType = "UNPLANNED"
)

// PlatformTarget maps a platform to the store its builds are distributed to.
type PlatformTarget struct {
	Platform Platform  `json:"platform"`
	Target   StoreType `json:"target"`
}

// Release 发布记录表
type Release struct {
	BaseModel
	ReleaseId            string                                `gorm:"column:release_id;uniqueIndex;size:64" json:"releaseId"`
	TenantId             string                                `gorm:"column:tenant_id;index;size:64" json:"tenantId"`
	Status               ReleaseStatus                         `gorm:"column:status;size:32" json:"status"`
	Type                 ReleaseType                           `gorm:"column:type;size:32" json:"type"`
	Version              string                                `gorm:"column:version;size:64" json:"version"`
	BaseBranch           string                                `gorm:"column:base_branch" json:"baseBranch"`
	Branch               string                                `gorm:"column:branch" json:"branch"`
	BaseReleaseId        string                                `gorm:"column:base_release_id;size:64" json:"baseReleaseId"`
	HasManualBuildUpload bool                                  `gorm:"column:has_manual_build_upload" json:"hasManualBuildUpload"`
	Platforms            datatypes.JSONType[[]PlatformTarget] `gorm:"column:platforms" json:"platforms"`
	KickOffDate          time.Time                             `gorm:"column:kick_off_date" json:"kickOffDate"`
	TargetReleaseDate    *time.Time                            `gorm:"column:target_release_date" json:"targetReleaseDate"`
	ReleaseTag           string                                `gorm:"column:release_tag" json:"releaseTag"` // 只允许写入一次
	CicdConfigId         string                                `gorm:"column:cicd_config_id;size:64" json:"cicdConfigId"`
	ScmProvider          string                                `gorm:"column:scm_provider;size:32" json:"scmProvider"`
	Repository           string                                `gorm:"column:repository" json:"repository"` // owner/name or project path
	CreatedBy            string                                `gorm:"column:created_by" json:"createdBy"`
}

func (Release) TableName() string {
	return "t_release"
}

// PlatformList returns the distinct platforms of the release in declaration order.
func (r *Release) PlatformList() []Platform {
	seen := make(map[Platform]struct{})
	var out []Platform
	for _, pt := range r.Platforms.Data() {
		if _, ok := seen[pt.Platform]; ok {
			continue
		}
		seen[pt.Platform] = struct{}{}
		out = append(out, pt.Platform)
	}
	return out
}

// TargetFor returns the configured store for p, if the release ships on p.
func (r *Release) TargetFor(p Platform) (StoreType, bool) {
	for _, pt := range r.Platforms.Data() {
		if pt.Platform == p {
			return pt.Target, true
		}
	}
	return "", false
}

// IsActive reports whether the release can still be orchestrated.
func (r *Release) IsActive() bool {
	return r.Status == ReleaseInProgress || r.Status == ReleasePaused
}
