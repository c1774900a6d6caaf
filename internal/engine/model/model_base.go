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

// BaseModel carries the surrogate key and audit timestamps shared by every table.
type BaseModel struct {
	Id        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// Platform is a mobile/web delivery platform.
type Platform string

const (
	PlatformAndroid Platform = "ANDROID"
	PlatformIOS     Platform = "IOS"
	PlatformWeb     Platform = "WEB"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return true
	}
	return false
}

// StoreType is the distribution target of a build.
type StoreType string

const (
	StorePlayStore  StoreType = "PLAY_STORE"
	StoreAppStore   StoreType = "APP_STORE"
	StoreTestFlight StoreType = "TESTFLIGHT"
	StoreFirebase   StoreType = "FIREBASE"
	StoreWeb        StoreType = "WEB"
)

// Stage is one of the three ordered release phases.
type Stage string

const (
	StageKickoff        Stage = "KICKOFF"
	StageRegression     Stage = "REGRESSION"
	StagePostRegression Stage = "POST_REGRESSION"
)

// Index returns 1..3 for known stages and 0 otherwise.
func (s Stage) Index() int {
	switch s {
	case StageKickoff:
		return 1
	case StageRegression:
		return 2
	case StagePostRegression:
		return 3
	}
	return 0
}

// StageByIndex is the inverse of Stage.Index.
func StageByIndex(i int) (Stage, bool) {
	switch i {
	case 1:
		return StageKickoff, true
	case 2:
		return StageRegression, true
	case 3:
		return StagePostRegression, true
	}
	return "", false
}
