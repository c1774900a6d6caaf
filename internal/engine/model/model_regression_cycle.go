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

type CycleStatus string

const (
	CycleNotStarted CycleStatus = "NOT_STARTED"
	CycleInProgress CycleStatus = "IN_PROGRESS"
	CycleDone       CycleStatus = "DONE"
	CycleAbandoned  CycleStatus = "ABANDONED"
)

// IsTerminal reports whether a later cycle may be created after this one.
func (s CycleStatus) IsTerminal() bool {
	return s == CycleDone || s == CycleAbandoned
}

// RegressionCycle 回归周期表
type RegressionCycle struct {
	BaseModel
	CycleId    string      `gorm:"column:cycle_id;uniqueIndex;size:64" json:"cycleId"`
	ReleaseId  string      `gorm:"column:release_id;index;size:64" json:"releaseId"`
	CycleIndex int         `gorm:"column:cycle_index" json:"cycleIndex"`
	SlotTime   time.Time   `gorm:"column:slot_time" json:"slotTime"`
	Status     CycleStatus `gorm:"column:status;size:32" json:"status"`
	CycleTag   string      `gorm:"column:cycle_tag" json:"cycleTag"`
	IsLatest   bool        `gorm:"column:is_latest" json:"isLatest"`
	// Config holds the overrides of the slot the cycle was created from.
	Config datatypes.JSONType[SlotConfig] `gorm:"column:config" json:"config"`
}

// EffectiveConfig applies the cycle's slot overrides to the release config.
func (c *RegressionCycle) EffectiveConfig(base CronConfig) CronConfig {
	slot := c.Config.Data()
	return slot.Apply(base)
}

func (RegressionCycle) TableName() string {
	return "t_regression_cycle"
}
