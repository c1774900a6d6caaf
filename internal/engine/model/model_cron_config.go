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
	"errors"
	"fmt"
	"sort"
	"time"
)

// CronConfig toggles optional work of a release. Nil fields mean "not set" so a
// partial config can be overlaid on the stored one with Merge.
type CronConfig struct {
	KickOffReminder     *bool   `json:"kickOffReminder,omitempty"`
	PreRegressionBuilds *bool   `json:"preRegressionBuilds,omitempty"`
	AutomationBuilds    *bool   `json:"automationBuilds,omitempty"`
	AutomationRuns      *bool   `json:"automationRuns,omitempty"`
	TestFlightBuilds    *bool   `json:"testFlightBuilds,omitempty"`
	TestThresholdExpr   *string `json:"testThresholdExpr,omitempty"`
}

// Merge returns c with every non-nil field of overlay applied on top.
func (c CronConfig) Merge(overlay CronConfig) CronConfig {
	out := c
	if overlay.KickOffReminder != nil {
		out.KickOffReminder = overlay.KickOffReminder
	}
	if overlay.PreRegressionBuilds != nil {
		out.PreRegressionBuilds = overlay.PreRegressionBuilds
	}
	if overlay.AutomationBuilds != nil {
		out.AutomationBuilds = overlay.AutomationBuilds
	}
	if overlay.AutomationRuns != nil {
		out.AutomationRuns = overlay.AutomationRuns
	}
	if overlay.TestFlightBuilds != nil {
		out.TestFlightBuilds = overlay.TestFlightBuilds
	}
	if overlay.TestThresholdExpr != nil {
		out.TestThresholdExpr = overlay.TestThresholdExpr
	}
	return out
}

func (c CronConfig) KickOffReminderEnabled() bool     { return enabled(c.KickOffReminder, false) }
func (c CronConfig) PreRegressionBuildsEnabled() bool { return enabled(c.PreRegressionBuilds, true) }
func (c CronConfig) AutomationBuildsEnabled() bool    { return enabled(c.AutomationBuilds, false) }
func (c CronConfig) AutomationRunsEnabled() bool      { return enabled(c.AutomationRuns, false) }
func (c CronConfig) TestFlightBuildsEnabled() bool    { return enabled(c.TestFlightBuilds, true) }

// ThresholdExpr returns the configured pass-threshold expression, or "".
func (c CronConfig) ThresholdExpr() string {
	if c.TestThresholdExpr == nil {
		return ""
	}
	return *c.TestThresholdExpr
}

func enabled(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Bool is a helper for building configs.
func Bool(v bool) *bool { return &v }

// String is a helper for building configs.
func String(v string) *string { return &v }

// SlotConfig overrides regression-cycle work for a single slot.
type SlotConfig struct {
	AutomationBuilds  *bool   `json:"automationBuilds,omitempty"`
	AutomationRuns    *bool   `json:"automationRuns,omitempty"`
	TestThresholdExpr *string `json:"testThresholdExpr,omitempty"`
}

// Apply overlays the slot overrides on the release config.
func (s *SlotConfig) Apply(base CronConfig) CronConfig {
	if s == nil {
		return base
	}
	return base.Merge(CronConfig{
		AutomationBuilds:  s.AutomationBuilds,
		AutomationRuns:    s.AutomationRuns,
		TestThresholdExpr: s.TestThresholdExpr,
	})
}

// RegressionSlot is one scheduled regression cycle that has not started yet.
type RegressionSlot struct {
	Date   time.Time   `json:"date"`
	Config *SlotConfig `json:"config,omitempty"`
}

// RegressionSlots is kept sorted by Date.
type RegressionSlots []RegressionSlot

var ErrSlotAlreadyConsumed = errors.New("regression slot already converted into a cycle")

// Sorted returns a copy ordered by date, earliest first.
func (s RegressionSlots) Sorted() RegressionSlots {
	out := make(RegressionSlots, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Due returns the earliest slot whose date is not after now.
func (s RegressionSlots) Due(now time.Time) (RegressionSlot, bool) {
	sorted := s.Sorted()
	if len(sorted) == 0 || sorted[0].Date.After(now) {
		return RegressionSlot{}, false
	}
	return sorted[0], true
}

// Without removes the first slot with the same date as slot.
func (s RegressionSlots) Without(slot RegressionSlot) RegressionSlots {
	out := make(RegressionSlots, 0, len(s))
	removed := false
	for _, v := range s.Sorted() {
		if !removed && v.Date.Equal(slot.Date) {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out
}

// ReplaceUpcoming validates an edit of the regression schedule. The submitted list is the
// whole schedule; every slot already converted into a cycle must still be present in it.
// The returned list holds only the slots that have not run yet.
func ReplaceUpcoming(submitted RegressionSlots, consumed []time.Time) (RegressionSlots, error) {
	for _, slot := range submitted {
		if slot.Date.IsZero() {
			return nil, fmt.Errorf("regression slot date is required")
		}
	}
	out := submitted.Sorted()
	for _, c := range consumed {
		idx := -1
		for i, slot := range out {
			if slot.Date.Equal(c) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrSlotAlreadyConsumed, c.Format(time.RFC3339))
		}
		out = append(out[:idx], out[idx+1:]...)
	}
	return out, nil
}
