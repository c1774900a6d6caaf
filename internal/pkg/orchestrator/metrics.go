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

package orchestrator

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeStepped = "stepped"
	outcomeLeased  = "leased"
	outcomeLocked  = "locked"
	outcomeError   = "error"
)

var (
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Duration of one scheduler tick across all releases",
			Buckets: prometheus.DefBuckets,
		},
	)

	releaseSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_release_steps_total",
			Help: "Release steps attempted by the scheduler, by outcome",
		},
		[]string{"outcome"},
	)
)

func RegisterSchedulerMetrics(registry *prometheus.Registry) error {
	if err := registry.Register(tickDuration); err != nil {
		return err
	}
	if err := registry.Register(releaseSteps); err != nil {
		return err
	}
	return nil
}
