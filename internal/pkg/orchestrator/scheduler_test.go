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

package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator"
)

func TestTickOnceIsolatesFailingRelease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.createRelease(t, []model.PlatformTarget{android}, noPreRegression)

	// a cron job without its release fails every step
	require.NoError(t, h.repos.CronJob.Create(ctx, &model.CronJob{
		CronJobId:    "orphan-job",
		ReleaseId:    "orphan",
		CronStatus:   model.CronRunning,
		Stage1Status: model.StageInProgress,
		Stage2Status: model.StagePending,
		Stage3Status: model.StagePending,
		PauseType:    model.PauseNone,
		Version:      1,
	}))

	s := orchestrator.NewScheduler(orchestrator.SchedulerConfig{MaxParallel: 2, Owner: "test"}, h.engine, nil)
	require.NoError(t, s.TickOnce(ctx))

	job := h.job(t, r)
	assert.Equal(t, model.StageCompleted, job.Stage1Status)
	assert.Zero(t, job.LockedUntil, "lease is returned after the step")
}

func TestTickOnceSkipsLeasedRelease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.createRelease(t, []model.PlatformTarget{android}, noPreRegression)

	ok, err := h.repos.CronJob.AcquireLease(ctx, r.ReleaseId, "other-instance", t0.UnixMilli(), time.Minute.Milliseconds())
	require.NoError(t, err)
	require.True(t, ok)

	s := orchestrator.NewScheduler(orchestrator.SchedulerConfig{Owner: "test"}, h.engine, nil)
	require.NoError(t, s.TickOnce(ctx))
	assert.Equal(t, model.CronPending, h.job(t, r).CronStatus)

	h.clock.Advance(2 * time.Minute)
	require.NoError(t, s.TickOnce(ctx))
	assert.Equal(t, model.CronRunning, h.job(t, r).CronStatus)
}

func TestTickOnceSkipsPausedRelease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	r := h.createRelease(t, []model.PlatformTarget{android})
	s := orchestrator.NewScheduler(orchestrator.SchedulerConfig{Owner: "test"}, h.engine, nil)

	require.NoError(t, s.TickOnce(ctx))
	require.Equal(t, 1, h.trigger.Calls())
	require.NoError(t, h.engine.Pause(ctx, r.ReleaseId))

	h.finishBuilds()
	require.NoError(t, s.TickOnce(ctx))
	assert.Equal(t, model.TaskAwaitingCallback, h.taskOf(t, r, model.TaskTriggerPreRegressionBuilds, "").TaskStatus)
}

func TestSchedulerConfigDefaults(t *testing.T) {
	var cfg orchestrator.SchedulerConfig
	cfg.SetDefaults()
	assert.Equal(t, "@every 1m", cfg.CronSpec)
	assert.Equal(t, 8, cfg.MaxParallel)
	assert.Equal(t, 300, cfg.LeaseTTLSeconds)
	assert.NotEmpty(t, cfg.Owner)
	assert.NotEmpty(t, cfg.LockPrefix)
}

func TestSchedulerStartStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	bad := orchestrator.NewScheduler(orchestrator.SchedulerConfig{CronSpec: "every now and then"}, h.engine, nil)
	assert.Error(t, bad.Start(ctx))

	s := orchestrator.NewScheduler(orchestrator.SchedulerConfig{CronSpec: "*/30 * * * * *"}, h.engine, nil)
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	s.Stop()
	s.Stop()
}

func TestRegisterSchedulerMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NoError(t, orchestrator.RegisterSchedulerMetrics(registry))
	assert.Error(t, orchestrator.RegisterSchedulerMetrics(registry), "collectors register once per registry")
}
