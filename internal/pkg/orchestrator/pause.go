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

import (
	"context"
	"fmt"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/pkg/logger"
)

// pauser halts a release. Both writes are conditional, so pausing twice is harmless.
type pauser struct {
	repos    *repo.Repositories
	notifier integration.Notifier
}

func (p *pauser) pause(ctx context.Context, releaseId string, pauseType model.PauseType, reason string) error {
	ok, err := p.repos.CronJob.Transition(ctx, releaseId, repo.CronTransition{
		From:  []model.CronStatus{model.CronRunning},
		To:    model.CronPaused,
		Pause: pauseType,
	})
	if err != nil {
		return fmt.Errorf("pause release %s: %w", releaseId, err)
	}
	if !ok {
		return nil
	}
	if pauseType == model.PauseAwaitingStageTrigger {
		return nil
	}
	if _, err := p.repos.Release.UpdateStatus(ctx, releaseId,
		[]model.ReleaseStatus{model.ReleaseInProgress}, model.ReleasePaused); err != nil {
		return fmt.Errorf("pause release %s: %w", releaseId, err)
	}
	logger.Channel("scheduler").WarnContext(ctx, "release paused", "releaseId", releaseId, "pauseType", pauseType, "reason", reason)
	if p.notifier != nil {
		err := p.notifier.Notify(ctx, integration.Notification{
			Type:      integration.NotifyReleasePaused,
			ReleaseId: releaseId,
			Title:     "Release paused",
			Body:      reason,
			Data:      map[string]any{"pauseType": string(pauseType)},
		})
		if err != nil {
			logger.Channel("scheduler").WarnContext(ctx, "pause notification failed", "releaseId", releaseId, "error", err)
		}
	}
	return nil
}
